package agents

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plutus/internal/adapters/ai"
	"plutus/internal/imagetask"
	"plutus/internal/tools"
	"plutus/pkg/errors"
)

// scriptedChat replays a fixed sequence of responses and records requests.
type scriptedChat struct {
	responses []*ai.ChatResponse
	err       error
	requests  []ai.ChatRequest
}

func (s *scriptedChat) Name() string { return "scripted" }

func (s *scriptedChat) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	idx := len(s.requests) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

func textReply(content string) *ai.ChatResponse {
	return &ai.ChatResponse{
		Choices: []ai.Choice{{
			Message:      ai.Message{Role: ai.RoleAssistant, Content: content},
			FinishReason: ai.FinishReasonStop,
		}},
	}
}

func toolCallReply(content string, calls ...ai.ToolCall) *ai.ChatResponse {
	return &ai.ChatResponse{
		Choices: []ai.Choice{{
			Message:      ai.Message{Role: ai.RoleAssistant, Content: content, ToolCalls: calls},
			FinishReason: ai.FinishReasonToolCalls,
		}},
	}
}

func priceCall(id string) ai.ToolCall {
	return ai.ToolCall{
		ID:   id,
		Type: "function",
		Function: ai.FunctionCall{
			Name:      "get_price",
			Arguments: `{"symbol": "BTC"}`,
		},
	}
}

type recordingTool struct {
	name    string
	result  string
	err     error
	gotArgs []json.RawMessage
}

func (r *recordingTool) Name() string                       { return r.name }
func (r *recordingTool) Description() string                { return "test tool" }
func (r *recordingTool) Parameters() map[string]interface{} { return tools.ObjectSchema(nil) }

func (r *recordingTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	r.gotArgs = append(r.gotArgs, args)
	return r.result, r.err
}

func userConv(content string) Conversation {
	return NewConversation([]ai.Message{{Role: ai.RoleUser, Content: content}})
}

func newTestDispatcher(t *testing.T, chat ai.ChatProvider, tool tools.Tool, mgr *imagetask.Manager) *Dispatcher {
	t.Helper()
	reg := tools.NewRegistry()
	if tool != nil {
		require.NoError(t, reg.Register(tool))
	}
	d, err := NewDispatcher(chat, reg, mgr, nil, Config{Model: "gpt-4o"})
	require.NoError(t, err)
	return d
}

func TestHandleTurnRejectsEmptyConversation(t *testing.T) {
	d := newTestDispatcher(t, &scriptedChat{responses: []*ai.ChatResponse{textReply("hi")}}, nil, nil)

	_, err := d.HandleTurn(context.Background(), NewConversation(nil))
	assert.ErrorIs(t, err, errors.ErrInvalidRequest)
}

func TestHandleTurnDirectAnswer(t *testing.T) {
	chat := &scriptedChat{responses: []*ai.ChatResponse{textReply("Bitcoin is a cryptocurrency.")}}
	tool := &recordingTool{name: "get_price", result: "{}"}
	d := newTestDispatcher(t, chat, tool, nil)

	resp, err := d.HandleTurn(context.Background(), userConv("what is bitcoin?"))
	require.NoError(t, err)

	assert.Equal(t, "Bitcoin is a cryptocurrency.", resp.Content)
	assert.Empty(t, resp.ImageTaskID)
	assert.Empty(t, tool.gotArgs)

	// System prompt goes first, then the user message, with tool definitions attached.
	require.Len(t, chat.requests, 1)
	req := chat.requests[0]
	assert.Equal(t, ai.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, ai.RoleUser, req.Messages[1].Role)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "get_price", req.Tools[0].Function.Name)
}

func TestHandleTurnSingleToolRound(t *testing.T) {
	chat := &scriptedChat{responses: []*ai.ChatResponse{
		toolCallReply("", priceCall("call-1")),
		textReply("BTC trades at $97,000."),
	}}
	tool := &recordingTool{name: "get_price", result: `{"symbol":"BTC","price":"97000"}`}
	d := newTestDispatcher(t, chat, tool, nil)

	resp, err := d.HandleTurn(context.Background(), userConv("price of BTC?"))
	require.NoError(t, err)

	assert.Equal(t, "BTC trades at $97,000.", resp.Content)
	assert.Equal(t, 1, resp.ToolRounds)
	require.Len(t, tool.gotArgs, 1)
	assert.JSONEq(t, `{"symbol": "BTC"}`, string(tool.gotArgs[0]))

	// Second request carries the assistant tool-call message and the tool result.
	require.Len(t, chat.requests, 2)
	msgs := chat.requests[1].Messages
	last := msgs[len(msgs)-1]
	assert.Equal(t, ai.RoleTool, last.Role)
	assert.Equal(t, "call-1", last.ToolCallID)
	assert.Equal(t, tool.result, last.Content)
	assert.Len(t, msgs[len(msgs)-2].ToolCalls, 1)
}

func TestHandleTurnFoldsToolFailure(t *testing.T) {
	chat := &scriptedChat{responses: []*ai.ChatResponse{
		toolCallReply("", priceCall("call-1")),
		textReply("I could not fetch live prices right now."),
	}}
	tool := &recordingTool{name: "get_price", err: errors.ErrProviderUnavailable}
	d := newTestDispatcher(t, chat, tool, nil)

	resp, err := d.HandleTurn(context.Background(), userConv("price of BTC?"))
	require.NoError(t, err)
	assert.Equal(t, "I could not fetch live prices right now.", resp.Content)

	msgs := chat.requests[1].Messages
	last := msgs[len(msgs)-1]
	assert.Equal(t, ai.RoleTool, last.Role)
	assert.Contains(t, last.Content, "Error:")
	assert.Contains(t, last.Content, "unreachable")
}

func TestHandleTurnFoldsUnknownTool(t *testing.T) {
	call := ai.ToolCall{ID: "call-1", Type: "function", Function: ai.FunctionCall{Name: "get_magic", Arguments: "{}"}}
	chat := &scriptedChat{responses: []*ai.ChatResponse{
		toolCallReply("", call),
		textReply("That capability is unavailable."),
	}}
	d := newTestDispatcher(t, chat, &recordingTool{name: "get_price", result: "{}"}, nil)

	resp, err := d.HandleTurn(context.Background(), userConv("do magic"))
	require.NoError(t, err)
	assert.Equal(t, "That capability is unavailable.", resp.Content)

	msgs := chat.requests[1].Messages
	assert.Contains(t, msgs[len(msgs)-1].Content, "not available")
}

func TestHandleTurnToolLoopExceeded(t *testing.T) {
	// The model keeps requesting tools forever.
	chat := &scriptedChat{responses: []*ai.ChatResponse{
		toolCallReply("Checking the data...", priceCall("call-x")),
	}}
	tool := &recordingTool{name: "get_price", result: "{}"}
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(tool))

	d, err := NewDispatcher(chat, reg, nil, nil, Config{Model: "gpt-4o", MaxToolRounds: 3})
	require.NoError(t, err)

	resp, err := d.HandleTurn(context.Background(), userConv("price of BTC?"))
	assert.ErrorIs(t, err, errors.ErrToolLoopExceeded)

	// Partial answer still comes back, and exactly cap rounds of tools ran.
	require.NotNil(t, resp)
	assert.Equal(t, "Checking the data...", resp.Content)
	assert.Len(t, tool.gotArgs, 3)
	assert.Len(t, chat.requests, 4)
}

func TestHandleTurnUpstreamUnavailable(t *testing.T) {
	chat := &scriptedChat{err: errors.Wrap(errors.ErrUpstreamUnavailable, "connection refused")}
	d := newTestDispatcher(t, chat, nil, nil)

	_, err := d.HandleTurn(context.Background(), userConv("hi"))
	assert.ErrorIs(t, err, errors.ErrUpstreamUnavailable)
}

type stubImages struct{}

func (stubImages) Name() string { return "stub" }

func (stubImages) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return "https://img.example/x.png", nil
}

func TestHandleTurnChartIntentCreatesImageTask(t *testing.T) {
	store := imagetask.NewMemoryStore(time.Hour)
	mgr, err := imagetask.NewManager(store, stubImages{})
	require.NoError(t, err)

	chat := &scriptedChat{responses: []*ai.ChatResponse{textReply("Here is the BTC overview.")}}
	d := newTestDispatcher(t, chat, nil, mgr)

	resp, err := d.HandleTurn(context.Background(), userConv("show me a chart of BTC"))
	require.NoError(t, err)

	require.NotEmpty(t, resp.ImageTaskID)
	task, err := store.Get(context.Background(), resp.ImageTaskID)
	require.NoError(t, err)
	assert.Equal(t, imagetask.StatusPending, task.Status)
	assert.Contains(t, task.Prompt, "show me a chart of BTC")
}

func TestHandleTurnNoChartIntentNoTask(t *testing.T) {
	store := imagetask.NewMemoryStore(time.Hour)
	mgr, err := imagetask.NewManager(store, stubImages{})
	require.NoError(t, err)

	chat := &scriptedChat{responses: []*ai.ChatResponse{textReply("BTC is at $97,000.")}}
	d := newTestDispatcher(t, chat, nil, mgr)

	resp, err := d.HandleTurn(context.Background(), userConv("price of BTC"))
	require.NoError(t, err)
	assert.Empty(t, resp.ImageTaskID)
}
