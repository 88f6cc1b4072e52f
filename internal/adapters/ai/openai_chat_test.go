package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plutus/pkg/errors"
)

func testProvider(serverURL string) *OpenAIProvider {
	p := NewOpenAIProvider("test-key", time.Second, nil)
	p.SetBaseURL(serverURL)
	return p
}

func TestChatTextReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "get_crypto_price", req.Tools[0].Function.Name)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "BTC is at $97,000."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 12, "total_tokens": 54}
		}`))
	}))
	defer server.Close()

	p := testProvider(server.URL)
	resp, err := p.Chat(context.Background(), ChatRequest{
		Model: "gpt-4o",
		Messages: []Message{
			{Role: RoleSystem, Content: "You are a financial assistant."},
			{Role: RoleUser, Content: "price of BTC?"},
		},
		Tools: []ToolDefinition{{
			Type:     "function",
			Function: FunctionDefinition{Name: "get_crypto_price", Parameters: map[string]interface{}{"type": "object"}},
		}},
	})
	require.NoError(t, err)

	require.Len(t, resp.Choices, 1)
	assert.Equal(t, FinishReasonStop, resp.Choices[0].FinishReason)
	assert.Equal(t, "BTC is at $97,000.", resp.Choices[0].Message.Content)
	assert.Equal(t, 42, resp.Usage.PromptTokens)
	assert.Equal(t, 12, resp.Usage.CompletionTokens)
}

func TestChatToolCallReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-2", "model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "",
				"tool_calls": [{"id": "call-1", "type": "function",
					"function": {"name": "get_crypto_price", "arguments": "{\"symbol\": \"BTC\"}"}}]},
				"finish_reason": "tool_calls"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	p := testProvider(server.URL)
	resp, err := p.Chat(context.Background(), ChatRequest{
		Model:    "gpt-4o",
		Messages: []Message{{Role: RoleUser, Content: "price of BTC?"}},
	})
	require.NoError(t, err)

	require.Len(t, resp.Choices, 1)
	choice := resp.Choices[0]
	assert.Equal(t, FinishReasonToolCalls, choice.FinishReason)
	require.Len(t, choice.Message.ToolCalls, 1)
	assert.Equal(t, "call-1", choice.Message.ToolCalls[0].ID)
	assert.Equal(t, "get_crypto_price", choice.Message.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"symbol": "BTC"}`, choice.Message.ToolCalls[0].Function.Arguments)
}

func TestChatRoundTripsToolResults(t *testing.T) {
	var got openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "done"}, "finish_reason": "stop"}]}`))
	}))
	defer server.Close()

	p := testProvider(server.URL)
	_, err := p.Chat(context.Background(), ChatRequest{
		Model: "gpt-4o",
		Messages: []Message{
			{Role: RoleUser, Content: "price?"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{
				ID: "call-1", Type: "function",
				Function: FunctionCall{Name: "get_crypto_price", Arguments: `{"symbol":"BTC"}`},
			}}},
			{Role: RoleTool, Content: `{"price":"97000"}`, ToolCallID: "call-1", Name: "get_crypto_price"},
		},
	})
	require.NoError(t, err)

	require.Len(t, got.Messages, 3)
	assert.Len(t, got.Messages[1].ToolCalls, 1)
	assert.Equal(t, "call-1", got.Messages[2].ToolCallID)
	assert.Equal(t, "tool", got.Messages[2].Role)
}

func TestChatServerErrorIsUpstreamUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := testProvider(server.URL)
	_, err := p.Chat(context.Background(), ChatRequest{Model: "gpt-4o"})
	assert.ErrorIs(t, err, errors.ErrUpstreamUnavailable)
}

func TestChatTransportErrorIsUpstreamUnavailable(t *testing.T) {
	p := NewOpenAIProvider("test-key", 200*time.Millisecond, nil)
	p.SetBaseURL("http://127.0.0.1:1")

	_, err := p.Chat(context.Background(), ChatRequest{Model: "gpt-4o"})
	assert.ErrorIs(t, err, errors.ErrUpstreamUnavailable)
}

func TestChatClientErrorIsExternal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	p := testProvider(server.URL)
	_, err := p.Chat(context.Background(), ChatRequest{Model: "gpt-4o"})
	assert.ErrorIs(t, err, errors.ErrExternal)
	assert.NotErrorIs(t, err, errors.ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "Incorrect API key")
}

func TestChatRequiresAPIKey(t *testing.T) {
	p := NewOpenAIProvider("", time.Second, nil)

	_, err := p.Chat(context.Background(), ChatRequest{Model: "gpt-4o"})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}
