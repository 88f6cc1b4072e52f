package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"plutus/internal/adapters/ai"
	"plutus/internal/imagetask"
	"plutus/internal/metrics"
	"plutus/internal/tools"
	"plutus/pkg/errors"
	"plutus/pkg/logger"
)

const defaultSystemPrompt = `You are a financial assistant specialized in cryptocurrency and stock markets. Use the available tools to fetch real market data before answering. Never invent prices, indicators or statistics: if a tool fails or data is unavailable, say so explicitly. Keep answers concise and mention that nothing you say is financial advice when giving recommendations.`

const defaultMaxToolRounds = 5

// Config tunes the dispatcher's model parameters and loop bounds.
type Config struct {
	Model         string
	Temperature   float64
	MaxTokens     int
	MaxToolRounds int
	SystemPrompt  string
}

// AgentResponse is the outcome of one chat turn.
type AgentResponse struct {
	Content     string `json:"response"`
	ImageTaskID string `json:"image_task_id,omitempty"`
	ToolRounds  int    `json:"-"`
}

// Dispatcher runs the tool-calling loop: model reply, tool execution, repeat
// until the model answers in plain text or the round cap is hit.
type Dispatcher struct {
	chat       ai.ChatProvider
	registry   *tools.Registry
	imageTasks *imagetask.Manager
	classifier ChartIntentClassifier
	cfg        Config
	log        *logger.Logger
}

// NewDispatcher creates a dispatcher. The image task manager may be nil, in
// which case chart requests are answered in text only.
func NewDispatcher(chat ai.ChatProvider, registry *tools.Registry, imageTasks *imagetask.Manager, classifier ChartIntentClassifier, cfg Config) (*Dispatcher, error) {
	if chat == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "chat provider is required")
	}
	if registry == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "tool registry is required")
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = defaultMaxToolRounds
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if classifier == nil {
		classifier = KeywordChartClassifier{}
	}

	return &Dispatcher{
		chat:       chat,
		registry:   registry,
		imageTasks: imageTasks,
		classifier: classifier,
		cfg:        cfg,
		log:        logger.Get().With("component", "dispatcher"),
	}, nil
}

// HandleTurn runs one full chat turn. On ErrToolLoopExceeded the returned
// response still carries the best partial answer seen so far.
func (d *Dispatcher) HandleTurn(ctx context.Context, conv Conversation) (*AgentResponse, error) {
	if err := conv.Validate(); err != nil {
		return nil, err
	}

	messages := make([]ai.Message, 0, len(conv.Messages)+1)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: d.cfg.SystemPrompt})
	messages = append(messages, conv.Messages...)

	defs := d.registry.Definitions()
	var partial string

	for round := 0; ; round++ {
		choice, err := d.complete(ctx, messages, defs)
		if err != nil {
			return nil, err
		}

		if choice.Message.Content != "" {
			partial = choice.Message.Content
		}

		if choice.FinishReason != ai.FinishReasonToolCalls || len(choice.Message.ToolCalls) == 0 {
			return d.finalize(ctx, conv, partial, round), nil
		}

		if round >= d.cfg.MaxToolRounds {
			d.log.Warnw("tool round cap exceeded", "rounds", round, "cap", d.cfg.MaxToolRounds)
			resp := d.finalize(ctx, conv, partial, round)
			return resp, errors.Wrapf(errors.ErrToolLoopExceeded, "model requested tools after %d rounds", round)
		}

		messages = append(messages, choice.Message)
		messages = append(messages, d.runToolCalls(ctx, choice.Message.ToolCalls)...)
	}
}

func (d *Dispatcher) complete(ctx context.Context, messages []ai.Message, defs []ai.ToolDefinition) (*ai.Choice, error) {
	start := time.Now()
	resp, err := d.chat.Chat(ctx, ai.ChatRequest{
		Model:       d.cfg.Model,
		Messages:    messages,
		Tools:       defs,
		Temperature: d.cfg.Temperature,
		MaxTokens:   d.cfg.MaxTokens,
	})
	if err != nil {
		metrics.RecordLLMCall(d.cfg.Model, time.Since(start), 0, 0, err)
		return nil, err
	}
	metrics.RecordLLMCall(d.cfg.Model, time.Since(start), resp.Usage.PromptTokens, resp.Usage.CompletionTokens, nil)

	if len(resp.Choices) == 0 {
		return nil, errors.Wrap(errors.ErrUpstreamUnavailable, "model returned no choices")
	}
	return &resp.Choices[0], nil
}

// runToolCalls executes the batch sequentially and renders every outcome as
// a tool message. Failures become short error text so the model can adjust
// instead of the turn aborting.
func (d *Dispatcher) runToolCalls(ctx context.Context, calls []ai.ToolCall) []ai.Message {
	results := make([]ai.Message, 0, len(calls))
	for _, call := range calls {
		results = append(results, ai.Message{
			Role:       ai.RoleTool,
			Content:    d.runToolCall(ctx, call),
			ToolCallID: call.ID,
			Name:       call.Function.Name,
		})
	}
	return results
}

func (d *Dispatcher) runToolCall(ctx context.Context, call ai.ToolCall) string {
	name := call.Function.Name
	start := time.Now()

	tool, err := d.registry.Resolve(name)
	if err != nil {
		metrics.RecordToolExecution(name, time.Since(start), err)
		d.log.Warnf("model requested unknown tool %q", name)
		return fmt.Sprintf("Error: tool %q is not available.", name)
	}

	out, err := tool.Execute(ctx, json.RawMessage(call.Function.Arguments))
	metrics.RecordToolExecution(name, time.Since(start), err)
	if err != nil {
		d.log.Warnf("tool %s failed: %v", name, err)
		return fmt.Sprintf("Error: tool %q failed: %s. Tell the user this data is currently unavailable.", name, errors.UserMessage(err))
	}
	return out
}

// finalize attaches an image task when the user asked for a chart.
func (d *Dispatcher) finalize(ctx context.Context, conv Conversation, content string, rounds int) *AgentResponse {
	resp := &AgentResponse{Content: content, ToolRounds: rounds}

	userMsg := conv.LastUserMessage()
	if d.imageTasks == nil || !d.classifier.WantsChart(userMsg) {
		return resp
	}

	task, err := d.imageTasks.Create(ctx, chartPrompt(userMsg))
	if err != nil {
		d.log.Errorf("create image task: %v", err)
		return resp
	}
	metrics.RecordImageTask("created")
	resp.ImageTaskID = task.ID
	return resp
}

func chartPrompt(userMessage string) string {
	return "Professional financial chart illustration for the following request, clean modern style with clear axis labels: " + userMessage
}
