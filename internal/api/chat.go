package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"plutus/internal/adapters/ai"
	"plutus/internal/agents"
	"plutus/internal/metrics"
	"plutus/pkg/errors"
	"plutus/pkg/logger"
	"plutus/pkg/retry"
)

// TurnHandler is the agent capability the chat endpoint needs.
type TurnHandler interface {
	HandleTurn(ctx context.Context, conv agents.Conversation) (*agents.AgentResponse, error)
}

// ChatHandler serves POST /api/chat.
type ChatHandler struct {
	agent       TurnHandler
	retryPolicy retry.Policy
	turnTimeout time.Duration
	log         *logger.Logger
}

// NewChatHandler creates the chat endpoint handler.
func NewChatHandler(agent TurnHandler, retryPolicy retry.Policy, turnTimeout time.Duration) *ChatHandler {
	if turnTimeout <= 0 {
		turnTimeout = 90 * time.Second
	}
	return &ChatHandler{
		agent:       agent,
		retryPolicy: retryPolicy,
		turnTimeout: turnTimeout,
		log:         logger.Get().With("handler", "chat"),
	}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest accepts both body forms: a full messages array, or a single
// message with optional history.
type chatRequest struct {
	Messages []wireMessage `json:"messages"`
	Message  string        `json:"message"`
	History  []wireMessage `json:"history"`
}

type chatResponse struct {
	Response    string `json:"response"`
	ImageTaskID string `json:"image_task_id,omitempty"`
}

func toConversation(req chatRequest) agents.Conversation {
	if len(req.Messages) > 0 {
		return agents.NewConversation(toAIMessages(req.Messages))
	}
	return agents.FromMessageAndHistory(req.Message, toAIMessages(req.History))
}

func toAIMessages(in []wireMessage) []ai.Message {
	out := make([]ai.Message, 0, len(in))
	for _, m := range in {
		out = append(out, ai.Message{Role: ai.MessageRole(m.Role), Content: m.Content})
	}
	return out
}

// ServeHTTP handles one chat turn.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrInvalidRequest, "malformed request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.turnTimeout)
	defer cancel()

	start := time.Now()
	conv := toConversation(req)

	// Upstream hiccups get a bounded retry; everything else fails fast.
	var resp *agents.AgentResponse
	err := retry.Do(ctx, h.retryPolicy,
		func(err error) bool { return errors.Is(err, errors.ErrUpstreamUnavailable) },
		func(ctx context.Context) error {
			var turnErr error
			resp, turnErr = h.agent.HandleTurn(ctx, conv)
			return turnErr
		},
	)

	switch {
	case err == nil:
		metrics.RecordChatTurn("success", time.Since(start))
		writeJSON(w, http.StatusOK, chatResponse{Response: resp.Content, ImageTaskID: resp.ImageTaskID})

	case errors.Is(err, errors.ErrToolLoopExceeded):
		// The partial answer is still worth returning.
		metrics.RecordChatTurn("tool_loop", time.Since(start))
		content := apologyMessage
		if resp != nil && resp.Content != "" {
			content = resp.Content
		}
		var imageTaskID string
		if resp != nil {
			imageTaskID = resp.ImageTaskID
		}
		writeJSON(w, http.StatusOK, chatResponse{Response: content, ImageTaskID: imageTaskID})

	case errors.Is(err, errors.ErrInvalidRequest):
		metrics.RecordChatTurn("invalid", time.Since(start))
		writeError(w, err)

	case errors.Is(err, errors.ErrUpstreamUnavailable):
		metrics.RecordChatTurn("upstream_error", time.Since(start))
		h.log.Errorf("chat upstream unavailable: %v", err)
		writeError(w, err)

	default:
		metrics.RecordChatTurn("error", time.Since(start))
		h.log.Errorf("chat turn failed: %v", err)
		writeError(w, err)
	}
}
