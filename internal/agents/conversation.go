package agents

import (
	"strings"

	"plutus/internal/adapters/ai"
	"plutus/pkg/errors"
)

// Conversation is the ordered message history for one chat turn.
type Conversation struct {
	Messages []ai.Message
}

// NewConversation builds a conversation from a flat message list.
func NewConversation(messages []ai.Message) Conversation {
	return Conversation{Messages: messages}
}

// FromMessageAndHistory builds a conversation from the legacy request form:
// prior history plus the new user message appended last.
func FromMessageAndHistory(message string, history []ai.Message) Conversation {
	messages := make([]ai.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: message})
	return Conversation{Messages: messages}
}

// Validate checks the conversation can start a turn: it must contain at least
// one user message with non-blank content.
func (c Conversation) Validate() error {
	if len(c.Messages) == 0 {
		return errors.Wrap(errors.ErrInvalidRequest, "conversation is empty")
	}
	for _, m := range c.Messages {
		if m.Role == ai.RoleUser && strings.TrimSpace(m.Content) != "" {
			return nil
		}
	}
	return errors.Wrap(errors.ErrInvalidRequest, "conversation has no user message")
}

// LastUserMessage returns the content of the most recent user message.
func (c Conversation) LastUserMessage() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == ai.RoleUser {
			return c.Messages[i].Content
		}
	}
	return ""
}
