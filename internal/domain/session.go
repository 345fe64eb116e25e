package domain

import (
	"fmt"
	"time"
)

// MessageRole represents the author of a chat message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// ChatSession groups a conversation and its uploaded documents
type ChatSession struct {
	ID        string
	Name      string
	UserID    string
	CreatedAt time.Time
}

// ChatMessage is a single persisted turn in a session. Assistant messages
// carry the retrieval sources that grounded the reply.
type ChatMessage struct {
	ID        string
	SessionID string
	Role      MessageRole
	Content   string
	Sources   []SearchResult
	CreatedAt time.Time
}

// NewChatSession creates a new ChatSession instance
func NewChatSession(id, name, userID string, createdAt time.Time) *ChatSession {
	return &ChatSession{
		ID:        id,
		Name:      name,
		UserID:    userID,
		CreatedAt: createdAt,
	}
}

// isValidMessageRole checks if a MessageRole is valid
func isValidMessageRole(r MessageRole) bool {
	switch r {
	case MessageRoleUser, MessageRoleAssistant, MessageRoleSystem:
		return true
	}
	return false
}

// ValidateChatMessage validates a ChatMessage instance
func ValidateChatMessage(m *ChatMessage) error {
	if m == nil {
		return fmt.Errorf("chat message cannot be nil")
	}

	if m.ID == "" {
		return fmt.Errorf("chat message ID is required")
	}

	if m.SessionID == "" {
		return fmt.Errorf("chat message SessionID is required")
	}

	if m.Content == "" {
		return fmt.Errorf("chat message Content is required")
	}

	if !isValidMessageRole(m.Role) {
		return fmt.Errorf("chat message Role is invalid: %s", m.Role)
	}

	return nil
}
