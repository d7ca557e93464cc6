package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

type ConversationRepository interface {
	// AddMessage appends a message to the transcript of the given session
	AddMessage(ctx context.Context, sessionID string, message *Message) error

	// LoadHistory retrieves the transcript of a session
	LoadHistory(ctx context.Context, sessionID string) (*ConversationHistory, error)

	// ClearHistory removes the transcript of a session
	ClearHistory(ctx context.Context, sessionID string) error

	// GetMessageCount returns the number of messages in the transcript
	GetMessageCount(ctx context.Context, sessionID string) (int, error)
}

// Message is one transcript entry. Assistant entries keep the steps and figure shown with them.
type Message struct {
	Role      schema.RoleType `json:"role"`
	Content   string          `json:"content"`
	Steps     []Step          `json:"steps,omitempty"`
	Figure    *Figure         `json:"figure,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// UserMessage records a question.
func UserMessage(content string, at time.Time) *Message {
	return &Message{Role: schema.User, Content: content, CreatedAt: at}
}

// AssistantMessage records a reply.
func AssistantMessage(r *Reply, at time.Time) *Message {
	return &Message{Role: schema.Assistant, Content: r.Content, Steps: r.Steps, Figure: r.Figure, CreatedAt: at}
}

// ConversationHistory represents a loaded transcript.
type ConversationHistory struct {
	SessionID string     `json:"session_id"`
	Messages  []*Message `json:"messages"`
}

// Session binds a chat session to the profile selected when it started.
type Session struct {
	ID        string    `json:"session_id"`
	Profile   string    `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionRepository interface {
	// Create stores a new session
	Create(ctx context.Context, session Session) error

	// Get loads a session and extends its TTL; missing sessions return a not-found AppError
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session
	Delete(ctx context.Context, id string) error
}
