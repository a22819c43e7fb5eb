package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// HistoryRepository persists completed turns per session for the history lookup.
type HistoryRepository interface {
	// AddMessage appends a message to the session's history
	AddMessage(ctx context.Context, sessionID string, message *schema.Message) error

	// LoadHistory retrieves the session's history, oldest first
	LoadHistory(ctx context.Context, sessionID string) (*ConversationHistory, error)

	// ClearHistory removes all history for a session
	ClearHistory(ctx context.Context, sessionID string) error

	// GetMessageCount returns the number of stored messages
	GetMessageCount(ctx context.Context, sessionID string) (int, error)
}

// ConversationHistory represents loaded history with metadata.
type ConversationHistory struct {
	SessionID string
	Messages  []*schema.Message
}
