// Package session stores per-conversation chat history behind a small
// interface so the backing store can be swapped between process memory
// and Redis without touching the chat engine.
package session

import (
	"context"

	"github.com/mx32-chat/backend/internal/llm"
)

// DefaultWindow is how many messages a conversation retains. Older
// messages are evicted first.
const DefaultWindow = 20

// Store holds conversation history keyed by session ID.
type Store interface {
	// Append adds messages to the end of the session history,
	// evicting the oldest entries beyond the window.
	Append(ctx context.Context, sessionID string, messages ...llm.Message) error

	// History returns the retained messages in order, oldest first.
	// A missing session yields an empty slice, not an error.
	History(ctx context.Context, sessionID string) ([]llm.Message, error)

	// Clear removes the session entirely.
	Clear(ctx context.Context, sessionID string) error
}
