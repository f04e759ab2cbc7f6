package session

import (
	"context"
	"sync"

	"github.com/mx32-chat/backend/internal/llm"
	"github.com/mx32-chat/backend/internal/metrics"
)

// MemoryStore keeps conversation history in process memory. History is
// lost on restart, which is acceptable for single-instance deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	window   int
	sessions map[string][]llm.Message
}

// NewMemoryStore creates an in-memory store retaining up to window
// messages per session. A non-positive window falls back to
// DefaultWindow.
func NewMemoryStore(window int) *MemoryStore {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryStore{
		window:   window,
		sessions: make(map[string][]llm.Message),
	}
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, messages ...llm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[sessionID], messages...)
	if len(history) > s.window {
		history = history[len(history)-s.window:]
	}
	s.sessions[sessionID] = history
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]llm.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.sessions[sessionID]
	out := make([]llm.Message, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}
