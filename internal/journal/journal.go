package journal

import (
	"context"
	"sync"

	"github.com/utkarshx27/ai-powered-interview/internal/ai"
)

// Journal mirrors interview messages outside the process as they are appended.
type Journal interface {
	Append(ctx context.Context, sessionID string, msg ai.Message) error
}

// Memory keeps journals in process. It is safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	sessions map[string][]ai.Message
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string][]ai.Message)}
}

func (m *Memory) Append(_ context.Context, sessionID string, msg ai.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], msg)
	return nil
}

func (m *Memory) History(_ context.Context, sessionID string) ([]ai.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := m.sessions[sessionID]
	out := make([]ai.Message, len(history))
	copy(out, history)
	return out, nil
}
