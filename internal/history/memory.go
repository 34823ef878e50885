// Package history keeps conversation turns per session.
package history

import (
	"context"
	"sync"

	"pdf-qa-platform/models"
)

// Memory keeps histories in process memory. Histories are lost on restart.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]models.Turn
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string][]models.Turn)}
}

// Load returns a copy of the session's turns in order.
func (m *Memory) Load(ctx context.Context, sessionID string) ([]models.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	turns := m.sessions[sessionID]
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// Append adds all turns at once.
func (m *Memory) Append(ctx context.Context, sessionID string, turns ...models.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[sessionID] = append(m.sessions[sessionID], turns...)
	return nil
}

func (m *Memory) Reset(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

func (m *Memory) Close() error { return nil }
