// Package memory holds the conversation log for the active session.
package memory

import (
	"sync"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

// Memory is an append-only ordered log of conversation turns, shared by all
// requests in the process (one global conversation, no per-user isolation).
// Appends are serialized; History returns a snapshot that never interleaves
// with an in-progress append.
type Memory struct {
	mu    sync.RWMutex
	turns []models.ConversationTurn
}

// New returns an empty conversation memory.
func New() *Memory {
	return &Memory{}
}

// Append adds a turn to the end of the log. The turn's source list is copied
// so later caller mutations cannot reach the log.
func (m *Memory) Append(turn models.ConversationTurn) {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	if turn.Sources != nil {
		sources := make([]string, len(turn.Sources))
		copy(sources, turn.Sources)
		turn.Sources = sources
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turn)
}

// History returns all turns, oldest first.
func (m *Memory) History() []models.ConversationTurn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ConversationTurn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Clear removes every turn.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
}

// Len returns the number of turns.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}
