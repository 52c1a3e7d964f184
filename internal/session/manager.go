package session

import (
	"sync"

	"github.com/google/uuid"
)

// Factory builds a new session for the given id.
type Factory func(id string) *Session

// Manager owns all live sessions. Sessions are fully independent: nothing
// is shared between them, so they run in parallel without coordination.
type Manager struct {
	factory Factory

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty manager.
func NewManager(factory Factory) *Manager {
	return &Manager{
		factory:  factory,
		sessions: make(map[string]*Session),
	}
}

// Create registers and returns a new session.
func (m *Manager) Create() *Session {
	s := m.factory(uuid.NewString())
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s
}

// Get looks up a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove tears down and forgets a session. Returns false if unknown.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	_ = s.Close()
	return true
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		_ = s.Close()
	}
}
