package session

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = eris.New("session: not found")

// Manager keeps the live sessions in memory.
type Manager struct {
	deps Deps
	ttl  time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager. Sessions idle for longer than ttl are dropped
// when new sessions are created; ttl <= 0 keeps them until deleted.
func NewManager(deps Deps, ttl time.Duration) *Manager {
	return &Manager{deps: deps, ttl: ttl, sessions: make(map[string]*Session)}
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	m.Sweep()
	s := New(m.deps)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	zap.L().Info("session created", zap.String("session", s.ID))
	return s
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete resets and removes the session with id.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.Reset()
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes idle sessions and returns how many were dropped.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-m.ttl)

	m.mu.RLock()
	candidates := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		candidates = append(candidates, s)
	}
	m.mu.RUnlock()

	var expired []*Session
	for _, s := range candidates {
		if s.LastUsed().Before(cutoff) {
			expired = append(expired, s)
		}
	}

	m.mu.Lock()
	for _, s := range expired {
		delete(m.sessions, s.ID)
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Reset()
	}
	if len(expired) > 0 {
		zap.L().Info("idle sessions dropped", zap.Int("count", len(expired)))
	}
	return len(expired)
}
