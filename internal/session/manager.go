// Package session keeps one pagination controller per session key.
package session

import (
	"sync"
	"time"

	"github.com/vadimtrunov/CriticsPicks/internal/picks"
)

// Factory builds the controller for a new session.
type Factory func() *picks.Controller

type entry struct {
	ctrl     *picks.Controller
	lastSeen time.Time
}

// Manager maps session keys (chat user IDs, cookie values) to controllers.
type Manager[K comparable] struct {
	factory Factory
	now     func() time.Time

	mu       sync.Mutex
	sessions map[K]*entry
}

// NewManager creates an empty Manager.
func NewManager[K comparable](factory Factory) *Manager[K] {
	return &Manager[K]{
		factory:  factory,
		now:      time.Now,
		sessions: make(map[K]*entry),
	}
}

// Get returns the controller for key, creating it on first use.
// If the factory returns nil, nothing is stored so the next call can retry.
func (m *Manager[K]) Get(key K) *picks.Controller {
	m.mu.Lock()
	if e, ok := m.sessions[key]; ok {
		e.lastSeen = m.now()
		m.mu.Unlock()
		return e.ctrl
	}
	m.mu.Unlock()

	// Call factory without holding the lock to avoid blocking other sessions.
	ctrl := m.factory()
	if ctrl == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Double-check: another goroutine may have created the session.
	if existing, ok := m.sessions[key]; ok {
		existing.lastSeen = m.now()
		return existing.ctrl
	}
	m.sessions[key] = &entry{ctrl: ctrl, lastSeen: m.now()}
	return ctrl
}

// Lookup returns the controller for key without creating one.
func (m *Manager[K]) Lookup(key K) (*picks.Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[key]
	if !ok {
		return nil, false
	}
	e.lastSeen = m.now()
	return e.ctrl, true
}

// Reset drops a session so the next Get starts again at the first page.
func (m *Manager[K]) Reset(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
}

// Prune removes sessions idle for longer than idle and returns how many were removed.
// A non-positive idle keeps everything.
func (m *Manager[K]) Prune(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (m *Manager[K]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
