package session

import "sync"

// Manager is the explicit keyed store session_id -> Context. Contexts are
// created on a session's first turn and dropped on teardown; they are never
// shared across sessions.
type Manager struct {
	mu       sync.Mutex
	maxItems int
	contexts map[string]*Context
}

func NewManager(maxItems int) *Manager {
	return &Manager{
		maxItems: maxItems,
		contexts: make(map[string]*Context),
	}
}

// Get returns the session's context, creating it on first use.
func (m *Manager) Get(sessionID string) *Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contexts[sessionID]
	if !ok {
		c = newContext(sessionID, m.maxItems)
		m.contexts[sessionID] = c
	}
	return c
}

// Peek returns the context without creating one.
func (m *Manager) Peek(sessionID string) (*Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contexts[sessionID]
	return c, ok
}

// Drop clears a session's memory on teardown.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.contexts, sessionID)
}

// Sessions lists the currently live session IDs.
func (m *Manager) Sessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.contexts))
	for id := range m.contexts {
		out = append(out, id)
	}
	return out
}
