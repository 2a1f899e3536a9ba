package timeline

import "sync"

// Manager hands out one Editor per project. The editor's own lock serializes
// mutations within a timeline; concurrent requests for different projects
// proceed independently.
type Manager struct {
	mu      sync.Mutex
	editors map[string]*Editor
}

func NewManager() *Manager {
	return &Manager{editors: make(map[string]*Editor)}
}

// Editor returns the editor for projectID, creating it on first use.
func (m *Manager) Editor(projectID string) *Editor {
	m.mu.Lock()
	defer m.mu.Unlock()
	ed, ok := m.editors[projectID]
	if !ok {
		ed = NewEditor(projectID)
		m.editors[projectID] = ed
	}
	return ed
}

// Drop discards the in-memory editor for projectID, if any.
func (m *Manager) Drop(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.editors, projectID)
}
