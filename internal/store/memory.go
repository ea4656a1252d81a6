package store

import (
	"context"
	"maps"
	"sync"
)

// Memory is an in-process Store for tests.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]string

	// Commits counts successful commits that wrote at least one key.
	Commits int

	// Unavailable makes Open fail with ErrStoreUnavailable.
	Unavailable bool
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: map[string]map[string]string{}}
}

// Open copies the namespace into a new handle.
func (m *Memory) Open(ctx context.Context, namespace string, mode Mode) (*Prefs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return nil, ErrStoreUnavailable
	}
	return newPrefs(ctx, namespace, mode, maps.Clone(m.data[namespace]), m.commit), nil
}

func (m *Memory) commit(_ context.Context, namespace string, pending map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.data[namespace]
	if !ok {
		ns = map[string]string{}
		m.data[namespace] = ns
	}
	maps.Copy(ns, pending)
	m.Commits++
	return nil
}

// Get returns the raw stored value.
func (m *Memory) Get(namespace, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[namespace][key]
	return v, ok
}
