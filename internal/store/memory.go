package store

import (
	"context"
	"sort"
	"sync"
)

type memoryDocs struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func newMemoryDocs() *memoryDocs {
	return &memoryDocs{docs: map[string][]byte{}}
}

// NewMemoryBackend returns a process-local store, used for tests and demos.
func NewMemoryBackend() Backend {
	return &docBackend{docs: newMemoryDocs()}
}

func (m *memoryDocs) load(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.docs[name]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), b...), nil
}

func (m *memoryDocs) modify(_ context.Context, name string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modifyLocked(name, fn)
}

func (m *memoryDocs) modifyLocked(name string, fn UpdateFunc) error {
	var cur []byte
	if b, ok := m.docs[name]; ok {
		cur = append([]byte(nil), b...)
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	if next == nil {
		delete(m.docs, name)
		return nil
	}
	m.docs[name] = next
	return nil
}

func (m *memoryDocs) names(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.docs))
	for k := range m.docs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memoryDocs) close() error {
	return nil
}
