package store

import "sync"

// Registry holds the in-memory scopes shared by every memory adapter opened
// from one factory. It is constructed explicitly and passed by handle; there
// is no process-global store state.
type Registry struct {
	mu     sync.Mutex
	scopes map[string]*memScope
}

type memScope struct {
	order []string
	data  map[string][]byte
}

// NewRegistry creates an empty in-memory scope registry.
func NewRegistry() *Registry {
	return &Registry{scopes: make(map[string]*memScope)}
}

func (r *Registry) scope(name string) *memScope {
	s, ok := r.scopes[name]
	if !ok {
		s = &memScope{data: make(map[string][]byte)}
		r.scopes[name] = s
	}
	return s
}

// memoryAdapter is the single-process backend: an insertion-ordered map per
// scope, guarded by the registry mutex. Intended for tests and single
// instance deployments; multi-process sharing needs the file or mysql
// backend.
type memoryAdapter struct {
	registry *Registry
	scope    string
}

func newMemoryAdapter(r *Registry, scope string) *memoryAdapter {
	return &memoryAdapter{registry: r, scope: scope}
}

func (m *memoryAdapter) Get(key string) ([]byte, bool, error) {
	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()

	v, ok := m.registry.scope(m.scope).data[key]
	return v, ok, nil
}

func (m *memoryAdapter) Set(key string, value []byte) error {
	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()

	m.setLocked(key, value)
	return nil
}

func (m *memoryAdapter) MultiGet(keys []string) (map[string][]byte, error) {
	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()

	s := m.registry.scope(m.scope)
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *memoryAdapter) MultiSet(entries []Entry) error {
	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()

	for _, e := range entries {
		m.setLocked(e.Key, e.Value)
	}
	return nil
}

func (m *memoryAdapter) Delete(keys ...string) error {
	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()

	s := m.registry.scope(m.scope)
	for _, k := range keys {
		if _, ok := s.data[k]; !ok {
			continue
		}
		delete(s.data, k)
		for i, existing := range s.order {
			if existing == k {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (m *memoryAdapter) Keys() ([]string, error) {
	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()

	s := m.registry.scope(m.scope)
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	return keys, nil
}

func (m *memoryAdapter) Clear() error {
	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()

	delete(m.registry.scopes, m.scope)
	return nil
}

func (m *memoryAdapter) setLocked(key string, value []byte) {
	s := m.registry.scope(m.scope)
	if _, ok := s.data[key]; !ok {
		s.order = append(s.order, key)
	}
	s.data[key] = value
}
