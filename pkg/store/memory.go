package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store with realtime watcher fan-out.
// It backs tests and the development server.
type MemoryStore struct {
	mu       sync.Mutex
	grads    map[string]*Graduation
	slugs    map[string]string
	watchers map[string]map[uint64]UpdateFunc
	nextID   uint64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		grads:    make(map[string]*Graduation),
		slugs:    make(map[string]string),
		watchers: make(map[string]map[uint64]UpdateFunc),
	}
}

// GetByID implements Store.
func (m *MemoryStore) GetByID(_ context.Context, id string) (*Graduation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.grads[id].clone(), nil
}

// GetBySlug implements Store.
func (m *MemoryStore) GetBySlug(_ context.Context, slug string) (*Graduation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.slugs[slug]
	if !ok {
		return nil, nil
	}
	return m.grads[id].clone(), nil
}

// OnUpdate implements Store. The callback fires synchronously during
// registration with the current state (nil if the graduation is absent),
// then again on every Put or Delete for the same id.
func (m *MemoryStore) OnUpdate(id string, fn UpdateFunc) func() {
	m.mu.Lock()
	m.nextID++
	watchID := m.nextID
	ws, ok := m.watchers[id]
	if !ok {
		ws = make(map[uint64]UpdateFunc)
		m.watchers[id] = ws
	}
	ws[watchID] = fn
	current := m.grads[id].clone()
	m.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if ws, ok := m.watchers[id]; ok {
				delete(ws, watchID)
				if len(ws) == 0 {
					delete(m.watchers, id)
				}
			}
		})
	}
}

// Students implements Store. A missing graduation yields an empty list.
func (m *MemoryStore) Students(_ context.Context, gradID string) ([]Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.grads[gradID]
	if g == nil {
		return nil, nil
	}
	return append([]Student(nil), g.Students...), nil
}

// Put stores a graduation and notifies its watchers.
func (m *MemoryStore) Put(g *Graduation) {
	m.mu.Lock()
	if prev := m.grads[g.ID]; prev != nil && prev.Slug != "" {
		delete(m.slugs, prev.Slug)
	}
	m.grads[g.ID] = g.clone()
	if g.Slug != "" {
		m.slugs[g.Slug] = g.ID
	}
	fns, snapshot := m.watchersLocked(g.ID)
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot.clone())
	}
}

// Delete removes a graduation and notifies its watchers with nil.
func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	if prev := m.grads[id]; prev != nil && prev.Slug != "" {
		delete(m.slugs, prev.Slug)
	}
	delete(m.grads, id)
	fns, _ := m.watchersLocked(id)
	m.mu.Unlock()

	for _, fn := range fns {
		fn(nil)
	}
}

// watchersLocked snapshots the watcher list and current state for id.
// Callbacks run outside the lock so they may re-enter the store.
func (m *MemoryStore) watchersLocked(id string) ([]UpdateFunc, *Graduation) {
	ws := m.watchers[id]
	fns := make([]UpdateFunc, 0, len(ws))
	for _, fn := range ws {
		fns = append(fns, fn)
	}
	return fns, m.grads[id]
}
