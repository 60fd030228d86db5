package storage

import (
	"context"
	"maps"
	"slices"
	"sync"
)

var (
	_ Durable     = (*MemoryStore)(nil)
	_ ObjectStore = (*MemoryStore)(nil)
)

// MemoryStore is an in-memory Durable and ObjectStore
type MemoryStore struct {
	mu      sync.RWMutex
	values  map[string]string
	objects map[string]Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[string]string),
		objects: make(map[string]Object),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Keys returns the stored keys in sorted order
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.values))
}

func (m *MemoryStore) PutObject(_ context.Context, id string, obj Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj.Data = slices.Clone(obj.Data)
	obj.Meta = maps.Clone(obj.Meta)
	m.objects[id] = obj
	return nil
}

func (m *MemoryStore) GetObject(_ context.Context, id string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[id]
	if !ok {
		return nil, ErrNotFound
	}
	obj.Data = slices.Clone(obj.Data)
	obj.Meta = maps.Clone(obj.Meta)
	return &obj, nil
}

func (m *MemoryStore) DeleteObject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, id)
	return nil
}

// ObjectCount reports how many shared files are stored
func (m *MemoryStore) ObjectCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

var _ Ephemeral = (*TabStore)(nil)

// TabStore is the per-tab ephemeral storage, keyed by tab identifier
type TabStore struct {
	mu   sync.Mutex
	tabs map[string]map[string]string
}

func NewTabStore() *TabStore {
	return &TabStore{tabs: make(map[string]map[string]string)}
}

func (t *TabStore) Get(tabID, key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.tabs[tabID][key]
	return v, ok
}

func (t *TabStore) Set(tabID, key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.tabs[tabID]; !ok {
		t.tabs[tabID] = make(map[string]string)
	}
	t.tabs[tabID][key] = value
}

func (t *TabStore) Delete(tabID, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tab, ok := t.tabs[tabID]
	if !ok {
		return
	}
	delete(tab, key)

	// Clean up empty tab map
	if len(tab) == 0 {
		delete(t.tabs, tabID)
	}
}
