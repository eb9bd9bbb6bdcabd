package registry

import (
	"context"
	"slices"
	"sync"
)

// memoryRegistry keeps ids in handshake order with set semantics.
type memoryRegistry struct {
	mu    sync.RWMutex
	order []string
	index map[string]struct{}
}

func NewMemoryRegistry() Registry {
	return &memoryRegistry{
		index: make(map[string]struct{}),
	}
}

func (r *memoryRegistry) Add(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[id]; ok {
		return nil
	}
	r.index[id] = struct{}{}
	r.order = append(r.order, id)
	return nil
}

func (r *memoryRegistry) Remove(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[id]; !ok {
		return false, nil
	}
	delete(r.index, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return true, nil
}

func (r *memoryRegistry) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.index[id]
	return ok, nil
}

func (r *memoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
