package storage

import (
	"context"
	"sync"
)

type memoryCounterStorage struct {
	mu       sync.Mutex
	counters map[string]map[string]int64
}

func NewMemoryCounterStorage() CounterStore {
	return &memoryCounterStorage{
		counters: make(map[string]map[string]int64),
	}
}

func (s *memoryCounterStorage) Increment(ctx context.Context, key, field string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fields, ok := s.counters[key]
	if !ok {
		fields = make(map[string]int64)
		s.counters[key] = fields
	}
	fields[field]++
	return fields[field], nil
}

func (s *memoryCounterStorage) Get(ctx context.Context, key, field string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key][field], nil
}

func (s *memoryCounterStorage) Close() error {
	return nil
}
