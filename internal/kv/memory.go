package kv

import (
	"context"
	"slices"
	"sync"
)

type MemoryStore struct {
	mutex  sync.RWMutex
	values map[string][]byte
	failErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.failErr != nil {
		return nil, false, s.failErr
	}
	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(value), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.values[key] = slices.Clone(value)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	delete(s.values, key)
	return nil
}

func (s *MemoryStore) Keys() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// FailWith makes every following call return err until called with nil.
func (s *MemoryStore) FailWith(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failErr = err
}
