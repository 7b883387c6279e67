package memory

import (
	"context"
	"sync"

	"cashbook/internal/kv"
)

// Store keeps values in process memory. Values do not survive a restart.
type Store struct {
	mu     sync.Mutex
	values map[string]string
}

var _ kv.Store = (*Store)(nil)

func New() *Store {
	return &Store{values: make(map[string]string)}
}

// NewSeeded returns a store prefilled with values, used by tests and demos.
func NewSeeded(values map[string]string) *Store {
	s := New()
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) (*kv.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	return &kv.Record{Value: v}, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}
