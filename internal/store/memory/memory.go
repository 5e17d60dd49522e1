package memory

import "sync"

// Storage is an in-process key/value store. It survives nothing beyond the
// process and is used for tests and the "memory" store type.
type Storage struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewStorage() *Storage { return &Storage{data: make(map[string]string)} }

func (s *Storage) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Storage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *Storage) Close() error { return nil }
