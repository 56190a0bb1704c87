package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemStore реализует StateStorage в памяти процесса.
// Используется в тестах и при запуске без Redis.
type MemStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemStore создает новое хранилище в памяти
func NewMemStore() *MemStore {
	return &MemStore{
		values: make(map[string][]byte),
	}
}

func (s *MemStore) Close() error {
	return nil
}

// Get читает значение под ключом и декодирует его в v
func (s *MemStore) Get(ctx context.Context, key string, v any) error {
	s.mu.RLock()
	data, ok := s.values[key]
	s.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}

	return nil
}

// Set сериализует v и сохраняет его под ключом
func (s *MemStore) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}

	s.mu.Lock()
	s.values[key] = data
	s.mu.Unlock()

	return nil
}

// Delete удаляет значение под ключом
func (s *MemStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()

	return nil
}
