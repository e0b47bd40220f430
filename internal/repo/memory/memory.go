package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/uptimewatch/internal/repo"
)

// Store keeps documents in process memory. Used by tests and dry runs.
type Store struct {
	mu   sync.RWMutex
	docs map[string][]byte
	puts map[string]int
}

func New() *Store {
	return &Store{
		docs: make(map[string][]byte),
		puts: make(map[string]int),
	}
}

func (m *Store) Get(ctx context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.docs[name]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *Store) Put(ctx context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = append([]byte(nil), data...)
	m.puts[name]++
	return nil
}

// Writes reports how many times name was written.
func (m *Store) Writes(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts[name]
}

func (m *Store) Close() error { return nil }

var _ repo.DocumentStore = (*Store)(nil)
