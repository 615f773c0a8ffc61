// Package memory provides in-process adapters, used as defaults and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/aretw0/pergola/pkg/domain"
	"github.com/aretw0/pergola/pkg/ports"
)

// Store implements ports.RestartStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]domain.Row
	mu   sync.RWMutex
}

// NewStore creates a new in-memory restart store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]domain.Row),
	}
}

// Seed replaces the namespace's rows.
func (s *Store) Seed(ctx context.Context, namespace string, rows []domain.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[namespace] = cloneRows(rows)
	return nil
}

// Append adds rows to the namespace, creating it if needed.
func (s *Store) Append(ctx context.Context, namespace string, rows ...domain.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[namespace] = append(s.data[namespace], cloneRows(rows)...)
	return nil
}

// Rows returns a deep copy of the namespace's rows so callers cannot mutate
// stored state.
func (s *Store) Rows(ctx context.Context, namespace string) ([]domain.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.data[namespace]
	if !ok {
		return nil, ports.ErrNamespaceNotFound
	}
	return cloneRows(rows), nil
}

// Clear removes the namespace.
func (s *Store) Clear(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, namespace)
	return nil
}

func cloneRows(rows []domain.Row) []domain.Row {
	out := make([]domain.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
