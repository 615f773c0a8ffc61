// Package redis provides a Redis-backed restart store, so cached sample
// evaluations survive process restarts and can be shared between runners.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/pergola/pkg/domain"
	"github.com/aretw0/pergola/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

const maxTxRetries = 10

// Store implements ports.RestartStore using Redis. Each namespace is one key
// holding the JSON-encoded row slice; appends go through an optimistic WATCH
// transaction so concurrent writers never lose rows.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for restart namespaces.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for restart namespaces.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "pergola:restart:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(namespace string) string {
	return s.prefix + namespace
}

// Seed replaces the namespace's rows.
func (s *Store) Seed(ctx context.Context, namespace string, rows []domain.Row) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}
	if err := s.client.Set(ctx, s.key(namespace), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to seed namespace %q: %w", namespace, err)
	}
	return nil
}

// Append adds rows to the namespace, creating it if needed.
func (s *Store) Append(ctx context.Context, namespace string, rows ...domain.Row) error {
	key := s.key(namespace)

	txf := func(tx *backend.Tx) error {
		existing, err := tx.Get(ctx, key).Result()
		var all []domain.Row
		switch {
		case err == backend.Nil:
			// namespace does not exist yet
		case err != nil:
			return err
		default:
			if err := json.Unmarshal([]byte(existing), &all); err != nil {
				return fmt.Errorf("failed to unmarshal rows: %w", err)
			}
		}

		all = append(all, rows...)
		data, err := json.Marshal(all)
		if err != nil {
			return fmt.Errorf("failed to marshal rows: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if err == backend.TxFailedErr {
			continue
		}
		return fmt.Errorf("failed to append to namespace %q: %w", namespace, err)
	}
	return fmt.Errorf("failed to append to namespace %q: too many transaction conflicts", namespace)
}

// Rows returns all rows in the namespace.
func (s *Store) Rows(ctx context.Context, namespace string) ([]domain.Row, error) {
	val, err := s.client.Get(ctx, s.key(namespace)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, ports.ErrNamespaceNotFound
		}
		return nil, fmt.Errorf("failed to read namespace %q: %w", namespace, err)
	}

	var rows []domain.Row
	if err := json.Unmarshal([]byte(val), &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rows: %w", err)
	}
	return rows, nil
}

// Clear removes the namespace.
func (s *Store) Clear(ctx context.Context, namespace string) error {
	if err := s.client.Del(ctx, s.key(namespace)).Err(); err != nil {
		return fmt.Errorf("failed to clear namespace %q: %w", namespace, err)
	}
	return nil
}
