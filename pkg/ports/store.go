package ports

import (
	"context"
	"errors"

	"github.com/aretw0/pergola/pkg/domain"
)

// ErrNamespaceNotFound is returned by Rows when the namespace was never
// seeded.
var ErrNamespaceNotFound = errors.New("restart namespace not found")

// RestartStore persists the rows of a Restart DataObject so sample
// evaluations can be reused across steps (and, for durable backends, across
// runs). The store is deliberately dumb row storage: nearest-neighbor
// selection is the runtime's concern, so every backend behaves identically.
type RestartStore interface {
	// Seed replaces the namespace's rows.
	Seed(ctx context.Context, namespace string, rows []domain.Row) error

	// Append adds rows to an existing (or new) namespace.
	Append(ctx context.Context, namespace string, rows ...domain.Row) error

	// Rows returns all rows in the namespace. Returns ErrNamespaceNotFound
	// if the namespace was never seeded or appended to.
	Rows(ctx context.Context, namespace string) ([]domain.Row, error)

	// Clear removes the namespace.
	Clear(ctx context.Context, namespace string) error
}
