package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pergola/pkg/domain"
)

// RunRestartStoreContract runs a suite of tests to verify that a RestartStore
// implementation adheres to the defined interface contract. Adapters call it
// from their own test files so every backend is held to identical semantics.
func RunRestartStoreContract(t *testing.T, store RestartStore) {
	ctx := context.Background()
	ns := "contract-" + time.Now().Format("20060102150405")

	t.Run("Rows Before Seed", func(t *testing.T) {
		_, err := store.Rows(ctx, ns+"-missing")
		assert.ErrorIs(t, err, ErrNamespaceNotFound)
	})

	t.Run("Seed and Rows", func(t *testing.T) {
		seed := []domain.Row{
			{"x": 0.1, "y": 1.0, "ans": 2.5},
			{"x": 0.7, "y": -1.0, "ans": 0.5},
		}
		require.NoError(t, store.Seed(ctx, ns, seed))

		rows, err := store.Rows(ctx, ns)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.InDelta(t, 2.5, rows[0]["ans"], 1e-12)
	})

	t.Run("Seed Replaces", func(t *testing.T) {
		require.NoError(t, store.Seed(ctx, ns, []domain.Row{{"x": 9.0, "ans": 9.0}}))
		rows, err := store.Rows(ctx, ns)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.InDelta(t, 9.0, rows[0]["x"], 1e-12)
	})

	t.Run("Append", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, ns, domain.Row{"x": 3.0, "ans": 6.0}))
		rows, err := store.Rows(ctx, ns)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("Rows Are Copies", func(t *testing.T) {
		rows, err := store.Rows(ctx, ns)
		require.NoError(t, err)
		rows[0]["x"] = -999
		again, err := store.Rows(ctx, ns)
		require.NoError(t, err)
		assert.NotEqual(t, -999.0, again[0]["x"])
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx, ns))
		_, err := store.Rows(ctx, ns)
		assert.ErrorIs(t, err, ErrNamespaceNotFound)
	})
}
