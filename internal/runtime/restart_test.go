package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pergola/internal/adapters/memory"
	"github.com/aretw0/pergola/pkg/domain"
)

func cacheFixture(t *testing.T, tolerance float64, metric string) *restartCache {
	t.Helper()
	source := domain.NewDataObject(domain.DataObjectSpec{
		Name:    "prior",
		Kind:    domain.PointSet,
		Inputs:  []string{"x", "y"},
		Outputs: []string{"ans"},
	})
	require.NoError(t, source.Append(domain.Row{"x": 0.0, "y": 0.0, "ans": 1}))
	require.NoError(t, source.Append(domain.Row{"x": 1.0, "y": 0.0, "ans": 2}))
	require.NoError(t, source.Append(domain.Row{"x": 0.0, "y": 10.0, "ans": 3}))

	cache, err := newRestartCache(context.Background(), memory.NewStore(), "run:prior",
		source, []string{"x", "y"}, tolerance, metric)
	require.NoError(t, err)
	return cache
}

func TestRestartCache_HitWithinTolerance(t *testing.T) {
	cache := cacheFixture(t, 0.05, "euclidean")

	row, ok := cache.lookup(domain.Row{"x": 1.01, "y": 0.1})
	require.True(t, ok)
	assert.InDelta(t, 2.0, row["ans"], 1e-12)

	_, ok = cache.lookup(domain.Row{"x": 0.5, "y": 5.0})
	assert.False(t, ok)
}

func TestRestartCache_SpanNormalization(t *testing.T) {
	// y spans [0,10]; a raw distance of 0.4 in y is only 0.04 normalized,
	// so it lands within tolerance despite dwarfing the x offset.
	cache := cacheFixture(t, 0.05, "euclidean")

	row, ok := cache.lookup(domain.Row{"x": 0.0, "y": 9.6})
	require.True(t, ok)
	assert.InDelta(t, 3.0, row["ans"], 1e-12)
}

func TestRestartCache_TieKeepsEarliestRow(t *testing.T) {
	source := domain.NewDataObject(domain.DataObjectSpec{
		Name:    "prior",
		Kind:    domain.PointSet,
		Inputs:  []string{"x"},
		Outputs: []string{"ans"},
	})
	require.NoError(t, source.Append(domain.Row{"x": 0.0, "ans": 1}))
	require.NoError(t, source.Append(domain.Row{"x": 1.0, "ans": 2}))

	cache, err := newRestartCache(context.Background(), memory.NewStore(), "run:prior",
		source, []string{"x"}, 1.0, "euclidean")
	require.NoError(t, err)

	// exactly between the two rows
	row, ok := cache.lookup(domain.Row{"x": 0.5})
	require.True(t, ok)
	assert.InDelta(t, 1.0, row["ans"], 1e-12)
}

func TestRestartCache_ManhattanMetric(t *testing.T) {
	// (0.03, 0.3) normalizes to (0.03, 0.03): euclidean ~0.042 passes a
	// 0.05 tolerance, manhattan 0.06 does not.
	euclid := cacheFixture(t, 0.05, "euclidean")
	_, ok := euclid.lookup(domain.Row{"x": 0.03, "y": 0.3})
	assert.True(t, ok)

	manhattan := cacheFixture(t, 0.05, "manhattan")
	_, ok = manhattan.lookup(domain.Row{"x": 0.03, "y": 0.3})
	assert.False(t, ok)
}

func TestRestartCache_KeepsPersistedRows(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Seed(ctx, "run:prior", []domain.Row{{"x": 0.5, "ans": 7}}))

	// the in-memory DataObject is empty; the persisted namespace wins
	source := domain.NewDataObject(domain.DataObjectSpec{
		Name: "prior", Kind: domain.PointSet, Inputs: []string{"x"}, Outputs: []string{"ans"},
	})
	cache, err := newRestartCache(ctx, store, "run:prior", source, []string{"x"}, 0.01, "euclidean")
	require.NoError(t, err)

	row, ok := cache.lookup(domain.Row{"x": 0.5})
	require.True(t, ok)
	assert.InDelta(t, 7.0, row["ans"], 1e-12)

	rows, err := store.Rows(ctx, "run:prior")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRestartCache_EmptySourceNeverHits(t *testing.T) {
	source := domain.NewDataObject(domain.DataObjectSpec{
		Name: "prior", Kind: domain.PointSet, Inputs: []string{"x"}, Outputs: []string{"ans"},
	})
	cache, err := newRestartCache(context.Background(), memory.NewStore(), "run:prior",
		source, []string{"x"}, 10, "euclidean")
	require.NoError(t, err)

	_, ok := cache.lookup(domain.Row{"x": 0})
	assert.False(t, ok)
}
