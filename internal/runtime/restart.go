package runtime

import (
	"context"
	"errors"
	"math"

	"github.com/aretw0/pergola/pkg/domain"
	"github.com/aretw0/pergola/pkg/ports"
)

// restartCache implements the tolerance-based memoization policy of a
// Restart DataObject: before a model evaluation, a prior point within
// tolerance of the new sample reuses its outputs instead of re-running.
//
// Distance is measured in input space normalized per dimension by the cached
// rows' span, so tolerances stay meaningful across differently scaled
// variables. The nearest row wins; ties keep the earliest row.
type restartCache struct {
	inputs    []string
	tolerance float64
	metric    string
	rows      []domain.Row
	scale     map[string]float64
}

// newRestartCache snapshots the store namespace, seeding it from the Restart
// DataObject only when the namespace does not exist yet. Rows a durable
// backend persisted under an earlier invocation of the same run ID are kept,
// so cached evaluations survive process restarts.
func newRestartCache(ctx context.Context, store ports.RestartStore, namespace string, source *domain.DataObject, inputs []string, tolerance float64, metric string) (*restartCache, error) {
	rows, err := store.Rows(ctx, namespace)
	if errors.Is(err, ports.ErrNamespaceNotFound) {
		if err := store.Seed(ctx, namespace, source.Rows()); err != nil {
			return nil, err
		}
		rows, err = store.Rows(ctx, namespace)
	}
	if err != nil {
		return nil, err
	}

	scale := make(map[string]float64, len(inputs))
	for _, v := range inputs {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, r := range rows {
			lo = math.Min(lo, r[v])
			hi = math.Max(hi, r[v])
		}
		if span := hi - lo; span > 0 {
			scale[v] = span
		} else {
			scale[v] = 1
		}
	}

	return &restartCache{
		inputs:    inputs,
		tolerance: tolerance,
		metric:    metric,
		rows:      rows,
		scale:     scale,
	}, nil
}

// lookup returns the cached row nearest to point, if it falls within
// tolerance.
func (c *restartCache) lookup(point domain.Row) (domain.Row, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, r := range c.rows {
		d := c.distance(point, r)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 || bestDist > c.tolerance {
		return nil, false
	}
	return c.rows[best], true
}

func (c *restartCache) distance(a, b domain.Row) float64 {
	switch c.metric {
	case "manhattan":
		d := 0.0
		for _, v := range c.inputs {
			d += math.Abs(a[v]-b[v]) / c.scale[v]
		}
		return d
	default: // euclidean
		d := 0.0
		for _, v := range c.inputs {
			diff := (a[v] - b[v]) / c.scale[v]
			d += diff * diff
		}
		return math.Sqrt(d)
	}
}
