package models

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/aretw0/pergola/pkg/domain"
)

// rom is a trainable nearest-neighbor surrogate: it memorizes its training
// rows and predicts targets from the closest row in feature space.
//
// The trained state is the one piece of registry state that mutates after
// load. Train takes the write lock; Evaluate takes the read lock, so a ROM
// can never serve evaluations while training is in flight.
type rom struct {
	spec *domain.ModelSpec

	mu      sync.RWMutex
	rows    []domain.Row
	trained bool
}

func newROM(spec *domain.ModelSpec) (*rom, error) {
	switch spec.SubType {
	case "", "NearestNeighbor":
	default:
		return nil, fmt.Errorf("model %q: unknown ROM subType %q", spec.Name, spec.SubType)
	}
	return &rom{spec: spec}, nil
}

func (r *rom) Train(rows []domain.Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(rows) == 0 {
		return fmt.Errorf("model %q: cannot train on an empty DataObject", r.spec.Name)
	}
	required := make([]string, 0, len(r.spec.Features)+len(r.spec.Targets))
	required = append(required, r.spec.Features...)
	required = append(required, r.spec.Targets...)
	for _, row := range rows {
		for _, f := range required {
			if _, ok := row[f]; !ok {
				return fmt.Errorf("model %q: training row missing variable %q", r.spec.Name, f)
			}
		}
	}
	r.rows = rows
	r.trained = true
	return nil
}

func (r *rom) Trained() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trained
}

func (r *rom) Evaluate(ctx context.Context, inputs domain.Row) (domain.Row, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.trained {
		// An untrained surrogate is not a per-sample accident; the step
		// itself is misconfigured.
		return nil, Fatalf("model %q: ROM has not been trained", r.spec.Name)
	}

	best := -1
	bestDist := math.Inf(1)
	for i, row := range r.rows {
		d := 0.0
		for _, f := range r.spec.Features {
			diff := inputs[f] - row[f]
			d += diff * diff
		}
		if d < bestDist {
			bestDist = d
			best = i
		}
	}

	out := domain.Row{}
	for _, t := range r.spec.Targets {
		out[t] = r.rows[best][t]
	}
	return out, nil
}
