package models

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/aretw0/pergola/pkg/domain"
)

// basicStatistics reduces a DataObject to one row of per-variable moments:
// mean_<v>, sigma_<v>, min_<v>, max_<v>.
type basicStatistics struct {
	// variables restricts which variables are reduced; empty means every
	// variable present in the rows.
	variables []string
}

func (b *basicStatistics) Process(ctx context.Context, rows []domain.Row) ([]domain.Row, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("basic statistics: no rows to process")
	}

	vars := b.variables
	if len(vars) == 0 {
		seen := map[string]bool{}
		for _, r := range rows {
			for k := range r {
				seen[k] = true
			}
		}
		for k := range seen {
			vars = append(vars, k)
		}
		sort.Strings(vars)
	}

	out := domain.Row{}
	for _, v := range vars {
		n := 0
		sum, min, max := 0.0, math.Inf(1), math.Inf(-1)
		for _, r := range rows {
			x, ok := r[v]
			if !ok {
				continue
			}
			n++
			sum += x
			min = math.Min(min, x)
			max = math.Max(max, x)
		}
		if n == 0 {
			return nil, fmt.Errorf("basic statistics: variable %q absent from all rows", v)
		}
		mean := sum / float64(n)
		ss := 0.0
		for _, r := range rows {
			if x, ok := r[v]; ok {
				ss += (x - mean) * (x - mean)
			}
		}
		sigma := 0.0
		if n > 1 {
			sigma = math.Sqrt(ss / float64(n-1))
		}
		out["mean_"+v] = mean
		out["sigma_"+v] = sigma
		out["min_"+v] = min
		out["max_"+v] = max
	}
	return []domain.Row{out}, nil
}
