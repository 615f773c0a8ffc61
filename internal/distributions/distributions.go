// Package distributions builds sampling sources from declared laws.
//
// The numerical depth here is deliberately shallow: the interpreter only
// needs enough to drive samplers deterministically under a seed, including
// correlated draws for multi-dimensional laws.
package distributions

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/aretw0/pergola/pkg/domain"
)

// Source draws realizations of one distribution. A scalar law returns a
// single element; a multi-dimensional law returns one correlated vector per
// call, never independent per-axis draws.
type Source interface {
	Sample(r *rand.Rand) []float64
	Dim() int
}

// New builds a Source for the given law. The law's kind is a closed
// enumeration fixed at load time, so an unknown kind here is a programming
// error surfaced as a plain error.
func New(d *domain.Distribution) (Source, error) {
	switch d.Kind {
	case domain.DistUniform:
		return &uniform{lo: d.LowerBound, hi: d.UpperBound}, nil
	case domain.DistNormal:
		return &normal{mean: d.Mean, sigma: d.Sigma}, nil
	case domain.DistCategorical:
		return newCategorical(d.States, d.Weights), nil
	case domain.DistMultivariateNormal:
		return newMultivariateNormal(d.Means, d.Covariance)
	default:
		return nil, fmt.Errorf("distribution %q: unsupported kind %q", d.Name, d.Kind)
	}
}

type uniform struct {
	lo, hi float64
}

func (u *uniform) Sample(r *rand.Rand) []float64 {
	return []float64{u.lo + r.Float64()*(u.hi-u.lo)}
}

func (u *uniform) Dim() int { return 1 }

type normal struct {
	mean, sigma float64
}

func (n *normal) Sample(r *rand.Rand) []float64 {
	return []float64{n.mean + n.sigma*r.NormFloat64()}
}

func (n *normal) Dim() int { return 1 }

type categorical struct {
	states []float64
	cdf    []float64
}

func newCategorical(states, weights []float64) *categorical {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	cdf := make([]float64, len(weights))
	acc := 0.0
	for i, w := range weights {
		acc += w / total
		cdf[i] = acc
	}
	return &categorical{states: states, cdf: cdf}
}

func (c *categorical) Sample(r *rand.Rand) []float64 {
	u := r.Float64()
	for i, edge := range c.cdf {
		if u <= edge {
			return []float64{c.states[i]}
		}
	}
	return []float64{c.states[len(c.states)-1]}
}

func (c *categorical) Dim() int { return 1 }

type multivariateNormal struct {
	means []float64
	chol  [][]float64 // lower triangular
}

func newMultivariateNormal(means []float64, cov [][]float64) (*multivariateNormal, error) {
	chol, err := cholesky(cov)
	if err != nil {
		return nil, err
	}
	return &multivariateNormal{means: means, chol: chol}, nil
}

func (m *multivariateNormal) Sample(r *rand.Rand) []float64 {
	n := len(m.means)
	z := make([]float64, n)
	for i := range z {
		z[i] = r.NormFloat64()
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := m.means[i]
		for j := 0; j <= i; j++ {
			v += m.chol[i][j] * z[j]
		}
		out[i] = v
	}
	return out
}

func (m *multivariateNormal) Dim() int { return len(m.means) }

// cholesky computes the lower-triangular factor of a symmetric positive
// definite matrix.
func cholesky(a [][]float64) ([][]float64, error) {
	n := len(a)
	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := a[i][j]
			for k := 0; k < j; k++ {
				sum -= l[i][k] * l[j][k]
			}
			if i == j {
				if sum <= 0 {
					return nil, fmt.Errorf("covariance matrix is not positive definite")
				}
				l[i][j] = math.Sqrt(sum)
			} else {
				l[i][j] = sum / l[j][j]
			}
		}
	}
	return l, nil
}
