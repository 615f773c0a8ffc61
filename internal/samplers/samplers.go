// Package samplers produces points in variable space for a step's model.
//
// A sampler instance is created per step invocation and is exhausted by
// repeated Next calls; the dispatcher pulls points serially, so Next needs
// no internal locking. Seeding is owned by the caller: the engine applies
// the step's re-seeding override without mutating the declared spec.
package samplers

import (
	"fmt"
	"math/rand"

	"github.com/aretw0/pergola/internal/distributions"
	"github.com/aretw0/pergola/pkg/domain"
)

// Sampler generates sample points until its internal rule is exhausted.
type Sampler interface {
	// Next returns the next point, or ok=false when the rule is exhausted.
	Next() (point domain.Row, ok bool)
}

// New builds a sampler instance from its spec, seeded with the given seed.
func New(spec *domain.SamplerSpec, dists map[string]*domain.Distribution, seed int64) (Sampler, error) {
	switch spec.Kind {
	case domain.SamplerMonteCarlo:
		return newMonteCarlo(spec, dists, seed)
	case domain.SamplerGrid:
		return newGrid(spec)
	case domain.SamplerStratified:
		return newStratified(spec, dists, seed)
	default:
		return nil, fmt.Errorf("sampler %q: unsupported kind %q", spec.Name, spec.Kind)
	}
}

// binding maps one distribution draw onto one or more variables. Variables
// bound to a multi-dimensional law by dim attributes share a single joint
// draw per sample.
type binding struct {
	vars []string
	dims []int // 1-based component per variable
	src  distributions.Source
}

func buildBindings(spec *domain.SamplerSpec, dists map[string]*domain.Distribution) ([]binding, error) {
	var out []binding
	joint := map[string]*binding{}

	for _, v := range spec.Variables {
		d, ok := dists[v.Distribution]
		if !ok {
			return nil, fmt.Errorf("sampler %q: variable %q: unknown distribution %q", spec.Name, v.Name, v.Distribution)
		}
		if d.Dim() > 1 {
			if v.Dim < 1 {
				return nil, fmt.Errorf("sampler %q: variable %q binds multi-dimensional distribution %q without a dim attribute",
					spec.Name, v.Name, d.Name)
			}
			b, ok := joint[d.Name]
			if !ok {
				src, err := distributions.New(d)
				if err != nil {
					return nil, err
				}
				b = &binding{src: src}
				joint[d.Name] = b
			}
			b.vars = append(b.vars, v.Name)
			b.dims = append(b.dims, v.Dim)
			continue
		}
		src, err := distributions.New(d)
		if err != nil {
			return nil, err
		}
		out = append(out, binding{vars: []string{v.Name}, dims: []int{1}, src: src})
	}
	for _, b := range joint {
		out = append(out, *b)
	}
	return out, nil
}

type monteCarlo struct {
	bindings []binding
	limit    int
	count    int
	rng      *rand.Rand
}

func newMonteCarlo(spec *domain.SamplerSpec, dists map[string]*domain.Distribution, seed int64) (*monteCarlo, error) {
	if spec.Init.Limit < 1 {
		return nil, fmt.Errorf("sampler %q: MonteCarlo requires samplerInit limit >= 1", spec.Name)
	}
	bindings, err := buildBindings(spec, dists)
	if err != nil {
		return nil, err
	}
	return &monteCarlo{
		bindings: bindings,
		limit:    spec.Init.Limit,
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

func (m *monteCarlo) Next() (domain.Row, bool) {
	if m.count >= m.limit {
		return nil, false
	}
	m.count++
	row := domain.Row{}
	for _, b := range m.bindings {
		vec := b.src.Sample(m.rng)
		for i, name := range b.vars {
			row[name] = vec[b.dims[i]-1]
		}
	}
	return row, true
}

// grid walks the cartesian product of each variable's declared grid points
// in odometer order. A limit, when set, caps the walk.
type grid struct {
	names [][]string
	axes  [][]float64
	idx   []int
	limit int
	count int
	done  bool
}

func newGrid(spec *domain.SamplerSpec) (*grid, error) {
	g := &grid{limit: spec.Init.Limit}
	for _, v := range spec.Variables {
		if len(v.Grid) == 0 {
			return nil, fmt.Errorf("sampler %q: Grid variable %q declares no grid points", spec.Name, v.Name)
		}
		g.names = append(g.names, []string{v.Name})
		g.axes = append(g.axes, v.Grid)
	}
	g.idx = make([]int, len(g.axes))
	return g, nil
}

func (g *grid) Next() (domain.Row, bool) {
	if g.done || (g.limit > 0 && g.count >= g.limit) {
		return nil, false
	}
	row := domain.Row{}
	for i, axis := range g.axes {
		row[g.names[i][0]] = axis[g.idx[i]]
	}
	g.count++

	// advance odometer
	for i := len(g.idx) - 1; i >= 0; i-- {
		g.idx[i]++
		if g.idx[i] < len(g.axes[i]) {
			return row, true
		}
		g.idx[i] = 0
	}
	g.done = true
	return row, true
}

// stratified implements Latin hypercube sampling over uniform laws: each
// variable's range is split into limit strata, the strata are permuted per
// variable, and one point is drawn uniformly within each assigned stratum.
type stratified struct {
	vars  []string
	lo    []float64
	hi    []float64
	perms [][]int
	limit int
	count int
	rng   *rand.Rand
}

func newStratified(spec *domain.SamplerSpec, dists map[string]*domain.Distribution, seed int64) (*stratified, error) {
	if spec.Init.Limit < 1 {
		return nil, fmt.Errorf("sampler %q: Stratified requires samplerInit limit >= 1", spec.Name)
	}
	s := &stratified{limit: spec.Init.Limit, rng: rand.New(rand.NewSource(seed))}
	for _, v := range spec.Variables {
		d, ok := dists[v.Distribution]
		if !ok {
			return nil, fmt.Errorf("sampler %q: variable %q: unknown distribution %q", spec.Name, v.Name, v.Distribution)
		}
		if d.Kind != domain.DistUniform {
			return nil, fmt.Errorf("sampler %q: Stratified supports Uniform laws only, variable %q uses %s",
				spec.Name, v.Name, d.Kind)
		}
		s.vars = append(s.vars, v.Name)
		s.lo = append(s.lo, d.LowerBound)
		s.hi = append(s.hi, d.UpperBound)
		s.perms = append(s.perms, s.rng.Perm(spec.Init.Limit))
	}
	return s, nil
}

func (s *stratified) Next() (domain.Row, bool) {
	if s.count >= s.limit {
		return nil, false
	}
	row := domain.Row{}
	for i, name := range s.vars {
		stratum := s.perms[i][s.count]
		width := (s.hi[i] - s.lo[i]) / float64(s.limit)
		row[name] = s.lo[i] + (float64(stratum)+s.rng.Float64())*width
	}
	s.count++
	return row, true
}
