package samplers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pergola/pkg/domain"
)

func dists() map[string]*domain.Distribution {
	return map[string]*domain.Distribution{
		"u": {Name: "u", Kind: domain.DistUniform, LowerBound: 0, UpperBound: 1},
		"n": {Name: "n", Kind: domain.DistNormal, Mean: 0, Sigma: 1},
		"mvn": {
			Name:  "mvn",
			Kind:  domain.DistMultivariateNormal,
			Means: []float64{1, 2},
			Covariance: [][]float64{
				{1.0, 0.5},
				{0.5, 1.0},
			},
		},
	}
}

func drain(t *testing.T, s Sampler) []domain.Row {
	t.Helper()
	var out []domain.Row
	for {
		p, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, p)
	}
}

func TestMonteCarlo_DeterministicUnderSeed(t *testing.T) {
	spec := &domain.SamplerSpec{
		Name: "mc",
		Kind: domain.SamplerMonteCarlo,
		Init: domain.SamplerInit{Limit: 8},
		Variables: []domain.SamplerVariable{
			{Name: "x", Distribution: "u"},
			{Name: "y", Distribution: "n"},
		},
	}

	a, err := New(spec, dists(), 42)
	require.NoError(t, err)
	b, err := New(spec, dists(), 42)
	require.NoError(t, err)

	rowsA, rowsB := drain(t, a), drain(t, b)
	require.Len(t, rowsA, 8)
	assert.Equal(t, rowsA, rowsB)

	// a different seed yields a different stream
	c, err := New(spec, dists(), 43)
	require.NoError(t, err)
	assert.NotEqual(t, rowsA, drain(t, c))
}

func TestMonteCarlo_RequiresLimit(t *testing.T) {
	spec := &domain.SamplerSpec{
		Name:      "mc",
		Kind:      domain.SamplerMonteCarlo,
		Variables: []domain.SamplerVariable{{Name: "x", Distribution: "u"}},
	}
	_, err := New(spec, dists(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestMonteCarlo_JointDrawSharedAcrossDims(t *testing.T) {
	spec := &domain.SamplerSpec{
		Name: "mc",
		Kind: domain.SamplerMonteCarlo,
		Init: domain.SamplerInit{Limit: 50},
		Variables: []domain.SamplerVariable{
			{Name: "a", Distribution: "mvn", Dim: 1},
			{Name: "b", Distribution: "mvn", Dim: 2},
		},
	}
	s, err := New(spec, dists(), 7)
	require.NoError(t, err)

	rows := drain(t, s)
	require.Len(t, rows, 50)
	for _, row := range rows {
		require.Contains(t, row, "a")
		require.Contains(t, row, "b")
	}
}

func TestMonteCarlo_MultiDimWithoutDim(t *testing.T) {
	spec := &domain.SamplerSpec{
		Name: "mc",
		Kind: domain.SamplerMonteCarlo,
		Init: domain.SamplerInit{Limit: 2},
		Variables: []domain.SamplerVariable{
			{Name: "a", Distribution: "mvn"},
		},
	}
	_, err := New(spec, dists(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dim")
}

func TestGrid_CartesianProduct(t *testing.T) {
	spec := &domain.SamplerSpec{
		Name: "g",
		Kind: domain.SamplerGrid,
		Variables: []domain.SamplerVariable{
			{Name: "x", Grid: []float64{0, 1}},
			{Name: "y", Grid: []float64{10, 20, 30}},
		},
	}
	s, err := New(spec, nil, 0)
	require.NoError(t, err)

	rows := drain(t, s)
	require.Len(t, rows, 6)

	seen := map[[2]float64]bool{}
	for _, r := range rows {
		seen[[2]float64{r["x"], r["y"]}] = true
	}
	assert.Len(t, seen, 6)
	assert.True(t, seen[[2]float64{1, 30}])
}

func TestGrid_LimitCapsWalk(t *testing.T) {
	spec := &domain.SamplerSpec{
		Name: "g",
		Kind: domain.SamplerGrid,
		Init: domain.SamplerInit{Limit: 4},
		Variables: []domain.SamplerVariable{
			{Name: "x", Grid: []float64{0, 1, 2}},
			{Name: "y", Grid: []float64{0, 1, 2}},
		},
	}
	s, err := New(spec, nil, 0)
	require.NoError(t, err)
	assert.Len(t, drain(t, s), 4)
}

func TestStratified_OnePointPerStratum(t *testing.T) {
	spec := &domain.SamplerSpec{
		Name: "lhs",
		Kind: domain.SamplerStratified,
		Init: domain.SamplerInit{Limit: 10},
		Variables: []domain.SamplerVariable{
			{Name: "x", Distribution: "u"},
		},
	}
	s, err := New(spec, dists(), 5)
	require.NoError(t, err)

	rows := drain(t, s)
	require.Len(t, rows, 10)

	// Latin hypercube: exactly one sample falls in each of the 10 strata.
	hit := make([]bool, 10)
	for _, r := range rows {
		stratum := int(r["x"] * 10)
		require.Less(t, stratum, 10)
		assert.False(t, hit[stratum], "stratum %d hit twice", stratum)
		hit[stratum] = true
	}
}

func TestStratified_RejectsNonUniform(t *testing.T) {
	spec := &domain.SamplerSpec{
		Name: "lhs",
		Kind: domain.SamplerStratified,
		Init: domain.SamplerInit{Limit: 4},
		Variables: []domain.SamplerVariable{
			{Name: "x", Distribution: "n"},
		},
	}
	_, err := New(spec, dists(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Uniform")
}
