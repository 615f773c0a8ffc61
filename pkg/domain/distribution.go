package domain

// DistributionKind is the closed set of sampling laws the interpreter accepts.
// Variant selection happens at load time; an unknown law is a load error, not
// a runtime dispatch failure.
type DistributionKind string

const (
	DistUniform            DistributionKind = "Uniform"
	DistNormal             DistributionKind = "Normal"
	DistCategorical        DistributionKind = "Categorical"
	DistMultivariateNormal DistributionKind = "MultivariateNormal"
)

// Distribution is an immutable sampling law. Only the fields relevant to its
// Kind are populated.
type Distribution struct {
	Name string
	Kind DistributionKind

	// Uniform
	LowerBound float64
	UpperBound float64

	// Normal
	Mean  float64
	Sigma float64

	// Categorical: discrete states with (optionally unnormalized) weights.
	States  []float64
	Weights []float64

	// MultivariateNormal: a joint law over len(Means) axes. Variables bound
	// to it via a `dim` attribute are drawn as one correlated vector.
	Means      []float64
	Covariance [][]float64
}

// Dim reports the number of axes the distribution spans. Scalar laws are 1.
func (d *Distribution) Dim() int {
	if d.Kind == DistMultivariateNormal {
		return len(d.Means)
	}
	return 1
}
