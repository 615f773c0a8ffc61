package domain

// SamplerKind selects the point-generation rule of a sampler.
type SamplerKind string

const (
	SamplerMonteCarlo SamplerKind = "MonteCarlo"
	SamplerGrid       SamplerKind = "Grid"
	SamplerStratified SamplerKind = "Stratified"
)

// SamplerVariable binds one input variable to a distribution. A Dim >= 1
// selects an axis of a multi-dimensional distribution; variables sharing the
// same distribution name with distinct dims are drawn jointly as a correlated
// vector. Grid samplers carry explicit grid points instead.
type SamplerVariable struct {
	Name         string
	Distribution string
	Dim          int
	Grid         []float64
}

// SamplerInit is the initialization block of a sampler.
type SamplerInit struct {
	Limit int   `mapstructure:"limit"`
	Seed  int64 `mapstructure:"initialSeed"`
}

// SamplerSpec declares a sampler: its generation rule, its variable bindings,
// and the optional restart cache policy.
//
// Restart names a DataObject whose rows are consulted before each model
// evaluation: a prior point within RestartTolerance of the new sample (by
// per-dimension normalized distance in input space) has its outputs reused
// instead of re-running the model.
type SamplerSpec struct {
	Name      string
	Kind      SamplerKind
	Init      SamplerInit
	Variables []SamplerVariable

	Restart          string
	RestartTolerance float64
	RestartMetric    string // "euclidean" (default) or "manhattan"
}
