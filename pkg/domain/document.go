package domain

// RunInfo is the singleton settings block of a workflow document.
type RunInfo struct {
	WorkingDir       string   `mapstructure:"WorkingDir"`
	Sequence         []string `mapstructure:"-"`
	BatchSize        int      `mapstructure:"batchSize"`
	InternalParallel bool     `mapstructure:"internalParallel"`

	// Scheduler hints, passed through opaquely.
	JobName      string `mapstructure:"JobName"`
	ExpectedTime string `mapstructure:"expectedTime"`
}

// FileSpec names an external file, resolved relative to RunInfo.WorkingDir
// unless absolute.
type FileSpec struct {
	Name string
	Path string
	Type string
}

// VariableGroup is a named set of variable names, usable anywhere a variable
// list is expected. Groups are macro-expanded at load time and are not
// runtime entities.
type VariableGroup struct {
	Name      string
	Variables []string
}

// Document is the name-indexed registry built by a single load phase. It is
// read-only after load and reference resolution complete, except for
// DataObject contents and ROM trained state.
type Document struct {
	RunInfo RunInfo

	Files          map[string]*FileSpec
	Distributions  map[string]*Distribution
	Samplers       map[string]*SamplerSpec
	Models         map[string]*ModelSpec
	DataObjects    map[string]*DataObjectSpec
	OutStreams     map[string]*OutStreamSpec
	VariableGroups map[string]*VariableGroup
	Steps          map[string]*StepSpec

	// StepOrder preserves declaration order for introspection tooling.
	StepOrder []string
}

// NewDocument returns an empty registry with all collections initialized.
func NewDocument() *Document {
	return &Document{
		RunInfo:        RunInfo{BatchSize: 1},
		Files:          make(map[string]*FileSpec),
		Distributions:  make(map[string]*Distribution),
		Samplers:       make(map[string]*SamplerSpec),
		Models:         make(map[string]*ModelSpec),
		DataObjects:    make(map[string]*DataObjectSpec),
		OutStreams:     make(map[string]*OutStreamSpec),
		VariableGroups: make(map[string]*VariableGroup),
		Steps:          make(map[string]*StepSpec),
	}
}
