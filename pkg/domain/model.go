package domain

// ModelKind is the closed set of model classes.
type ModelKind string

const (
	ModelExternal      ModelKind = "ExternalModel"
	ModelCode          ModelKind = "Code"
	ModelROM           ModelKind = "ROM"
	ModelPostProcessor ModelKind = "PostProcessor"
)

// ModelSpec declares a model and the variable set it reads and writes.
// The declaration itself is immutable; trainable state (for ROMs) lives on the
// runtime instance built from it, so one trained surrogate is shared by
// every step that references the model.
type ModelSpec struct {
	Name    string
	Kind    ModelKind
	SubType string

	// Variables is the full read/write set, after VariableGroup expansion.
	Variables []string

	// ExternalModel: one expression per produced output variable.
	Expressions map[string]string

	// Code: external executable invocation. InputFile names a Files entry
	// used as the input deck template; OutputFile is the CSV the code writes.
	Executable string
	InputFile  string
	OutputFile string
	Arguments  []string

	// ROM: features it is trained on and targets it predicts.
	Features []string
	Targets  []string
}
