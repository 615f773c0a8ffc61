package domain

import "time"

// SampleFailure records a recoverable per-sample failure: the failing
// sample's input coordinates and the underlying cause.
type SampleFailure struct {
	Inputs Row
	Cause  string
}

// StepResult is the outcome of one executed step.
type StepResult struct {
	Step     string
	Kind     StepKind
	Passed   int
	Failed   int
	Cached   int
	Failures []SampleFailure
	Duration time.Duration
}

// RunResult aggregates the outcome of a full run.
type RunResult struct {
	RunID    string
	Steps    []StepResult
	Duration time.Duration

	// Halted is set when a fatal step error terminated the run early.
	Halted bool
}

// Totals sums sample counts across steps.
func (r *RunResult) Totals() (passed, failed, cached int) {
	for _, s := range r.Steps {
		passed += s.Passed
		failed += s.Failed
		cached += s.Cached
	}
	return passed, failed, cached
}
