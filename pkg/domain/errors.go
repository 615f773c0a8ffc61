package domain

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Typed errors below unwrap to one of these so callers can
// match with errors.Is without knowing the concrete type.
var (
	ErrValidation          = errors.New("document validation failed")
	ErrUnresolvedReference = errors.New("unresolved reference")
	ErrSequence            = errors.New("invalid sequence")
	ErrModelEvaluation     = errors.New("model evaluation failed")
	ErrFatalStep           = errors.New("fatal step failure")
)

// DuplicateNameError reports two entities sharing a name within one
// collection.
type DuplicateNameError struct {
	Collection Collection
	Name       string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate name %q in collection %s", e.Name, e.Collection)
}

func (e *DuplicateNameError) Unwrap() error { return ErrValidation }

// UnknownCollectionError reports an unrecognized top-level tag that is not in
// the ignorable set.
type UnknownCollectionError struct {
	Tag string
}

func (e *UnknownCollectionError) Error() string {
	return fmt.Sprintf("unknown top-level collection <%s>", e.Tag)
}

func (e *UnknownCollectionError) Unwrap() error { return ErrValidation }

// UnresolvedReferenceError names the step, slot and target of a reference
// that does not resolve against its collection's registry.
type UnresolvedReferenceError struct {
	Step string
	Slot string
	Ref  Reference
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("step %q: %s references unknown entity %s", e.Step, e.Slot, e.Ref)
}

func (e *UnresolvedReferenceError) Unwrap() error { return ErrUnresolvedReference }

// SequenceError reports a malformed RunInfo.Sequence entry.
type SequenceError struct {
	Entry  string
	Reason string
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("sequence entry %q: %s", e.Entry, e.Reason)
}

func (e *SequenceError) Unwrap() error { return ErrSequence }

// ModelEvaluationError scopes a failure to a single sample. It is recorded
// against the sample and does not halt the batch unless the model signals a
// fatal condition.
type ModelEvaluationError struct {
	Step   string
	Model  string
	Inputs Row
	Err    error
}

func (e *ModelEvaluationError) Error() string {
	return fmt.Sprintf("step %q: model %q failed at %v: %v", e.Step, e.Model, e.Inputs, e.Err)
}

func (e *ModelEvaluationError) Unwrap() error { return ErrModelEvaluation }

// FatalStepError halts the run at the failing step. DataObjects populated by
// already-completed steps are left intact; there is no rollback.
type FatalStepError struct {
	Step string
	Err  error
}

func (e *FatalStepError) Error() string {
	return fmt.Sprintf("step %q failed fatally: %v", e.Step, e.Err)
}

func (e *FatalStepError) Unwrap() error { return ErrFatalStep }
