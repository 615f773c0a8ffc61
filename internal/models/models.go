// Package models builds runtime model instances from declared specs.
//
// One instance is built per declared model and shared by every step that
// references it, which is what lets a ROM trained by one step serve
// evaluations in a later one.
package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/pergola/pkg/domain"
)

// Evaluator evaluates one sample: input coordinates in, produced outputs out.
// Implementations must be safe for concurrent Evaluate calls, since a step's
// in-flight samples run under a worker pool.
type Evaluator interface {
	Evaluate(ctx context.Context, inputs domain.Row) (domain.Row, error)
}

// HistoryEvaluator is implemented by models whose evaluations yield a full
// time series in addition to the final state. The Row carries the last
// record; the History carries every record as per-variable series.
type HistoryEvaluator interface {
	EvaluateHistory(ctx context.Context, inputs domain.Row) (domain.Row, domain.History, error)
}

// Trainable is implemented by models with a trained/untrained lifecycle.
type Trainable interface {
	Train(rows []domain.Row) error
	Trained() bool
}

// PostProcessor consumes a DataObject's rows wholesale and produces derived
// rows.
type PostProcessor interface {
	Process(ctx context.Context, rows []domain.Row) ([]domain.Row, error)
}

// FatalError marks a model failure as unrecoverable for the whole step.
// Plain errors are scoped to the failing sample; a FatalError halts the run.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// Fatalf wraps a formatted error as fatal.
func Fatalf(format string, args ...any) error {
	return &FatalError{Err: fmt.Errorf(format, args...)}
}

// IsFatal reports whether err carries a fatal marker anywhere in its chain.
func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}

// Options carries run context into model construction.
type Options struct {
	// WorkingDir prefixes relative file references and hosts per-sample
	// scratch directories for Code models.
	WorkingDir string

	// InternalParallel signals that the model admits intra-sample parallel
	// evaluation. It is a distinct concurrency axis from inter-sample
	// batching and is passed through to external codes.
	InternalParallel bool

	// Files is the document's file registry, consulted by Code models.
	Files map[string]*domain.FileSpec
}

// Build constructs the runtime instance for an evaluable model spec.
func Build(spec *domain.ModelSpec, opts Options) (Evaluator, error) {
	switch spec.Kind {
	case domain.ModelExternal:
		return newExternal(spec)
	case domain.ModelCode:
		return newCode(spec, opts)
	case domain.ModelROM:
		return newROM(spec)
	case domain.ModelPostProcessor:
		return nil, fmt.Errorf("model %q: a PostProcessor is not sample-evaluable", spec.Name)
	default:
		return nil, fmt.Errorf("model %q: unknown class %q", spec.Name, spec.Kind)
	}
}

// BuildPostProcessor constructs the runtime instance for a PostProcessor
// spec. SubType selects the variant; the set is closed here so bad subtypes
// fail before execution.
func BuildPostProcessor(spec *domain.ModelSpec) (PostProcessor, error) {
	if spec.Kind != domain.ModelPostProcessor {
		return nil, fmt.Errorf("model %q is not a PostProcessor", spec.Name)
	}
	switch spec.SubType {
	case "", "BasicStatistics":
		return &basicStatistics{variables: spec.Variables}, nil
	default:
		return nil, fmt.Errorf("model %q: unknown PostProcessor subType %q", spec.Name, spec.SubType)
	}
}
