package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepStart  EventType = "step_start"
	EventStepEnd    EventType = "step_end"
	EventSampleDone EventType = "sample_done"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// StepEvent marks entry to or exit from a step.
type StepEvent struct {
	EventBase
	Step     string        `json:"step"`
	StepKind StepKind      `json:"step_kind"`
	Duration time.Duration `json:"duration,omitempty"` // step_end only
	Err      error         `json:"-"`
}

// SampleStatus classifies a single sample evaluation outcome.
type SampleStatus string

const (
	SamplePassed SampleStatus = "passed"
	SampleFailed SampleStatus = "failed"
	// SampleCached means the evaluation was skipped because a restart row
	// within tolerance supplied the outputs.
	SampleCached SampleStatus = "cached"
)

// SampleEvent reports one completed sample evaluation.
type SampleEvent struct {
	EventBase
	Step   string       `json:"step"`
	Model  string       `json:"model"`
	Status SampleStatus `json:"status"`
	Inputs Row          `json:"inputs,omitempty"`
	Err    error        `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability. Any hook may be
// nil. Hooks are invoked synchronously on the engine's goroutines and must
// not block.
type LifecycleHooks struct {
	OnStepStart  func(context.Context, *StepEvent)
	OnStepEnd    func(context.Context, *StepEvent)
	OnSampleDone func(context.Context, *SampleEvent)
}
