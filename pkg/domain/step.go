package domain

import "strconv"

// StepKind is the closed set of orchestration step variants.
type StepKind string

const (
	StepMultiRun    StepKind = "MultiRun"
	StepSingleRun   StepKind = "SingleRun"
	StepIOStep      StepKind = "IOStep"
	StepRomTrainer  StepKind = "RomTrainer"
	StepPostProcess StepKind = "PostProcess"
)

// FailurePolicy governs what happens to a step's remaining in-flight sample
// evaluations when one of them fails fatally.
type FailurePolicy string

const (
	// FailureInherit defers to the run-level policy.
	FailureInherit FailurePolicy = ""
	// FailFast cancels remaining in-flight evaluations of the step.
	FailFast FailurePolicy = "fast"
	// FailSoft lets in-flight evaluations drain before the step reports.
	FailSoft FailurePolicy = "soft"
)

// StepSpec declares one orchestrated unit of work: an ordered list of typed
// Input and Output references, plus the Sampler and Model slots the step
// variant requires.
type StepSpec struct {
	Name string
	Kind StepKind

	Inputs  []Reference
	Outputs []Reference
	Sampler *Reference
	Model   *Reference

	// ReSeed, when set, overrides the sampler's configured seed for this
	// step's invocation only. The sampler's stored configuration is not
	// mutated.
	ReSeed *int64

	FailurePolicy FailurePolicy
}

// SlotRef pairs a reference with the slot it occupies. Validation uses it to
// report the offending slot by name.
type SlotRef struct {
	Slot string
	Ref  Reference
}

// SlotRefs enumerates the step's references in declaration order.
func (s *StepSpec) SlotRefs() []SlotRef {
	var out []SlotRef
	for i, r := range s.Inputs {
		out = append(out, SlotRef{Slot: slotName("Input", i, len(s.Inputs)), Ref: r})
	}
	if s.Sampler != nil {
		out = append(out, SlotRef{Slot: "Sampler", Ref: *s.Sampler})
	}
	if s.Model != nil {
		out = append(out, SlotRef{Slot: "Model", Ref: *s.Model})
	}
	for i, r := range s.Outputs {
		out = append(out, SlotRef{Slot: slotName("Output", i, len(s.Outputs)), Ref: r})
	}
	return out
}

func slotName(base string, i, n int) string {
	if n == 1 {
		return base
	}
	return base + "[" + strconv.Itoa(i) + "]"
}
