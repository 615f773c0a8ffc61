// Package validator checks a loaded document before anything executes.
//
// All structural problems (unresolvable references, malformed sequences,
// uncovered output variables, untrained surrogate use) are detected here,
// so execution starts with a fully resolved graph and no validation error
// can surface mid-run with partial side effects.
package validator

import (
	"fmt"

	"github.com/aretw0/pergola/pkg/domain"
)

// ResolvedStep is a step with every reference replaced by a direct handle.
// String names are resolved exactly once, at validation time.
type ResolvedStep struct {
	Spec *domain.StepSpec

	InputObjects  []*domain.DataObjectSpec
	InputFiles    []*domain.FileSpec
	OutputObjects []*domain.DataObjectSpec
	OutputStreams []*domain.OutStreamSpec

	// TargetROM is the ROM a RomTrainer step trains.
	TargetROM *domain.ModelSpec

	Sampler *domain.SamplerSpec
	Model   *domain.ModelSpec

	// Restart is the sampler's restart cache source, when declared.
	Restart *domain.DataObjectSpec
}

// Graph is the fully resolved workflow: the registry plus direct handles for
// every step slot. It is read-only after Resolve returns.
type Graph struct {
	Doc   *domain.Document
	Steps map[string]*ResolvedStep
}

// Resolve walks every step and resolves each slot's (class, type, name)
// triple against the matching registry. The first failure is reported with
// the offending step, slot and target name.
func Resolve(doc *domain.Document) (*Graph, error) {
	g := &Graph{Doc: doc, Steps: make(map[string]*ResolvedStep, len(doc.Steps))}

	for _, o := range doc.OutStreams {
		if _, ok := doc.DataObjects[o.Source]; !ok {
			return nil, fmt.Errorf("out-stream %q: source %q is not a declared DataObject: %w",
				o.Name, o.Source, domain.ErrUnresolvedReference)
		}
	}

	for _, name := range doc.StepOrder {
		spec := doc.Steps[name]
		rs := &ResolvedStep{Spec: spec}

		for _, sr := range spec.SlotRefs() {
			if err := resolveSlot(doc, rs, sr); err != nil {
				return nil, err
			}
		}

		if err := checkShape(rs); err != nil {
			return nil, err
		}
		if err := resolveSamplerLinks(doc, rs); err != nil {
			return nil, err
		}
		if err := checkCoverage(rs); err != nil {
			return nil, err
		}
		g.Steps[name] = rs
	}
	return g, nil
}

func resolveSlot(doc *domain.Document, rs *ResolvedStep, sr domain.SlotRef) error {
	step := rs.Spec.Name
	missing := func() error {
		return &domain.UnresolvedReferenceError{Step: step, Slot: sr.Slot, Ref: sr.Ref}
	}
	isInput := sr.Slot == "Input" || (len(sr.Slot) > 5 && sr.Slot[:5] == "Input")
	isOutput := sr.Slot == "Output" || (len(sr.Slot) > 6 && sr.Slot[:6] == "Output")

	switch sr.Ref.Class {
	case domain.CollectionDataObjects:
		d, ok := doc.DataObjects[sr.Ref.Name]
		if !ok {
			return missing()
		}
		if isInput {
			rs.InputObjects = append(rs.InputObjects, d)
		} else if isOutput {
			rs.OutputObjects = append(rs.OutputObjects, d)
		}
	case domain.CollectionFiles:
		f, ok := doc.Files[sr.Ref.Name]
		if !ok {
			return missing()
		}
		if isInput {
			rs.InputFiles = append(rs.InputFiles, f)
		}
	case domain.CollectionOutStreams:
		o, ok := doc.OutStreams[sr.Ref.Name]
		if !ok {
			return missing()
		}
		rs.OutputStreams = append(rs.OutputStreams, o)
	case domain.CollectionSamplers:
		s, ok := doc.Samplers[sr.Ref.Name]
		if !ok {
			return missing()
		}
		rs.Sampler = s
	case domain.CollectionModels:
		m, ok := doc.Models[sr.Ref.Name]
		if !ok {
			return missing()
		}
		if rs.Spec.Kind == domain.StepRomTrainer && isOutput {
			rs.TargetROM = m
		} else {
			rs.Model = m
		}
	default:
		return missing()
	}
	return nil
}

// checkShape enforces the slot layout each step variant requires.
func checkShape(rs *ResolvedStep) error {
	step := rs.Spec.Name
	shape := func(format string, args ...any) error {
		return fmt.Errorf("step %q: %s: %w", step, fmt.Sprintf(format, args...), domain.ErrValidation)
	}

	switch rs.Spec.Kind {
	case domain.StepMultiRun:
		if rs.Sampler == nil {
			return shape("MultiRun requires a Sampler")
		}
		if rs.Model == nil {
			return shape("MultiRun requires a Model")
		}
		if len(rs.OutputObjects) == 0 {
			return shape("MultiRun requires at least one DataObject output")
		}
		for _, out := range rs.OutputObjects {
			// Only Code models produce the per-sample time series a
			// HistorySet collects; everything else yields flat rows.
			if out.Kind == domain.HistorySet && rs.Model.Kind != domain.ModelCode {
				return shape("MultiRun output %q is a HistorySet, which only a Code model can populate", out.Name)
			}
		}
	case domain.StepSingleRun:
		if rs.Model == nil {
			return shape("SingleRun requires a Model")
		}
		if rs.Sampler != nil {
			return shape("SingleRun does not take a Sampler")
		}
		if len(rs.OutputObjects) == 0 {
			return shape("SingleRun requires at least one DataObject output")
		}
	case domain.StepRomTrainer:
		if rs.TargetROM == nil {
			return shape("RomTrainer output must be a Model")
		}
		if rs.TargetROM.Kind != domain.ModelROM {
			return shape("RomTrainer output %q is not a ROM", rs.TargetROM.Name)
		}
		if len(rs.InputObjects) == 0 {
			return shape("RomTrainer requires a training DataObject input")
		}
	case domain.StepPostProcess:
		if rs.Model == nil || rs.Model.Kind != domain.ModelPostProcessor {
			return shape("PostProcess requires a PostProcessor model")
		}
		if len(rs.InputObjects) == 0 {
			return shape("PostProcess requires a DataObject input")
		}
		if len(rs.OutputObjects) == 0 && len(rs.OutputStreams) == 0 {
			return shape("PostProcess requires a DataObject or OutStream output")
		}
	case domain.StepIOStep:
		if len(rs.InputObjects) == 0 {
			return shape("IOStep requires a DataObject input")
		}
		if len(rs.OutputStreams) == 0 {
			return shape("IOStep requires an OutStream output")
		}
	}

	if rs.Model != nil && rs.Model.Kind == domain.ModelPostProcessor && rs.Spec.Kind != domain.StepPostProcess {
		return shape("PostProcessor %q can only drive a PostProcess step", rs.Model.Name)
	}
	return nil
}

// resolveSamplerLinks resolves sampler-internal references: distributions
// bound by variables, and the optional Restart cache DataObject.
func resolveSamplerLinks(doc *domain.Document, rs *ResolvedStep) error {
	if rs.Sampler == nil {
		return nil
	}
	s := rs.Sampler
	for _, v := range s.Variables {
		if v.Distribution == "" {
			continue // grid variables carry explicit points
		}
		d, ok := doc.Distributions[v.Distribution]
		if !ok {
			return &domain.UnresolvedReferenceError{
				Step: rs.Spec.Name,
				Slot: fmt.Sprintf("Sampler %q variable %q", s.Name, v.Name),
				Ref:  domain.Reference{Class: domain.CollectionDistributions, Name: v.Distribution},
			}
		}
		if v.Dim > d.Dim() {
			return fmt.Errorf("sampler %q: variable %q dim %d exceeds distribution %q dimension %d: %w",
				s.Name, v.Name, v.Dim, d.Name, d.Dim(), domain.ErrValidation)
		}
	}
	if s.Restart != "" {
		r, ok := doc.DataObjects[s.Restart]
		if !ok {
			return &domain.UnresolvedReferenceError{
				Step: rs.Spec.Name,
				Slot: fmt.Sprintf("Sampler %q Restart", s.Name),
				Ref:  domain.Reference{Class: domain.CollectionDataObjects, Name: s.Restart},
			}
		}
		rs.Restart = r
	}
	return nil
}

// checkCoverage verifies that each output DataObject's declared output
// variables are covered by what the step's model produces. Code models and
// post-processors produce variable sets that are only known at runtime, so
// coverage is enforced where the model declares its products statically.
func checkCoverage(rs *ResolvedStep) error {
	if rs.Model == nil {
		return nil
	}
	var produced map[string]bool
	switch rs.Model.Kind {
	case domain.ModelExternal:
		produced = make(map[string]bool, len(rs.Model.Expressions))
		for target := range rs.Model.Expressions {
			produced[target] = true
		}
	case domain.ModelROM:
		produced = make(map[string]bool, len(rs.Model.Targets))
		for _, t := range rs.Model.Targets {
			produced[t] = true
		}
	default:
		return nil
	}

	for _, out := range rs.OutputObjects {
		for _, v := range out.Outputs {
			if !produced[v] {
				return fmt.Errorf("step %q: output %q declares variable %q which model %q does not produce: %w",
					rs.Spec.Name, out.Name, v, rs.Model.Name, domain.ErrValidation)
			}
		}
	}
	return nil
}

// Sequence validates RunInfo.Sequence against the resolved graph and returns
// the steps in execution order. Steps declared but absent from the sequence
// are legal and never run. The declared order is authoritative; no
// dependency-driven reordering happens.
func Sequence(g *Graph) ([]*ResolvedStep, error) {
	seen := make(map[string]bool, len(g.Doc.RunInfo.Sequence))
	ordered := make([]*ResolvedStep, 0, len(g.Doc.RunInfo.Sequence))
	trained := map[string]bool{}

	for _, name := range g.Doc.RunInfo.Sequence {
		if seen[name] {
			return nil, &domain.SequenceError{Entry: name, Reason: "appears more than once"}
		}
		seen[name] = true

		rs, ok := g.Steps[name]
		if !ok {
			return nil, &domain.SequenceError{Entry: name, Reason: "no such step declared in <Steps>"}
		}

		// A ROM must be trained by an earlier RomTrainer before it can
		// evaluate samples.
		if rs.Model != nil && rs.Model.Kind == domain.ModelROM && !trained[rs.Model.Name] {
			return nil, &domain.SequenceError{
				Entry:  name,
				Reason: fmt.Sprintf("ROM %q is used before any RomTrainer step trains it", rs.Model.Name),
			}
		}
		if rs.Spec.Kind == domain.StepRomTrainer {
			trained[rs.TargetROM.Name] = true
		}

		ordered = append(ordered, rs)
	}
	return ordered, nil
}
