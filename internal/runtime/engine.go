// Package runtime executes a validated workflow graph.
//
// Steps run strictly sequentially in sequence order; within a step, sample
// evaluations run under a worker pool bounded by RunInfo.batchSize. The
// registry is read-only during execution except for DataObject contents and
// ROM trained state.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/pergola/internal/adapters/memory"
	"github.com/aretw0/pergola/internal/logging"
	"github.com/aretw0/pergola/internal/models"
	"github.com/aretw0/pergola/internal/outstreams"
	"github.com/aretw0/pergola/internal/samplers"
	"github.com/aretw0/pergola/internal/validator"
	"github.com/aretw0/pergola/pkg/domain"
	"github.com/aretw0/pergola/pkg/ports"
)

// Engine executes the ordered steps of a resolved workflow graph.
type Engine struct {
	graph   *validator.Graph
	ordered []*validator.ResolvedStep
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	store   ports.RestartStore
	policy  domain.FailurePolicy
	runID   string
	workdir string

	data  map[string]*domain.DataObject
	evals map[string]models.Evaluator
	posts map[string]models.PostProcessor
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithLogger sets a structured logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) { e.hooks = hooks }
}

// WithRestartStore sets the backend for Restart caches. Defaults to an
// in-memory store scoped to the engine.
func WithRestartStore(store ports.RestartStore) EngineOption {
	return func(e *Engine) { e.store = store }
}

// WithFailurePolicy sets the run-level policy for fatal sample failures.
// Steps may override it with their own failurePolicy attribute.
func WithFailurePolicy(policy domain.FailurePolicy) EngineOption {
	return func(e *Engine) { e.policy = policy }
}

// WithRunID fixes the run identifier. Defaults to a fresh UUID.
func WithRunID(id string) EngineOption {
	return func(e *Engine) { e.runID = id }
}

// NewEngine builds the run context: one DataObject container per declared
// spec and one model instance per model referenced by a sequenced step. The
// instances are shared across steps, which is what carries ROM trained state
// from a RomTrainer to later evaluations.
func NewEngine(graph *validator.Graph, ordered []*validator.ResolvedStep, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		graph:   graph,
		ordered: ordered,
		logger:  logging.NewNop(),
		policy:  domain.FailSoft,
		workdir: graph.Doc.RunInfo.WorkingDir,
		data:    make(map[string]*domain.DataObject),
		evals:   make(map[string]models.Evaluator),
		posts:   make(map[string]models.PostProcessor),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.runID == "" {
		e.runID = uuid.NewString()
	}
	if e.workdir != "" {
		if err := os.MkdirAll(e.workdir, 0o755); err != nil {
			return nil, fmt.Errorf("create working dir: %w", err)
		}
	}

	for name, spec := range graph.Doc.DataObjects {
		e.data[name] = domain.NewDataObject(*spec)
	}

	buildOpts := models.Options{
		WorkingDir:       e.workdir,
		InternalParallel: graph.Doc.RunInfo.InternalParallel,
		Files:            graph.Doc.Files,
	}
	for _, rs := range ordered {
		for _, spec := range []*domain.ModelSpec{rs.Model, rs.TargetROM} {
			if spec == nil {
				continue
			}
			if spec.Kind == domain.ModelPostProcessor {
				if _, ok := e.posts[spec.Name]; ok {
					continue
				}
				pp, err := models.BuildPostProcessor(spec)
				if err != nil {
					return nil, err
				}
				e.posts[spec.Name] = pp
				continue
			}
			if _, ok := e.evals[spec.Name]; ok {
				continue
			}
			ev, err := models.Build(spec, buildOpts)
			if err != nil {
				return nil, err
			}
			e.evals[spec.Name] = ev
		}
	}
	return e, nil
}

// DataObject exposes a container by name, for report rendering and tests.
func (e *Engine) DataObject(name string) (*domain.DataObject, bool) {
	d, ok := e.data[name]
	return d, ok
}

// Run executes every sequenced step in order. A fatal step failure halts the
// run at that step; DataObjects populated by completed steps stay intact.
func (e *Engine) Run(ctx context.Context) (*domain.RunResult, error) {
	start := time.Now()
	res := &domain.RunResult{RunID: e.runID}
	e.logger.Info("run started", "run_id", e.runID, "steps", len(e.ordered), "batch_size", e.graph.Doc.RunInfo.BatchSize)

	for _, rs := range e.ordered {
		e.fireStepStart(ctx, rs)
		stepStart := time.Now()
		sr, err := e.runStep(ctx, rs)
		sr.Step = rs.Spec.Name
		sr.Kind = rs.Spec.Kind
		sr.Duration = time.Since(stepStart)
		res.Steps = append(res.Steps, sr)
		e.fireStepEnd(ctx, rs, sr.Duration, err)

		if err != nil {
			e.logger.Error("run halted", "step", rs.Spec.Name, "err", err)
			res.Halted = true
			res.Duration = time.Since(start)
			return res, err
		}
		e.logger.Info("step finished", "step", rs.Spec.Name,
			"passed", sr.Passed, "failed", sr.Failed, "cached", sr.Cached,
			"duration", sr.Duration)
	}

	res.Duration = time.Since(start)
	passed, failed, cached := res.Totals()
	e.logger.Info("run finished", "run_id", e.runID,
		"passed", passed, "failed", failed, "cached", cached, "duration", res.Duration)
	return res, nil
}

func (e *Engine) runStep(ctx context.Context, rs *validator.ResolvedStep) (domain.StepResult, error) {
	switch rs.Spec.Kind {
	case domain.StepMultiRun:
		return e.runMultiRun(ctx, rs)
	case domain.StepSingleRun:
		return e.runSingleRun(ctx, rs)
	case domain.StepRomTrainer:
		return e.runRomTrainer(rs)
	case domain.StepPostProcess:
		return e.runPostProcess(ctx, rs)
	case domain.StepIOStep:
		return e.runIOStep(rs)
	default:
		return domain.StepResult{}, &domain.FatalStepError{
			Step: rs.Spec.Name,
			Err:  fmt.Errorf("unknown step kind %q", rs.Spec.Kind),
		}
	}
}

func (e *Engine) runMultiRun(ctx context.Context, rs *validator.ResolvedStep) (domain.StepResult, error) {
	var sr domain.StepResult
	fatal := func(err error) (domain.StepResult, error) {
		return sr, &domain.FatalStepError{Step: rs.Spec.Name, Err: err}
	}

	smp, err := samplers.New(rs.Sampler, e.graph.Doc.Distributions, e.effectiveSeed(rs))
	if err != nil {
		return fatal(err)
	}

	var cache *restartCache
	var namespace string
	if rs.Restart != nil && rs.Sampler.RestartTolerance > 0 {
		namespace = e.runID + ":" + rs.Restart.Name
		cache, err = newRestartCache(ctx, e.store, namespace, e.data[rs.Restart.Name],
			samplerVarNames(rs.Sampler), rs.Sampler.RestartTolerance, rs.Sampler.RestartMetric)
		if err != nil {
			return fatal(err)
		}
	}

	var points []domain.Row
	for {
		p, ok := smp.Next()
		if !ok {
			break
		}
		points = append(points, p)
	}
	e.logger.Debug("batch dispatched", "step", rs.Spec.Name, "samples", len(points))

	eval := e.evals[rs.Model.Name]
	histEval, _ := eval.(models.HistoryEvaluator)
	wantHistory := histEval != nil && hasHistoryOutput(rs)
	outcomes := runBatch(ctx, e.graph.Doc.RunInfo.BatchSize, points, e.failFast(rs), models.IsFatal,
		func(ctx context.Context, point domain.Row) (domain.Row, *domain.History, domain.SampleStatus, error) {
			if cache != nil {
				if hit, ok := cache.lookup(point); ok {
					out := domain.Row{}
					for _, v := range rs.Restart.Outputs {
						out[v] = hit[v]
					}
					return out, nil, domain.SampleCached, nil
				}
			}
			if wantHistory {
				out, h, err := histEval.EvaluateHistory(ctx, point)
				if err != nil {
					return nil, nil, domain.SampleFailed, err
				}
				return out, &h, domain.SamplePassed, nil
			}
			out, err := eval.Evaluate(ctx, point)
			if err != nil {
				return nil, nil, domain.SampleFailed, err
			}
			return out, nil, domain.SamplePassed, nil
		})

	if cache != nil {
		e.persistOutcomes(ctx, rs, namespace, outcomes)
	}
	return e.commit(ctx, rs, outcomes)
}

// persistOutcomes appends the step's freshly evaluated rows to the restart
// namespace, so later invocations under the same run ID can reuse them.
func (e *Engine) persistOutcomes(ctx context.Context, rs *validator.ResolvedStep, namespace string, outcomes []outcome) {
	var fresh []domain.Row
	for i := range outcomes {
		if outcomes[i].status == domain.SamplePassed {
			fresh = append(fresh, mergedRow(&outcomes[i]))
		}
	}
	if len(fresh) == 0 {
		return
	}
	if err := e.store.Append(ctx, namespace, fresh...); err != nil {
		e.logger.Warn("restart cache append failed",
			"step", rs.Spec.Name, "namespace", namespace, "err", err)
	}
}

func hasHistoryOutput(rs *validator.ResolvedStep) bool {
	for _, out := range rs.OutputObjects {
		if out.Kind == domain.HistorySet {
			return true
		}
	}
	return false
}

// mergedRow overlays the sample's produced outputs on its input coordinates.
func mergedRow(o *outcome) domain.Row {
	row := o.point.Clone()
	for k, v := range o.outputs {
		row[k] = v
	}
	return row
}

func (e *Engine) runSingleRun(ctx context.Context, rs *validator.ResolvedStep) (domain.StepResult, error) {
	point := domain.Row{}
	for _, out := range rs.OutputObjects {
		for _, v := range out.Inputs {
			point[v] = 0
		}
	}
	for _, in := range rs.InputObjects {
		all := e.data[in.Name].Rows()
		if len(all) > 0 {
			for k, v := range all[len(all)-1] {
				point[k] = v
			}
		}
	}

	eval := e.evals[rs.Model.Name]
	out, err := eval.Evaluate(ctx, point)
	var oc outcome
	if err != nil {
		oc = outcome{point: point, status: domain.SampleFailed, err: err}
	} else {
		oc = outcome{point: point, outputs: out, status: domain.SamplePassed}
	}
	return e.commit(ctx, rs, []outcome{oc})
}

// commit turns batch outcomes into step results: successful rows append to
// every output DataObject, failures are recorded with the failing inputs,
// and the first fatal failure halts the step.
func (e *Engine) commit(ctx context.Context, rs *validator.ResolvedStep, outcomes []outcome) (domain.StepResult, error) {
	var sr domain.StepResult
	var fatal error

	for _, o := range outcomes {
		switch o.status {
		case "":
			// never started (failed fast); not counted
			continue
		case domain.SampleFailed:
			sr.Failed++
			sr.Failures = append(sr.Failures, domain.SampleFailure{Inputs: o.point, Cause: o.err.Error()})
			e.logger.Warn("sample failed", "step", rs.Spec.Name, "inputs", o.point, "err", o.err)
			if fatal == nil && models.IsFatal(o.err) {
				fatal = o.err
			}
		default:
			row := mergedRow(&o)
			for _, out := range rs.OutputObjects {
				var err error
				if out.Kind == domain.HistorySet {
					err = e.appendHistory(out, &o)
				} else {
					err = e.data[out.Name].Append(row)
				}
				if err != nil && fatal == nil {
					fatal = err
				}
			}
			if o.status == domain.SampleCached {
				sr.Cached++
			} else {
				sr.Passed++
			}
		}
		e.fireSampleDone(ctx, rs, &o)
	}

	if fatal != nil {
		return sr, &domain.FatalStepError{Step: rs.Spec.Name, Err: fatal}
	}
	return sr, nil
}

// appendHistory stores a sample's time series under the HistorySet's pivot.
// Sampled input coordinates absent from the model's output become constant
// series spanning the pivot.
func (e *Engine) appendHistory(spec *domain.DataObjectSpec, o *outcome) error {
	if o.history == nil {
		return fmt.Errorf("data object %q needs a time series, but the sample produced none", spec.Name)
	}
	h := domain.History{Pivot: spec.Pivot, Values: make(map[string][]float64, len(o.history.Values)+len(o.point))}
	for name, series := range o.history.Values {
		h.Values[name] = series
	}
	pivot := h.Values[spec.Pivot]
	if len(pivot) == 0 {
		return fmt.Errorf("data object %q: sample output has no %q series", spec.Name, spec.Pivot)
	}
	for _, v := range spec.Inputs {
		if _, ok := h.Values[v]; ok {
			continue
		}
		value, ok := o.point[v]
		if !ok {
			continue
		}
		series := make([]float64, len(pivot))
		for i := range series {
			series[i] = value
		}
		h.Values[v] = series
	}
	return e.data[spec.Name].AppendHistory(h)
}

func (e *Engine) runRomTrainer(rs *validator.ResolvedStep) (domain.StepResult, error) {
	var sr domain.StepResult
	tr, ok := e.evals[rs.TargetROM.Name].(models.Trainable)
	if !ok {
		return sr, &domain.FatalStepError{
			Step: rs.Spec.Name,
			Err:  fmt.Errorf("model %q is not trainable", rs.TargetROM.Name),
		}
	}

	var rows []domain.Row
	for _, in := range rs.InputObjects {
		rows = append(rows, e.data[in.Name].Rows()...)
	}
	if err := tr.Train(rows); err != nil {
		return sr, &domain.FatalStepError{Step: rs.Spec.Name, Err: err}
	}
	e.logger.Info("rom trained", "step", rs.Spec.Name, "rom", rs.TargetROM.Name, "rows", len(rows))
	sr.Passed = 1
	return sr, nil
}

func (e *Engine) runPostProcess(ctx context.Context, rs *validator.ResolvedStep) (domain.StepResult, error) {
	var sr domain.StepResult
	fatal := func(err error) (domain.StepResult, error) {
		return sr, &domain.FatalStepError{Step: rs.Spec.Name, Err: err}
	}

	var rows []domain.Row
	for _, in := range rs.InputObjects {
		rows = append(rows, e.data[in.Name].Rows()...)
	}

	produced, err := e.posts[rs.Model.Name].Process(ctx, rows)
	if err != nil {
		return fatal(err)
	}
	for _, row := range produced {
		for _, out := range rs.OutputObjects {
			if err := e.data[out.Name].Append(row); err != nil {
				return fatal(err)
			}
		}
	}
	sr.Passed = len(produced)

	for _, stream := range rs.OutputStreams {
		if err := e.render(stream); err != nil {
			return fatal(err)
		}
	}
	return sr, nil
}

func (e *Engine) runIOStep(rs *validator.ResolvedStep) (domain.StepResult, error) {
	var sr domain.StepResult
	for _, stream := range rs.OutputStreams {
		if err := e.render(stream); err != nil {
			return sr, &domain.FatalStepError{Step: rs.Spec.Name, Err: err}
		}
		sr.Passed++
	}
	return sr, nil
}

func (e *Engine) render(stream *domain.OutStreamSpec) error {
	path, err := outstreams.Render(stream, e.data[stream.Source], e.workdir)
	if err != nil {
		return err
	}
	e.logger.Info("out-stream written", "stream", stream.Name, "path", path)
	return nil
}

// effectiveSeed applies the step's re-seeding override without touching the
// sampler's stored configuration.
func (e *Engine) effectiveSeed(rs *validator.ResolvedStep) int64 {
	if rs.Spec.ReSeed != nil {
		return *rs.Spec.ReSeed
	}
	if rs.Sampler.Init.Seed != 0 {
		return rs.Sampler.Init.Seed
	}
	return time.Now().UnixNano()
}

func (e *Engine) failFast(rs *validator.ResolvedStep) bool {
	policy := rs.Spec.FailurePolicy
	if policy == domain.FailureInherit {
		policy = e.policy
	}
	return policy == domain.FailFast
}

func samplerVarNames(s *domain.SamplerSpec) []string {
	out := make([]string, 0, len(s.Variables))
	for _, v := range s.Variables {
		out = append(out, v.Name)
	}
	return out
}

func (e *Engine) fireStepStart(ctx context.Context, rs *validator.ResolvedStep) {
	if e.hooks.OnStepStart == nil {
		return
	}
	e.hooks.OnStepStart(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepStart, RunID: e.runID},
		Step:      rs.Spec.Name,
		StepKind:  rs.Spec.Kind,
	})
}

func (e *Engine) fireStepEnd(ctx context.Context, rs *validator.ResolvedStep, d time.Duration, err error) {
	if e.hooks.OnStepEnd == nil {
		return
	}
	e.hooks.OnStepEnd(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepEnd, RunID: e.runID},
		Step:      rs.Spec.Name,
		StepKind:  rs.Spec.Kind,
		Duration:  d,
		Err:       err,
	})
}

func (e *Engine) fireSampleDone(ctx context.Context, rs *validator.ResolvedStep, o *outcome) {
	if e.hooks.OnSampleDone == nil {
		return
	}
	modelName := ""
	if rs.Model != nil {
		modelName = rs.Model.Name
	}
	e.hooks.OnSampleDone(ctx, &domain.SampleEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventSampleDone, RunID: e.runID},
		Step:      rs.Spec.Name,
		Model:     modelName,
		Status:    o.status,
		Inputs:    o.point,
		Err:       o.err,
	})
}
