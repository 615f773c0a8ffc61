package pergola

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/pergola/internal/adapters/file"
	"github.com/aretw0/pergola/internal/compiler"
	"github.com/aretw0/pergola/internal/logging"
	"github.com/aretw0/pergola/internal/presentation/graph"
	"github.com/aretw0/pergola/internal/runtime"
	"github.com/aretw0/pergola/internal/validator"
	"github.com/aretw0/pergola/pkg/domain"
	"github.com/aretw0/pergola/pkg/ports"
)

// Workflow is the high-level entry point for the Pergola library.
// It wraps the internal compiler, validator and runtime, and provides a
// simplified load-validate-run API for consumers.
type Workflow struct {
	doc     *domain.Document
	graph   *validator.Graph
	ordered []*validator.ResolvedStep
	engine  *runtime.Engine

	loader     ports.DocumentLoader
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	store      ports.RestartStore
	policy     domain.FailurePolicy
	runID      string
	batchSize  int
	parserOpts []compiler.Option
	Name       string
}

// Option defines a functional option for configuring the Workflow.
type Option func(*Workflow)

// WithLoader injects a custom DocumentLoader, bypassing the default
// filesystem loader.
func WithLoader(l ports.DocumentLoader) Option {
	return func(w *Workflow) {
		w.loader = l
	}
}

// WithLogger sets a custom structured logger for the workflow.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Workflow) {
		w.hooks = hooks
	}
}

// WithRestartStore sets the backend for Restart caches.
func WithRestartStore(store ports.RestartStore) Option {
	return func(w *Workflow) {
		w.store = store
	}
}

// WithFailurePolicy sets the run-level policy for fatal sample failures.
func WithFailurePolicy(policy domain.FailurePolicy) Option {
	return func(w *Workflow) {
		w.policy = policy
	}
}

// WithRunID fixes the run identifier, so restart namespaces are stable
// across invocations.
func WithRunID(id string) Option {
	return func(w *Workflow) {
		w.runID = id
	}
}

// WithBatchSize overrides the document's RunInfo batchSize.
func WithBatchSize(n int) Option {
	return func(w *Workflow) {
		w.batchSize = n
	}
}

// WithIgnorableTags extends the set of top-level tags the parser skips.
func WithIgnorableTags(tags ...string) Option {
	return func(w *Workflow) {
		w.parserOpts = append(w.parserOpts, compiler.WithIgnorableTags(tags...))
	}
}

// New loads, compiles and validates the workflow at path. By default the
// document is read from the filesystem; inject WithLoader to read from
// elsewhere, in which case path may be empty.
//
// A returned Workflow has passed reference resolution and sequence
// validation and is ready to Run.
func New(path string, opts ...Option) (*Workflow, error) {
	w := &Workflow{policy: domain.FailSoft}

	for _, opt := range opts {
		opt(w)
	}

	if w.loader == nil {
		if path == "" {
			return nil, fmt.Errorf("path is required when no custom loader is provided")
		}
		loader, err := file.NewLoader(path)
		if err != nil {
			return nil, err
		}
		w.loader = loader
		base := filepath.Base(path)
		w.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	data, err := w.loader.Load()
	if err != nil {
		return nil, err
	}

	doc, err := compiler.NewParser(w.parserOpts...).Parse(data)
	if err != nil {
		return nil, err
	}
	if w.batchSize > 0 {
		doc.RunInfo.BatchSize = w.batchSize
	}

	g, err := validator.Resolve(doc)
	if err != nil {
		return nil, err
	}
	ordered, err := validator.Sequence(g)
	if err != nil {
		return nil, err
	}

	if w.logger == nil {
		w.logger = logging.NewNop()
	}
	if w.Name != "" {
		w.logger = w.logger.With("workflow", w.Name)
	}

	w.doc = doc
	w.graph = g
	w.ordered = ordered
	return w, nil
}

// Run executes the validated sequence and returns the aggregated result.
// The error is non-nil when a fatal step halted the run; the result still
// reports every step that executed.
func (w *Workflow) Run(ctx context.Context) (*domain.RunResult, error) {
	engineOpts := []runtime.EngineOption{
		runtime.WithLogger(w.logger),
		runtime.WithLifecycleHooks(w.hooks),
		runtime.WithFailurePolicy(w.policy),
	}
	if w.store != nil {
		engineOpts = append(engineOpts, runtime.WithRestartStore(w.store))
	}
	if w.runID != "" {
		engineOpts = append(engineOpts, runtime.WithRunID(w.runID))
	}

	engine, err := runtime.NewEngine(w.graph, w.ordered, engineOpts...)
	if err != nil {
		return nil, err
	}
	w.engine = engine
	return engine.Run(ctx)
}

// Document exposes the compiled registry for introspection tools.
func (w *Workflow) Document() *domain.Document {
	return w.doc
}

// Sequence returns the validated execution order.
func (w *Workflow) Sequence() []string {
	out := make([]string, len(w.ordered))
	for i, rs := range w.ordered {
		out[i] = rs.Spec.Name
	}
	return out
}

// Mermaid renders the workflow as a Mermaid flowchart.
func (w *Workflow) Mermaid() string {
	return graph.GenerateMermaid(w.doc)
}

// DataObject returns a populated container after Run. It reports false
// before Run is called or for unknown names.
func (w *Workflow) DataObject(name string) (*domain.DataObject, bool) {
	if w.engine == nil {
		return nil, false
	}
	return w.engine.DataObject(name)
}
