package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/pergola"
	"github.com/aretw0/pergola/internal/adapters/redis"
	"github.com/aretw0/pergola/internal/metrics"
	"github.com/aretw0/pergola/internal/presentation/tui"
	"github.com/aretw0/pergola/pkg/domain"
)

// RunSession executes one workflow run end to end: load, validate, run,
// report. The process exits cleanly on SIGINT/SIGTERM by cancelling the run
// context; completed steps keep their data.
func RunSession(opts RunOptions) error {
	logger := createLogger(opts.Debug)

	if !opts.Headless {
		tui.PrintBanner(pergola.Version)
	}

	ov, err := LoadOverrides(opts.OverridesPath)
	if err != nil {
		return err
	}

	wfOpts := []pergola.Option{
		pergola.WithLogger(logger),
	}
	if ov.BatchSize > 0 {
		wfOpts = append(wfOpts, pergola.WithBatchSize(ov.BatchSize))
	}
	if ov.FailurePolicy != "" {
		wfOpts = append(wfOpts, pergola.WithFailurePolicy(domain.FailurePolicy(ov.FailurePolicy)))
	}
	if ov.RunID != "" {
		wfOpts = append(wfOpts, pergola.WithRunID(ov.RunID))
	}
	if ov.Redis.Addr != "" {
		wfOpts = append(wfOpts, pergola.WithRestartStore(
			redis.New(ov.Redis.Addr, ov.Redis.Password, ov.Redis.DB)))
	}

	hooks := []domain.LifecycleHooks{}
	if opts.Debug {
		hooks = append(hooks, createDebugHooks(logger))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var collector *metrics.Collector
	if ov.MetricsAddr != "" {
		collector = metrics.NewCollector()
		hooks = append(hooks, collector.Hooks())
		go func() {
			if err := collector.Serve(ctx, ov.MetricsAddr); err != nil {
				logger.Warn("metrics endpoint stopped", "addr", ov.MetricsAddr, "err", err)
			}
		}()
	}
	if len(hooks) > 0 {
		wfOpts = append(wfOpts, pergola.WithLifecycleHooks(mergeHooks(hooks...)))
	}

	wf, err := pergola.New(opts.Path, wfOpts...)
	if err != nil {
		return fmt.Errorf("error initializing pergola: %w", err)
	}
	if ov.Seed != nil {
		for _, s := range wf.Document().Samplers {
			s.Init.Seed = *ov.Seed
		}
	}

	res, runErr := wf.Run(ctx)
	if res != nil {
		report(opts, res)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("run interrupted")
		}
		return runErr
	}
	return nil
}

func report(opts RunOptions, res *domain.RunResult) {
	markdown := tui.ReportMarkdown(res)
	if opts.Headless {
		fmt.Print(markdown)
		return
	}
	render := tui.NewRenderer()
	out, err := render(markdown)
	if err != nil {
		out = markdown
	}
	fmt.Print(out)
}
