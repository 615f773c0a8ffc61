package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/pergola/pkg/domain"
)

// createDebugHooks logs every lifecycle event at debug level.
func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepStart: func(_ context.Context, ev *domain.StepEvent) {
			logger.Debug("step start", "step", ev.Step, "kind", ev.StepKind)
		},
		OnStepEnd: func(_ context.Context, ev *domain.StepEvent) {
			logger.Debug("step end", "step", ev.Step, "duration", ev.Duration, "err", ev.Err)
		},
		OnSampleDone: func(_ context.Context, ev *domain.SampleEvent) {
			logger.Debug("sample done", "step", ev.Step, "model", ev.Model,
				"status", ev.Status, "inputs", ev.Inputs, "err", ev.Err)
		},
	}
}

// mergeHooks fans each event out to every registered hook set, in order.
func mergeHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var merged domain.LifecycleHooks
	for _, hs := range sets {
		hs := hs
		if hs.OnStepStart != nil {
			prev := merged.OnStepStart
			merged.OnStepStart = func(ctx context.Context, ev *domain.StepEvent) {
				if prev != nil {
					prev(ctx, ev)
				}
				hs.OnStepStart(ctx, ev)
			}
		}
		if hs.OnStepEnd != nil {
			prev := merged.OnStepEnd
			merged.OnStepEnd = func(ctx context.Context, ev *domain.StepEvent) {
				if prev != nil {
					prev(ctx, ev)
				}
				hs.OnStepEnd(ctx, ev)
			}
		}
		if hs.OnSampleDone != nil {
			prev := merged.OnSampleDone
			merged.OnSampleDone = func(ctx context.Context, ev *domain.SampleEvent) {
				if prev != nil {
					prev(ctx, ev)
				}
				hs.OnSampleDone(ctx, ev)
			}
		}
	}
	return merged
}
