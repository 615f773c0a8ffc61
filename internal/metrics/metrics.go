// Package metrics exposes run progress as Prometheus metrics, wired into the
// engine through lifecycle hooks.
package metrics

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/pergola/pkg/domain"
)

// Collector owns the run metrics and its own registry, so repeated runs in
// one process never collide on registration.
type Collector struct {
	registry *prometheus.Registry

	samples      *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
}

// NewCollector creates and registers the run metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		samples: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pergola_samples_total",
				Help: "Sample evaluations by step and outcome.",
			},
			[]string{"step", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pergola_step_duration_seconds",
				Help:    "Wall-clock duration of each executed step.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"step", "kind"},
		),
	}
	c.registry.MustRegister(c.samples, c.stepDuration)
	return c
}

// Hooks returns lifecycle hooks that feed the collector.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnd: func(_ context.Context, ev *domain.StepEvent) {
			c.stepDuration.WithLabelValues(ev.Step, string(ev.StepKind)).Observe(ev.Duration.Seconds())
		},
		OnSampleDone: func(_ context.Context, ev *domain.SampleEvent) {
			c.samples.WithLabelValues(ev.Step, string(ev.Status)).Inc()
		},
	}
}

// Handler returns the scrape endpoint router.
func (c *Collector) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	return r
}

// Serve runs the scrape endpoint until the context is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: c.Handler()}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
