package runtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/aretw0/pergola/internal/models"
	"github.com/aretw0/pergola/pkg/domain"
)

func points(n int) []domain.Row {
	out := make([]domain.Row, n)
	for i := range out {
		out[i] = domain.Row{"i": float64(i)}
	}
	return out
}

func TestRunBatch_BoundedConcurrency(t *testing.T) {
	var inFlight, peak int64
	var mu sync.Mutex

	fn := func(ctx context.Context, p domain.Row) (domain.Row, *domain.History, domain.SampleStatus, error) {
		cur := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if cur > peak {
			peak = cur
		}
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return domain.Row{"ans": p["i"]}, nil, domain.SamplePassed, nil
	}

	outcomes := runBatch(context.Background(), 3, points(20), false, models.IsFatal, fn)
	require.Len(t, outcomes, 20)
	for i, o := range outcomes {
		assert.Equal(t, domain.SamplePassed, o.status)
		assert.Equal(t, float64(i), o.outputs["ans"])
	}
	assert.LessOrEqual(t, peak, int64(3))
	assert.Greater(t, peak, int64(1))
}

func TestRunBatch_FailSoftDrainsAll(t *testing.T) {
	fatal := models.Fatalf("boom")
	fn := func(ctx context.Context, p domain.Row) (domain.Row, *domain.History, domain.SampleStatus, error) {
		if p["i"] == 2 {
			return nil, nil, domain.SampleFailed, fatal
		}
		return domain.Row{}, nil, domain.SamplePassed, nil
	}

	outcomes := runBatch(context.Background(), 2, points(10), false, models.IsFatal, fn)
	passed := 0
	for _, o := range outcomes {
		if o.status == domain.SamplePassed {
			passed++
		}
	}
	// every sample ran despite the fatal error
	assert.Equal(t, 9, passed)
}

func TestRunBatch_FailFastSkipsPending(t *testing.T) {
	var started int64
	fatal := models.Fatalf("boom")
	fn := func(ctx context.Context, p domain.Row) (domain.Row, *domain.History, domain.SampleStatus, error) {
		atomic.AddInt64(&started, 1)
		if p["i"] == 0 {
			return nil, nil, domain.SampleFailed, fatal
		}
		time.Sleep(time.Millisecond)
		return domain.Row{}, nil, domain.SamplePassed, nil
	}

	outcomes := runBatch(context.Background(), 1, points(50), true, models.IsFatal, fn)
	require.Len(t, outcomes, 50)
	assert.Equal(t, int64(1), started)

	unstarted := 0
	for _, o := range outcomes {
		if o.status == domain.SampleStatus("") {
			unstarted++
		}
	}
	assert.Equal(t, 49, unstarted)
}

func TestRunBatch_RecoverableErrorsDoNotCancel(t *testing.T) {
	soft := errors.New("bad sample")
	fn := func(ctx context.Context, p domain.Row) (domain.Row, *domain.History, domain.SampleStatus, error) {
		if int(p["i"])%2 == 0 {
			return nil, nil, domain.SampleFailed, soft
		}
		return domain.Row{}, nil, domain.SamplePassed, nil
	}

	// failFast only reacts to fatal errors; recoverable failures drain
	outcomes := runBatch(context.Background(), 4, points(10), true, models.IsFatal, fn)
	failed := 0
	for _, o := range outcomes {
		if o.status == domain.SampleFailed {
			failed++
		}
	}
	assert.Equal(t, 5, failed)
}

func TestRunBatch_EveryPointGetsOutcome(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 64).Draw(t, "points")
		size := rapid.IntRange(1, 16).Draw(t, "batch")

		fn := func(ctx context.Context, p domain.Row) (domain.Row, *domain.History, domain.SampleStatus, error) {
			return domain.Row{"ans": p["i"] * 2}, nil, domain.SamplePassed, nil
		}
		outcomes := runBatch(context.Background(), size, points(n), false, models.IsFatal, fn)

		if len(outcomes) != n {
			t.Fatalf("got %d outcomes for %d points", len(outcomes), n)
		}
		for i, o := range outcomes {
			if o.status != domain.SamplePassed {
				t.Fatalf("point %d not evaluated", i)
			}
			if o.outputs["ans"] != float64(i)*2 {
				t.Fatalf("point %d got outputs %v", i, o.outputs)
			}
		}
	})
}
