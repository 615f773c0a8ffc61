package runtime

import (
	"context"
	"sync"

	"github.com/gammazero/deque"

	"github.com/aretw0/pergola/pkg/domain"
)

// outcome records one dispatched sample's fate. Outcomes for samples that
// were never started (failed fast) carry a zero status and are not counted.
// history is set only for models that produce a full time series.
type outcome struct {
	point   domain.Row
	outputs domain.Row
	history *domain.History
	status  domain.SampleStatus
	err     error
}

// evalFunc evaluates one sample point and classifies the result.
type evalFunc func(ctx context.Context, point domain.Row) (outputs domain.Row, history *domain.History, status domain.SampleStatus, err error)

// runBatch evaluates points under a worker pool bounded by size. Points form
// an embarrassingly parallel batch: workers pop from a shared pending queue,
// and the batch completes only when every dispatched sample has finished or
// failed. One slow sample never blocks the others.
//
// When failFast is set, the first fatal error (as judged by isFatal) cancels
// the batch: in-flight samples are interrupted through the context and
// pending samples are never started. Otherwise in-flight and pending samples
// drain to completion.
func runBatch(ctx context.Context, size int, points []domain.Row, failFast bool, isFatal func(error) bool, fn evalFunc) []outcome {
	if size < 1 {
		size = 1
	}
	if size > len(points) {
		size = len(points)
	}

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var pending deque.Deque[int]
	for i := range points {
		pending.PushBack(i)
	}

	outcomes := make([]outcome, len(points))
	var mu sync.Mutex
	pop := func() (int, bool) {
		mu.Lock()
		defer mu.Unlock()
		if pending.Len() == 0 {
			return 0, false
		}
		return pending.PopFront(), true
	}

	var wg sync.WaitGroup
	for w := 0; w < size; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i, ok := pop()
				if !ok {
					return
				}
				if batchCtx.Err() != nil {
					return
				}
				outputs, history, status, err := fn(batchCtx, points[i])
				outcomes[i] = outcome{point: points[i], outputs: outputs, history: history, status: status, err: err}
				if err != nil && failFast && isFatal(err) {
					cancel()
					return
				}
			}
		}()
	}
	wg.Wait()
	return outcomes
}
