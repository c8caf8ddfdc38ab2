// Package pipeline drives a discovery strategy through the fetcher, content
// processor and manifest writer for one ingestion job.
package pipeline

import (
	"context"

	"github.com/jonesrussell/north-cloud/corpus/internal/discovery"
	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/jonesrussell/north-cloud/corpus/internal/fetcher"
	"github.com/jonesrussell/north-cloud/corpus/internal/logger"
	"github.com/jonesrussell/north-cloud/corpus/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Recorder consumes results in index order. A returned error aborts the job.
type Recorder interface {
	Record(ctx context.Context, res *domain.FetchResult) error
}

// Scheduler owns the fetch pool. At most concurrency fetches run at once;
// results are handed to the recorder and back to the strategy strictly in
// index order, whatever order they complete in.
type Scheduler struct {
	concurrency int
	metrics     *metrics.Metrics
	logger      logger.Interface
}

// NewScheduler creates a Scheduler.
func NewScheduler(concurrency int, m *metrics.Metrics, log logger.Interface) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	if m == nil {
		m = metrics.NewMetrics()
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Scheduler{concurrency: concurrency, metrics: m, logger: log}
}

// Run dispatches tasks until the strategy is exhausted and every dispatched
// fetch has been recorded. After a recorder error or context cancellation no
// new tasks are dispatched; in-flight fetches are still awaited. A recorder
// error also cancels the in-flight fetches, since their results are discarded.
func (s *Scheduler) Run(ctx context.Context, strategy discovery.Strategy, f fetcher.Fetcher, rec Recorder) error {
	results := make(chan domain.FetchResult, s.concurrency)
	abortCtx, abort := context.WithCancelCause(ctx)
	defer abort(nil)
	group, fetchCtx := errgroup.WithContext(abortCtx)

	pending := make(map[int]domain.FetchResult)
	next := 0
	inflight := 0
	var fatal error

	for {
		for fatal == nil && ctx.Err() == nil && inflight < s.concurrency {
			task, ok := strategy.Next()
			if !ok {
				break
			}
			inflight++
			s.metrics.IncrementScheduled()
			s.logger.Debug("Dispatching", "index", task.Index, "locator", task.Locator, "depth", task.Depth)

			group.Go(func() error {
				res := f.Fetch(fetchCtx, task)
				res.Index = task.Index
				res.Depth = task.Depth
				results <- res
				// Non-nil once the job is torn down.
				return context.Cause(fetchCtx)
			})
		}

		if inflight == 0 {
			break
		}

		res := <-results
		inflight--
		if fatal != nil {
			continue
		}

		pending[res.Index] = res
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if err := rec.Record(ctx, &ready); err != nil {
				fatal = err
				abort(err)
				break
			}
			strategy.Observe(&ready)
			next++
		}
	}

	if err := group.Wait(); err != nil {
		return err
	}
	if fatal != nil {
		return fatal
	}
	return ctx.Err()
}
