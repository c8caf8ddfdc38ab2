// Package discovery produces the ordered fetch tasks of a job. Each mode is a
// Strategy driven by the pipeline's scheduler loop.
package discovery

import (
	"context"
	"time"

	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/jonesrussell/north-cloud/corpus/internal/fetcher"
)

// Strategy yields a lazy, finite sequence of tasks. Next returns tasks with
// dense indices starting at 0; false means nothing is ready now. The
// scheduler stops once Next returns false with no fetch in flight. Observe
// receives every result in index order and may make more tasks ready.
// Strategies are used from a single goroutine.
type Strategy interface {
	Name() string
	Open(ctx context.Context) error
	Next() (domain.FetchTask, bool)
	Observe(res *domain.FetchResult)
	Close() error
}

// LocalSource is implemented by strategies that read items themselves rather
// than through the HTTP fetcher. Their reads run sequentially.
type LocalSource interface {
	Fetcher() fetcher.Fetcher
}

// Deadline is the cooperative wall-clock budget of a job. A zero budget never
// expires.
type Deadline struct {
	start  time.Time
	budget time.Duration
	now    func() time.Time
}

// NewDeadline starts the budget clock now.
func NewDeadline(budget time.Duration) *Deadline {
	return NewDeadlineAt(time.Now(), budget, time.Now)
}

// NewDeadlineAt builds a Deadline with an explicit clock.
func NewDeadlineAt(start time.Time, budget time.Duration, now func() time.Time) *Deadline {
	return &Deadline{start: start, budget: budget, now: now}
}

// Expired reports whether the budget is used up.
func (d *Deadline) Expired() bool {
	if d == nil || d.budget <= 0 {
		return false
	}
	return d.Elapsed() >= d.budget
}

// Elapsed returns the time since the job started.
func (d *Deadline) Elapsed() time.Duration {
	return d.now().Sub(d.start)
}
