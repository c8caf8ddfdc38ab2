// Package fetcher executes fetch tasks against HTTP servers.
package fetcher

import (
	"context"

	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
)

//go:generate mockgen -destination=../../testutils/mocks/fetcher/fetcher_mock.go -package=fetcher github.com/jonesrussell/north-cloud/corpus/internal/fetcher Fetcher

// Fetcher turns a task into exactly one result. Per-item failures are carried
// in the result, never returned as errors. Implementations must be safe for
// concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, task domain.FetchTask) domain.FetchResult
}
