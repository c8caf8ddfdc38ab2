package discovery

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jonesrussell/north-cloud/corpus/internal/config"
	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/jonesrussell/north-cloud/corpus/internal/logger"
)

// List fetches the locators of an input file in file order.
type List struct {
	opts      *config.ListOptions
	pageLimit int
	deadline  *Deadline
	logger    logger.Interface
	urls      []string
	next      int
	stopped   bool
}

var _ Strategy = (*List)(nil)

// NewList creates a list strategy.
func NewList(opts *config.ListOptions, pageLimit int, deadline *Deadline, log logger.Interface) *List {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &List{opts: opts, pageLimit: pageLimit, deadline: deadline, logger: log}
}

// Name implements Strategy.
func (l *List) Name() string { return string(config.ModeList) }

// Open reads the input file.
func (l *List) Open(_ context.Context) error {
	f, err := os.Open(l.opts.InputFile)
	if err != nil {
		return &domain.FilesystemError{Op: "open", Path: l.opts.InputFile, Err: err}
	}
	defer f.Close()

	urls, err := ReadLocators(f, l.opts.SkipEmpty, l.pageLimit)
	if err != nil {
		return &domain.FilesystemError{Op: "read", Path: l.opts.InputFile, Err: err}
	}
	l.urls = urls

	l.logger.Info("Loaded URL list", "path", l.opts.InputFile, "count", len(urls))
	return nil
}

// ReadLocators returns trimmed lines of r, optionally without blanks, capped
// at limit entries.
func ReadLocators(r io.Reader, skipEmpty bool, limit int) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if len(out) >= limit {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" && skipEmpty {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan locators: %w", err)
	}
	return out, nil
}

// Next implements Strategy.
func (l *List) Next() (domain.FetchTask, bool) {
	if l.stopped || l.next >= len(l.urls) {
		return domain.FetchTask{}, false
	}
	if l.deadline.Expired() {
		l.stopped = true
		l.logger.Info("Time limit reached, remaining entries skipped",
			"scheduled", l.next,
			"remaining", len(l.urls)-l.next,
		)
		return domain.FetchTask{}, false
	}

	task := domain.FetchTask{Index: l.next, Locator: l.urls[l.next], Target: l.urls[l.next]}
	l.next++
	return task, true
}

// Observe implements Strategy.
func (l *List) Observe(_ *domain.FetchResult) {}

// Close implements Strategy.
func (l *List) Close() error { return nil }
