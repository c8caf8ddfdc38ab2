package discovery

import (
	"context"
	"net/url"
	"sort"

	"github.com/jonesrussell/north-cloud/corpus/internal/config"
	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/jonesrussell/north-cloud/corpus/internal/frontier"
	"github.com/jonesrussell/north-cloud/corpus/internal/logger"
)

// Crawl follows in-scope links breadth-first from a start URL.
type Crawl struct {
	opts     *config.CrawlOptions
	scope    *frontier.Scope
	frontier *frontier.Frontier
	deadline *Deadline
	logger   logger.Interface
	stopped  bool
}

var _ Strategy = (*Crawl)(nil)

// NewCrawl creates a crawl strategy bounded by pageLimit and deadline.
func NewCrawl(opts *config.CrawlOptions, pageLimit int, deadline *Deadline, log logger.Interface) (*Crawl, error) {
	scope, err := frontier.NewScope(opts)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Crawl{
		opts:     opts,
		scope:    scope,
		frontier: frontier.New(pageLimit, opts.MaxDepth),
		deadline: deadline,
		logger:   log,
	}, nil
}

// Name implements Strategy.
func (c *Crawl) Name() string { return string(config.ModeCrawl) }

// Open seeds the frontier with the start URL. The start URL is not subject to
// the scope filters.
func (c *Crawl) Open(_ context.Context) error {
	if c.deadline.Expired() {
		c.stop()
		return nil
	}
	start, err := frontier.NormalizeString("", c.opts.StartURL)
	if err != nil {
		start = c.opts.StartURL
	}
	c.frontier.Add(start, 0)
	return nil
}

// Next implements Strategy.
func (c *Crawl) Next() (domain.FetchTask, bool) {
	if c.stopped {
		return domain.FetchTask{}, false
	}
	if c.deadline.Expired() {
		c.stop()
		return domain.FetchTask{}, false
	}
	return c.frontier.Pop()
}

// Observe schedules the in-scope children of a successfully fetched page.
func (c *Crawl) Observe(res *domain.FetchResult) {
	if c.stopped {
		return
	}
	if c.deadline.Expired() {
		c.stop()
		return
	}
	if res.Failed() || c.frontier.Full() || res.Depth+1 > c.opts.MaxDepth {
		return
	}

	base, err := url.Parse(res.FinalURL)
	if res.FinalURL == "" || err != nil {
		if base, err = url.Parse(res.Locator); err != nil {
			return
		}
	}

	hrefs := append([]string(nil), res.Hrefs...)
	sort.Strings(hrefs)

	added := 0
	for _, href := range hrefs {
		if c.frontier.Full() {
			break
		}
		link, normErr := frontier.Normalize(base, href)
		if normErr != nil || c.frontier.Seen(link) || !c.scope.ShouldFollow(link) {
			continue
		}
		if c.frontier.Add(link, res.Depth+1) {
			added++
		}
	}

	if added > 0 {
		c.logger.Debug("Scheduled links",
			"from", res.Locator,
			"added", added,
			"pending", c.frontier.Pending(),
		)
	}
}

// Close implements Strategy.
func (c *Crawl) Close() error { return nil }

// Dispatched returns the number of tasks handed out.
func (c *Crawl) Dispatched() int { return c.frontier.Dispatched() }

func (c *Crawl) stop() {
	c.stopped = true
	c.logger.Info("Time limit reached, no further requests will be scheduled",
		"elapsed", c.deadline.Elapsed().String(),
		"dispatched", c.frontier.Dispatched(),
	)
}
