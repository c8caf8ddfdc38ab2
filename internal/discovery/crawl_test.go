package discovery_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/corpus/internal/config"
	"github.com/jonesrussell/north-cloud/corpus/internal/discovery"
	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCrawl(t *testing.T, pageLimit int, deadline *discovery.Deadline, mutate func(*config.CrawlOptions)) *discovery.Crawl {
	t.Helper()

	opts := config.NewCrawlOptions("https://example.com/wiki/Start#intro", "example.com")
	if mutate != nil {
		mutate(opts)
	}
	c, err := discovery.NewCrawl(opts, pageLimit, deadline, nil)
	require.NoError(t, err)
	require.NoError(t, c.Open(context.Background()))
	return c
}

func page(task domain.FetchTask, hrefs ...string) *domain.FetchResult {
	return &domain.FetchResult{
		Index:      task.Index,
		Locator:    task.Locator,
		Depth:      task.Depth,
		StatusCode: domain.IntPtr(200),
		Content:    []byte("<html></html>"),
		Hrefs:      hrefs,
	}
}

func TestCrawl_StartURL(t *testing.T) {
	t.Parallel()

	c := newCrawl(t, 10, nil, nil)
	tasks := drain(c)
	require.Len(t, tasks, 1)
	assert.Equal(t, 0, tasks[0].Index)
	assert.Equal(t, "https://example.com/wiki/Start", tasks[0].Locator)
	assert.Equal(t, 0, tasks[0].Depth)
}

func TestCrawl_ChildrenInSortedHrefOrder(t *testing.T) {
	t.Parallel()

	c := newCrawl(t, 10, nil, nil)
	start := drain(c)[0]

	c.Observe(page(start,
		"/wiki/Zeta",
		"/wiki/Alpha#history",
		"https://sub.example.com/wiki/Beta",
		"https://example.com.evil.com/wiki/Evil",
		"/wiki/Special:Random",
		"/w/index.php?title=Alpha",
		"/wiki/Start",
		"/wiki/Alpha",
		"mailto:someone@example.com",
	))

	tasks := drain(c)
	var locators []string
	for _, task := range tasks {
		locators = append(locators, task.Locator)
		assert.Equal(t, 1, task.Depth)
	}
	// Raw hrefs are walked in sorted order, so relative links come first.
	assert.Equal(t, []string{
		"https://example.com/wiki/Alpha",
		"https://example.com/wiki/Zeta",
		"https://sub.example.com/wiki/Beta",
	}, locators)
	assert.Equal(t, []int{1, 2, 3}, []int{tasks[0].Index, tasks[1].Index, tasks[2].Index})
}

func TestCrawl_PageLimit(t *testing.T) {
	t.Parallel()

	c := newCrawl(t, 3, nil, nil)
	start := drain(c)[0]

	hrefs := make([]string, 0, 50)
	for i := range 50 {
		hrefs = append(hrefs, fmt.Sprintf("/wiki/Page_%02d", i))
	}
	c.Observe(page(start, hrefs...))

	tasks := drain(c)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		c.Observe(page(task, hrefs...))
	}
	assert.Empty(t, drain(c))
	assert.Equal(t, 3, c.Dispatched())
}

func TestCrawl_MaxDepth(t *testing.T) {
	t.Parallel()

	c := newCrawl(t, 100, nil, func(o *config.CrawlOptions) { o.MaxDepth = 1 })
	start := drain(c)[0]

	c.Observe(page(start, "/wiki/One"))
	one := drain(c)
	require.Len(t, one, 1)
	assert.Equal(t, 1, one[0].Depth)

	c.Observe(page(one[0], "/wiki/Two"))
	assert.Empty(t, drain(c))
}

func TestCrawl_FailedPageSchedulesNothing(t *testing.T) {
	t.Parallel()

	c := newCrawl(t, 10, nil, nil)
	start := drain(c)[0]

	failed := page(start, "/wiki/Child")
	failed.Error = "timeout"
	c.Observe(failed)
	assert.Empty(t, drain(c))
}

func TestCrawl_RedirectedBase(t *testing.T) {
	t.Parallel()

	c := newCrawl(t, 10, nil, nil)
	start := drain(c)[0]

	res := page(start, "Child")
	res.FinalURL = "https://example.com/wiki/Moved/"
	c.Observe(res)

	tasks := drain(c)
	require.Len(t, tasks, 1)
	assert.Equal(t, "https://example.com/wiki/Moved/Child", tasks[0].Locator)
}

func TestCrawl_DeadlineStopsExpansion(t *testing.T) {
	t.Parallel()

	deadline, clock := newClockDeadline(time.Minute)
	c := newCrawl(t, 10, deadline, nil)
	start := drain(c)[0]

	c.Observe(page(start, "/wiki/A", "/wiki/B"))
	first, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, 1, first.Index)

	clock.Advance(time.Minute)
	_, ok = c.Next()
	assert.False(t, ok)

	c.Observe(page(first, "/wiki/C"))
	assert.Empty(t, drain(c))
}

func TestCrawl_ExpiredBeforeStart(t *testing.T) {
	t.Parallel()

	deadline, clock := newClockDeadline(time.Second)
	clock.Advance(time.Second)
	c := newCrawl(t, 10, deadline, nil)
	assert.Empty(t, drain(c))
}

func TestCrawl_ZeroPageLimit(t *testing.T) {
	t.Parallel()

	c := newCrawl(t, 0, nil, nil)
	assert.Empty(t, drain(c))
}
