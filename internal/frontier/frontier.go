package frontier

import "github.com/jonesrussell/north-cloud/corpus/internal/domain"

type candidate struct {
	url   string
	depth int
}

// Frontier holds the crawl's accepted-but-undispatched URLs and the set of
// every URL ever accepted. Accepted URLs never exceed the page limit. Indices
// are assigned when a URL is popped, so they stay dense even if the crawl
// stops with URLs still queued.
type Frontier struct {
	limit     int
	maxDepth  int
	scheduled map[string]struct{}
	queue     []candidate
	accepted  int
	popped    int
}

// New creates an empty Frontier.
func New(pageLimit, maxDepth int) *Frontier {
	return &Frontier{
		limit:     pageLimit,
		maxDepth:  maxDepth,
		scheduled: make(map[string]struct{}),
	}
}

// Full reports whether the page limit has been reached.
func (f *Frontier) Full() bool {
	return f.accepted >= f.limit
}

// Seen reports whether rawURL was already accepted.
func (f *Frontier) Seen(rawURL string) bool {
	_, ok := f.scheduled[rawURL]
	return ok
}

// Add accepts rawURL at depth unless it was seen, exceeds the depth budget or
// the page limit is reached.
func (f *Frontier) Add(rawURL string, depth int) bool {
	if f.Full() || depth > f.maxDepth || f.Seen(rawURL) {
		return false
	}
	f.scheduled[rawURL] = struct{}{}
	f.queue = append(f.queue, candidate{url: rawURL, depth: depth})
	f.accepted++
	return true
}

// Pop removes the oldest queued URL and assigns it the next index.
func (f *Frontier) Pop() (domain.FetchTask, bool) {
	if len(f.queue) == 0 {
		return domain.FetchTask{}, false
	}
	next := f.queue[0]
	f.queue = f.queue[1:]

	task := domain.FetchTask{
		Index:   f.popped,
		Locator: next.url,
		Target:  next.url,
		Depth:   next.depth,
	}
	f.popped++
	return task, true
}

// Pending returns the number of queued URLs.
func (f *Frontier) Pending() int {
	return len(f.queue)
}

// Dispatched returns the number of indices handed out.
func (f *Frontier) Dispatched() int {
	return f.popped
}
