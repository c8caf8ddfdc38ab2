package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonesrussell/north-cloud/corpus/internal/config"
	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/jonesrussell/north-cloud/corpus/internal/fetcher"
	"github.com/jonesrussell/north-cloud/corpus/internal/logger"
)

const (
	mediaWikiBatchLimit = 500
	categoryPrefix      = "Category:"
	// listingIndex marks listing requests, which never reach the manifest.
	listingIndex = -1
)

// ErrMediaWikiListing marks a failed listing request.
var ErrMediaWikiListing = errors.New("mediawiki listing failed")

// PageRef is one page returned by a MediaWiki listing.
type PageRef struct {
	PageID int    `json:"pageid"`
	NS     int    `json:"ns"`
	Title  string `json:"title"`
}

type listingResponse struct {
	Continue map[string]any `json:"continue"`
	Query    struct {
		CategoryMembers []PageRef `json:"categorymembers"`
		AllPages        []PageRef `json:"allpages"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// MediaWiki lists pages of a category or title prefix through the MediaWiki
// API and fetches each page's rendered HTML.
type MediaWiki struct {
	opts      *config.MediaWikiOptions
	fetcher   fetcher.Fetcher
	pageLimit int
	deadline  *Deadline
	logger    logger.Interface

	base    string
	pages   []PageRef
	next    int
	stopped bool
}

var _ Strategy = (*MediaWiki)(nil)

// NewMediaWiki creates a MediaWiki strategy; listing requests go through f.
func NewMediaWiki(opts *config.MediaWikiOptions, f fetcher.Fetcher, pageLimit int, deadline *Deadline, log logger.Interface) *MediaWiki {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &MediaWiki{opts: opts, fetcher: f, pageLimit: pageLimit, deadline: deadline, logger: log}
}

// Name implements Strategy.
func (m *MediaWiki) Name() string { return string(config.ModeMediaWiki) }

// Open pages through the listing until pageLimit titles are collected or the
// listing is exhausted.
func (m *MediaWiki) Open(ctx context.Context) error {
	base, err := scriptBase(m.opts.APIURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMediaWikiListing, err)
	}
	m.base = base

	seen := make(map[int]struct{})
	cont := map[string]string{}
	for len(m.pages) < m.pageLimit {
		if m.deadline.Expired() {
			break
		}

		listURL := m.listingURL(cont, m.pageLimit-len(m.pages))
		batch, next, listErr := m.fetchListing(ctx, listURL)
		if listErr != nil {
			return listErr
		}

		for _, p := range batch {
			if _, dup := seen[p.PageID]; dup {
				continue
			}
			seen[p.PageID] = struct{}{}
			m.pages = append(m.pages, p)
			if len(m.pages) >= m.pageLimit {
				break
			}
		}

		if len(next) == 0 {
			break
		}
		cont = next
	}

	m.logger.Info("MediaWiki listing complete", "api_url", m.opts.APIURL, "pages", len(m.pages))
	return nil
}

func (m *MediaWiki) listingURL(cont map[string]string, remaining int) string {
	limit := strconv.Itoa(min(remaining, mediaWikiBatchLimit))
	ns := strconv.Itoa(m.opts.Namespace)

	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	if strings.TrimSpace(m.opts.Category) != "" {
		title := strings.TrimSpace(m.opts.Category)
		if !strings.HasPrefix(title, categoryPrefix) {
			title = categoryPrefix + title
		}
		q.Set("list", "categorymembers")
		q.Set("cmtitle", title)
		q.Set("cmnamespace", ns)
		q.Set("cmtype", "page")
		q.Set("cmlimit", limit)
	} else {
		q.Set("list", "allpages")
		q.Set("apprefix", m.opts.AllpagesPrefix)
		q.Set("apnamespace", ns)
		q.Set("aplimit", limit)
	}
	for k, v := range cont {
		q.Set(k, v)
	}

	sep := "?"
	if strings.Contains(m.opts.APIURL, "?") {
		sep = "&"
	}
	return m.opts.APIURL + sep + q.Encode()
}

func (m *MediaWiki) fetchListing(ctx context.Context, listURL string) ([]PageRef, map[string]string, error) {
	res := m.fetcher.Fetch(ctx, domain.FetchTask{Index: listingIndex, Locator: listURL, Target: listURL})
	if res.Failed() {
		return nil, nil, fmt.Errorf("%w: %s: %s", ErrMediaWikiListing, listURL, res.Error)
	}
	if res.StatusCode != nil && (*res.StatusCode < 200 || *res.StatusCode > 299) {
		return nil, nil, fmt.Errorf("%w: %s: HTTP %d", ErrMediaWikiListing, listURL, *res.StatusCode)
	}

	var body listingResponse
	if err := json.Unmarshal(res.Content, &body); err != nil {
		return nil, nil, fmt.Errorf("%w: decode %s: %w", ErrMediaWikiListing, listURL, err)
	}
	if body.Error != nil {
		return nil, nil, fmt.Errorf("%w: %s: %s", ErrMediaWikiListing, body.Error.Code, body.Error.Info)
	}

	batch := body.Query.CategoryMembers
	if len(batch) == 0 {
		batch = body.Query.AllPages
	}

	next := make(map[string]string, len(body.Continue))
	for k, v := range body.Continue {
		next[k] = fmt.Sprint(v)
	}
	return batch, next, nil
}

// Next implements Strategy.
func (m *MediaWiki) Next() (domain.FetchTask, bool) {
	if m.stopped || m.next >= len(m.pages) {
		return domain.FetchTask{}, false
	}
	if m.deadline.Expired() {
		m.stopped = true
		return domain.FetchTask{}, false
	}

	page := m.pages[m.next]
	task := domain.FetchTask{
		Index:   m.next,
		Locator: PageLocator(m.base, page.Title),
		Target:  RenderURL(m.base, page.PageID),
	}
	m.next++
	return task, true
}

// Observe implements Strategy.
func (m *MediaWiki) Observe(_ *domain.FetchResult) {}

// Close implements Strategy.
func (m *MediaWiki) Close() error { return nil }

// PageLocator is the canonical index.php URL of a title.
func PageLocator(base, title string) string {
	return base + "index.php?title=" + url.QueryEscape(strings.ReplaceAll(title, " ", "_"))
}

// RenderURL fetches the rendered article body of a page id.
func RenderURL(base string, pageID int) string {
	return base + "index.php?curid=" + strconv.Itoa(pageID) + "&action=render"
}

// scriptBase returns the api.php directory with a trailing slash.
func scriptBase(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", err
	}
	u.RawQuery = ""
	u.Fragment = ""
	dir := u.Path
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[:i+1]
	} else {
		dir = "/"
	}
	u.Path = dir
	u.RawPath = ""
	return u.String(), nil
}
