package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"
	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/jonesrussell/north-cloud/corpus/internal/frontier"
	"github.com/jonesrussell/north-cloud/corpus/internal/logger"
)

// Keys under which callbacks stash response data in the request context.
const (
	ctxKeyResponse = "corpus_response"
	ctxKeyError    = "corpus_error"
	ctxKeyStatus   = "corpus_status"
	ctxKeyHrefs    = "corpus_hrefs"
)

var errNoResponse = errors.New("no response received")

// HTTPFetcher fetches URLs through a colly collector. Non-2xx responses are
// returned as content with their status code.
type HTTPFetcher struct {
	collector *colly.Collector
	transport *captureTransport
	logger    logger.Interface
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a fetcher bound to ctx; cancelling ctx aborts
// outstanding requests.
func NewHTTPFetcher(ctx context.Context, cfg Config, log logger.Interface) (*HTTPFetcher, error) {
	cfg = cfg.WithDefaults()
	if log == nil {
		log = logger.NewNoOp()
	}

	collector := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(0),
	)

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("failed to set rate limit: %w", err)
	}

	collector.SetRequestTimeout(cfg.RequestTimeout)
	transport := newCaptureTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	})
	collector.WithTransport(transport)

	f := &HTTPFetcher{collector: collector, transport: transport, logger: log}
	f.registerCallbacks()

	return f, nil
}

func (f *HTTPFetcher) registerCallbacks() {
	f.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxKeyResponse, r)
		f.logger.Debug("Fetched",
			"url", r.Request.URL.String(),
			"status", r.StatusCode,
			"bytes", len(r.Body),
		)
	})

	f.collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		hrefs, _ := e.Request.Ctx.GetAny(ctxKeyHrefs).([]string)
		e.Request.Ctx.Put(ctxKeyHrefs, append(hrefs, e.Attr("href")))
	})

	f.collector.OnError(func(r *colly.Response, err error) {
		r.Ctx.Put(ctxKeyError, err)
		if r.StatusCode != 0 {
			r.Ctx.Put(ctxKeyStatus, r.StatusCode)
		}
		f.logger.Warn("Request failed",
			"url", r.Request.URL.String(),
			"status", r.StatusCode,
			"error", err,
		)
	})
}

// Fetch performs a GET for task.Target and blocks until callbacks have run.
// Content holds the body bytes as received, with no size cap and no charset
// conversion.
func (f *HTTPFetcher) Fetch(ctx context.Context, task domain.FetchTask) domain.FetchResult {
	if err := ctx.Err(); err != nil {
		return domain.FailedResult(task, nil, err)
	}

	fetchID := uuid.NewString()
	hdr := http.Header{}
	hdr.Set(fetchIDHeader, fetchID)

	reqCtx := colly.NewContext()
	requestErr := f.collector.Request(http.MethodGet, task.Target, nil, reqCtx, hdr)
	body, captured := f.transport.take(fetchID)

	if cbErr, ok := reqCtx.GetAny(ctxKeyError).(error); ok {
		var status *int
		if code, hasCode := reqCtx.GetAny(ctxKeyStatus).(int); hasCode {
			status = domain.IntPtr(code)
		}
		return domain.FailedResult(task, status, cbErr)
	}

	resp, ok := reqCtx.GetAny(ctxKeyResponse).(*colly.Response)
	if !ok {
		if requestErr == nil {
			requestErr = errNoResponse
		}
		return domain.FailedResult(task, nil, requestErr)
	}

	if !captured {
		body = resp.Body
	}

	hrefs, _ := reqCtx.GetAny(ctxKeyHrefs).([]string)
	base := finalURL(resp, task.Target)
	res := domain.FetchResult{
		Index:       task.Index,
		Locator:     task.Locator,
		Depth:       task.Depth,
		StatusCode:  domain.IntPtr(resp.StatusCode),
		Content:     body,
		ContentType: resp.Headers.Get("Content-Type"),
		Outlinks:    frontier.Outlinks(base, hrefs),
		Hrefs:       hrefs,
	}
	if base != nil {
		res.FinalURL = base.String()
	}
	return res
}

// finalURL is the URL that served the response, after redirects.
func finalURL(resp *colly.Response, target string) *url.URL {
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil
	}
	return u
}
