package fetcher

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// fetchIDHeader tags outgoing requests so the transport can hand the
// received body back to the Fetch call that issued it. It is removed before
// the request leaves the process.
const fetchIDHeader = "X-Corpus-Fetch-Id"

// captureTransport records each response body exactly as received, before
// colly applies charset conversion. Redirect hops carry the same id, so the
// final hop's body is the one kept.
type captureTransport struct {
	next   http.RoundTripper
	bodies sync.Map
}

func newCaptureTransport(next http.RoundTripper) *captureTransport {
	return &captureTransport{next: next}
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	id := req.Header.Get(fetchIDHeader)
	if id == "" {
		return t.next.RoundTrip(req)
	}

	out := req.Clone(req.Context())
	out.Header.Del(fetchIDHeader)

	resp, err := t.next.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close response body: %w", closeErr)
	}

	t.bodies.Store(id, body)
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

// take returns and forgets the body captured for id.
func (t *captureTransport) take(id string) ([]byte, bool) {
	v, ok := t.bodies.LoadAndDelete(id)
	if !ok {
		return nil, false
	}
	body, _ := v.([]byte)
	return body, true
}
