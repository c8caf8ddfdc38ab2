// Package domain holds the records that flow through the ingestion pipeline.
package domain

// FetchTask is one scheduled unit of work. Index is assigned at scheduling
// time and is dense and monotonic within a job.
type FetchTask struct {
	Index int
	// Locator identifies the item in the manifest (URL or repo locator).
	Locator string
	// Target is what the fetcher actually reads: a URL, or a path relative to
	// a repository workspace.
	Target string
	// Depth is the link distance from the crawl start URL; zero elsewhere.
	Depth int
}

// FetchResult is produced exactly once per FetchTask.
type FetchResult struct {
	Index   int
	Locator string
	// FinalURL is the URL that served the response after redirects, if any.
	FinalURL    string
	Depth       int
	StatusCode  *int
	Content     []byte
	ContentType string
	// Outlinks is the sorted, de-duplicated set of absolute http(s) links.
	Outlinks []string
	// Hrefs holds the raw anchor href values in document order.
	Hrefs []string
	// Error is empty when the fetch succeeded.
	Error string
}

// Failed reports whether the fetch produced an error.
func (r *FetchResult) Failed() bool {
	return r.Error != ""
}

// FailedResult builds the result recorded for a task that could not be fetched.
func FailedResult(task FetchTask, statusCode *int, err error) FetchResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return FetchResult{
		Index:      task.Index,
		Locator:    task.Locator,
		Depth:      task.Depth,
		StatusCode: statusCode,
		Error:      msg,
	}
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// StringPtr returns a pointer to v.
func StringPtr(v string) *string {
	return &v
}
