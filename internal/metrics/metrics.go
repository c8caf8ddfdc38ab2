// Package metrics collects per-job ingestion statistics.
package metrics

import (
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
)

// Metrics holds the counters of one ingestion job.
type Metrics struct {
	// Scheduled is the number of tasks dispatched.
	Scheduled int64
	// Fetched is the number of items that returned content.
	Fetched int64
	// Failed is the number of items recorded with an error.
	Failed int64
	// Empty is the number of items that returned no content.
	Empty int64
	// Duplicates is the number of items whose content was seen before.
	Duplicates int64
	// Stored is the number of items with at least one artifact written.
	Stored int64
	// Bytes is the total content size received.
	Bytes int64
	// StartTime is when the job began.
	StartTime time.Time
	// EndTime is when the job finished; zero while running.
	EndTime time.Time
	mu      sync.Mutex
}

// Summary is an immutable copy of the counters.
type Summary struct {
	Scheduled  int64
	Fetched    int64
	Failed     int64
	Empty      int64
	Duplicates int64
	Stored     int64
	Bytes      int64
	Elapsed    time.Duration
}

// NewMetrics creates a new Metrics instance starting now.
func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// IncrementScheduled counts a dispatched task.
func (m *Metrics) IncrementScheduled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scheduled++
}

// Record classifies a processed item by its manifest entry.
func (m *Metrics) Record(entry *domain.ManifestEntry, contentBytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Bytes += int64(contentBytes)
	switch {
	case entry.Error != nil:
		m.Failed++
		return
	case entry.ContentSHA256 == nil:
		m.Empty++
		return
	}

	m.Fetched++
	if entry.IsDuplicate() {
		m.Duplicates++
		return
	}
	if entry.RawPath != nil || entry.TextPath != nil || entry.OutlinksPath != nil {
		m.Stored++
	}
}

// Finish stamps the end time.
func (m *Metrics) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EndTime.IsZero() {
		m.EndTime = time.Now()
	}
}

// Summary returns a snapshot of the counters.
func (m *Metrics) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := m.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return Summary{
		Scheduled:  m.Scheduled,
		Fetched:    m.Fetched,
		Failed:     m.Failed,
		Empty:      m.Empty,
		Duplicates: m.Duplicates,
		Stored:     m.Stored,
		Bytes:      m.Bytes,
		Elapsed:    end.Sub(m.StartTime),
	}
}
