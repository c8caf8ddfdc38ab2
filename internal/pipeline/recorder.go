package pipeline

import (
	"context"

	"github.com/jonesrussell/north-cloud/corpus/internal/content"
	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/jonesrussell/north-cloud/corpus/internal/logger"
	"github.com/jonesrussell/north-cloud/corpus/internal/manifest"
	"github.com/jonesrussell/north-cloud/corpus/internal/metrics"
)

// EntryWriter persists manifest entries.
type EntryWriter interface {
	Write(entry domain.ManifestEntry) error
}

// CorpusRecorder processes each result and appends its manifest line.
type CorpusRecorder struct {
	processor *content.Processor
	manifest  EntryWriter
	metrics   *metrics.Metrics
	logger    logger.Interface
}

var (
	_ Recorder    = (*CorpusRecorder)(nil)
	_ EntryWriter = (*manifest.Writer)(nil)
)

// NewCorpusRecorder creates a CorpusRecorder.
func NewCorpusRecorder(p *content.Processor, w EntryWriter, m *metrics.Metrics, log logger.Interface) *CorpusRecorder {
	if m == nil {
		m = metrics.NewMetrics()
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	return &CorpusRecorder{processor: p, manifest: w, metrics: m, logger: log}
}

// Record implements Recorder.
func (r *CorpusRecorder) Record(ctx context.Context, res *domain.FetchResult) error {
	entry, err := r.processor.Process(ctx, res)
	if err != nil {
		return err
	}
	if err = r.manifest.Write(entry); err != nil {
		return err
	}
	r.metrics.Record(&entry, len(res.Content))

	switch {
	case entry.Error != nil:
		r.logger.Warn("Item failed", "index", entry.Index, "url", entry.URL, "error", *entry.Error)
	case entry.IsDuplicate():
		r.logger.Info("Duplicate", "index", entry.Index, "url", entry.URL, "duplicate_of", *entry.DuplicateOf)
	default:
		r.logger.Info("Recorded", "index", entry.Index, "url", entry.URL, "status", statusField(entry.StatusCode))
	}
	return nil
}

func statusField(code *int) any {
	if code == nil {
		return nil
	}
	return *code
}
