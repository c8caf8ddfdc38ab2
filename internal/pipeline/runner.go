package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jonesrussell/north-cloud/corpus/internal/config"
	"github.com/jonesrussell/north-cloud/corpus/internal/content"
	"github.com/jonesrussell/north-cloud/corpus/internal/discovery"
	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/jonesrussell/north-cloud/corpus/internal/fetcher"
	"github.com/jonesrussell/north-cloud/corpus/internal/gitrepo"
	"github.com/jonesrussell/north-cloud/corpus/internal/logger"
	"github.com/jonesrussell/north-cloud/corpus/internal/manifest"
	"github.com/jonesrussell/north-cloud/corpus/internal/metrics"
	"github.com/jonesrussell/north-cloud/corpus/internal/storage"
)

const corpusDirPerm = 0o755

// Result describes a finished job.
type Result struct {
	RunID        string
	Mode         config.Mode
	CorpusDir    string
	ManifestPath string
	DryRun       bool
	Summary      metrics.Summary
}

// Option customises a Runner.
type Option func(*Runner)

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(r *Runner) { r.fetcher = f }
}

// WithSnapshotter replaces the git client used in repo mode.
func WithSnapshotter(s discovery.Snapshotter) Option {
	return func(r *Runner) { r.snapshotter = s }
}

// WithConverter replaces the markdown converter named by the job.
func WithConverter(c content.Converter) Option {
	return func(r *Runner) { r.converter = c }
}

// Runner executes ingestion jobs. Each Run builds fresh job-scoped state.
type Runner struct {
	logger      logger.Interface
	fetcher     fetcher.Fetcher
	snapshotter discovery.Snapshotter
	converter   content.Converter
}

// NewRunner creates a Runner.
func NewRunner(log logger.Interface, opts ...Option) *Runner {
	if log == nil {
		log = logger.NewNoOp()
	}
	r := &Runner{logger: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run validates job and, unless it is a dry run, ingests it into
// output_dir/corpus_name. A dry run touches neither the filesystem nor the
// network.
func (r *Runner) Run(ctx context.Context, job *config.Job) (*Result, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	log := r.logger.With("run_id", runID, "mode", string(job.Mode), "corpus", job.Common.CorpusName)
	deadline := discovery.NewDeadline(job.Common.TimeBudget())
	stats := metrics.NewMetrics()

	result := &Result{
		RunID:        runID,
		Mode:         job.Mode,
		CorpusDir:    job.CorpusDir(),
		ManifestPath: job.ManifestPath(),
		DryRun:       job.Common.DryRun,
	}

	if job.Common.DryRun {
		log.Info("Dry run, nothing fetched or written", "corpus_dir", result.CorpusDir)
		stats.Finish()
		result.Summary = stats.Summary()
		return result, nil
	}

	procOpts := content.OptionsFromCommon(&job.Common)
	converter, err := r.resolveConverter(job, procOpts)
	if err != nil {
		return nil, err
	}
	snapshotter, err := r.resolveSnapshotter(job, log)
	if err != nil {
		return nil, err
	}

	if err = prepareCorpus(job); err != nil {
		return nil, err
	}

	w, err := manifest.Open(job.ManifestPath())
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil {
			log.Error("Failed to close manifest", "error", closeErr)
		}
	}()

	httpFetcher, err := r.resolveFetcher(ctx, job, log)
	if err != nil {
		return nil, err
	}

	strategy, err := newStrategy(job, httpFetcher, snapshotter, deadline, log)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := strategy.Close(); closeErr != nil {
			log.Warn("Failed to release discovery resources", "error", closeErr)
		}
	}()

	store := storage.New(job.CorpusDir())
	log.Info("Starting ingestion",
		"corpus_dir", store.Root(),
		"manifest", w.Path(),
		"page_limit", job.Common.PageLimit,
		"concurrency", job.Common.Concurrency,
		"time_limit", job.Common.TimeLimit,
	)

	if err = strategy.Open(ctx); err != nil {
		return nil, err
	}

	itemFetcher := httpFetcher
	concurrency := job.Common.Concurrency
	if local, ok := strategy.(discovery.LocalSource); ok {
		itemFetcher = local.Fetcher()
		concurrency = 1
	}

	processor := content.NewProcessor(procOpts, store, content.NewDedupTable(), converter, log.WithComponent("content"))
	recorder := NewCorpusRecorder(processor, w, stats, log.WithComponent("recorder"))
	scheduler := NewScheduler(concurrency, stats, log.WithComponent("scheduler"))

	runErr := scheduler.Run(ctx, strategy, itemFetcher, recorder)
	stats.Finish()
	result.Summary = stats.Summary()

	if runErr != nil {
		log.Error("Ingestion aborted", "error", runErr, "recorded", w.Count())
		return result, runErr
	}

	log.Info("Ingestion complete",
		"scheduled", result.Summary.Scheduled,
		"stored", result.Summary.Stored,
		"duplicates", result.Summary.Duplicates,
		"failed", result.Summary.Failed,
		"elapsed", result.Summary.Elapsed.String(),
	)
	return result, nil
}

func (r *Runner) resolveConverter(job *config.Job, opts content.Options) (content.Converter, error) {
	if r.converter != nil || !opts.NeedsConverter() {
		return r.converter, nil
	}
	return content.NewConverter(job.Common.MarkdownConverter)
}

func (r *Runner) resolveSnapshotter(job *config.Job, log logger.Interface) (discovery.Snapshotter, error) {
	if job.Mode != config.ModeRepo || r.snapshotter != nil {
		return r.snapshotter, nil
	}
	return gitrepo.NewClient(log.WithComponent("git"))
}

func (r *Runner) resolveFetcher(ctx context.Context, job *config.Job, log logger.Interface) (fetcher.Fetcher, error) {
	if r.fetcher != nil || job.Mode == config.ModeRepo {
		return r.fetcher, nil
	}
	return fetcher.NewHTTPFetcher(ctx, fetcher.ConfigFromJob(job), log.WithComponent("fetcher"))
}

// prepareCorpus creates the corpus directory and writes config.json.
func prepareCorpus(job *config.Job) error {
	dir := job.CorpusDir()
	if err := os.MkdirAll(dir, corpusDirPerm); err != nil {
		return &domain.FilesystemError{Op: "mkdir", Path: dir, Err: err}
	}

	data, err := config.Materialize(job)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, config.ConfigFileName)
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return &domain.FilesystemError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func newStrategy(
	job *config.Job,
	f fetcher.Fetcher,
	snapshotter discovery.Snapshotter,
	deadline *discovery.Deadline,
	log logger.Interface,
) (discovery.Strategy, error) {
	limit := job.Common.PageLimit
	dlog := log.WithComponent("discovery")

	switch job.Mode {
	case config.ModeCrawl:
		return discovery.NewCrawl(job.Crawl, limit, deadline, dlog)
	case config.ModeList:
		return discovery.NewList(job.List, limit, deadline, dlog), nil
	case config.ModeRepo:
		return discovery.NewRepo(job.Repo, snapshotter, deadline, dlog), nil
	case config.ModeMediaWiki:
		return discovery.NewMediaWiki(job.MediaWiki, f, limit, deadline, dlog), nil
	default:
		return nil, fmt.Errorf("%w: unsupported mode %q", domain.ErrRuntime, job.Mode)
	}
}
