package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jonesrussell/north-cloud/corpus/internal/config"
	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/jonesrussell/north-cloud/corpus/internal/fetcher"
	"github.com/jonesrussell/north-cloud/corpus/internal/gitrepo"
	"github.com/jonesrussell/north-cloud/corpus/internal/logger"
)

var errWorkspaceClosed = errors.New("repository workspace is not open")

// Snapshotter checks out a repository into a temporary workspace.
type Snapshotter interface {
	Snapshot(ctx context.Context, url, ref string) (*gitrepo.Workspace, error)
}

// Repo ingests the selected files of a repository snapshot. It reads files
// itself, one at a time.
type Repo struct {
	opts     *config.RepoOptions
	git      Snapshotter
	deadline *Deadline
	logger   logger.Interface

	ws      *gitrepo.Workspace
	root    *os.Root
	files   []string
	next    int
	stopped bool
}

var (
	_ Strategy        = (*Repo)(nil)
	_ LocalSource     = (*Repo)(nil)
	_ fetcher.Fetcher = (*Repo)(nil)
)

// NewRepo creates a repository strategy.
func NewRepo(opts *config.RepoOptions, git Snapshotter, deadline *Deadline, log logger.Interface) *Repo {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Repo{opts: opts, git: git, deadline: deadline, logger: log}
}

// Name implements Strategy.
func (r *Repo) Name() string { return string(config.ModeRepo) }

// Open clones and checks out the repository and selects files. Any git
// failure aborts the job.
func (r *Repo) Open(ctx context.Context) error {
	ws, err := r.git.Snapshot(ctx, r.opts.RepoURL, r.opts.Ref)
	if err != nil {
		return err
	}
	r.ws = ws

	root, err := os.OpenRoot(ws.Dir)
	if err != nil {
		return &domain.FilesystemError{Op: "open", Path: ws.Dir, Err: err}
	}
	r.root = root

	r.files = gitrepo.SelectFiles(ws.Files, gitrepo.Selection{
		Subpath:  r.opts.Subpath,
		Include:  r.opts.Include,
		Exclude:  r.opts.Exclude,
		MaxFiles: r.opts.MaxFiles,
	})

	r.logger.Info("Repository checked out",
		"repo_url", r.opts.RepoURL,
		"ref", r.opts.Ref,
		"tracked", len(ws.Files),
		"selected", len(r.files),
	)
	return nil
}

// Locator renders the manifest locator of a repository file.
func Locator(repoURL, ref, relPath string) string {
	return fmt.Sprintf("%s@%s:%s", repoURL, ref, relPath)
}

// Next implements Strategy.
func (r *Repo) Next() (domain.FetchTask, bool) {
	if r.stopped || r.next >= len(r.files) {
		return domain.FetchTask{}, false
	}
	if r.deadline.Expired() {
		r.stopped = true
		r.logger.Info("Time limit reached, remaining files skipped", "remaining", len(r.files)-r.next)
		return domain.FetchTask{}, false
	}

	rel := r.files[r.next]
	task := domain.FetchTask{
		Index:   r.next,
		Locator: Locator(r.opts.RepoURL, r.opts.Ref, rel),
		Target:  rel,
	}
	r.next++
	return task, true
}

// Observe implements Strategy.
func (r *Repo) Observe(_ *domain.FetchResult) {}

// Fetcher implements LocalSource.
func (r *Repo) Fetcher() fetcher.Fetcher { return r }

// Fetch reads a selected file from the workspace. Repository files carry no
// status code and no outlinks.
func (r *Repo) Fetch(_ context.Context, task domain.FetchTask) domain.FetchResult {
	if r.root == nil {
		return domain.FailedResult(task, nil, errWorkspaceClosed)
	}

	f, err := r.root.Open(filepath.FromSlash(task.Target))
	if err != nil {
		return domain.FailedResult(task, nil, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.FailedResult(task, nil, err)
	}

	return domain.FetchResult{
		Index:       task.Index,
		Locator:     task.Locator,
		Content:     data,
		ContentType: mimetype.Detect(data).String(),
		Outlinks:    []string{},
	}
}

// Close releases the workspace.
func (r *Repo) Close() error {
	var errs []error
	if r.root != nil {
		errs = append(errs, r.root.Close())
		r.root = nil
	}
	if r.ws != nil {
		errs = append(errs, r.ws.Close())
		r.ws = nil
	}
	return errors.Join(errs...)
}
