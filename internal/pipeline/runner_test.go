package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/corpus/internal/config"
	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/jonesrussell/north-cloud/corpus/internal/gitrepo"
	"github.com/jonesrussell/north-cloud/corpus/internal/manifest"
	"github.com/jonesrussell/north-cloud/corpus/internal/pipeline"
	fetcherMock "github.com/jonesrussell/north-cloud/corpus/testutils/mocks/fetcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const article = `<html><body><p>Same article body</p></body></html>`

func wikiServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/Start", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><h1>Start</h1>
<a href="/wiki/B">B</a><a href="/wiki/A#top">A</a>
<a href="/wiki/Special:Random">random</a><a href="https://elsewhere.example/wiki/X">x</a>
</body></html>`)
	})
	for _, name := range []string{"/wiki/A", "/wiki/B"} {
		mux.HandleFunc(name, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, article)
		})
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func readManifest(t *testing.T, job *config.Job) []domain.ManifestEntry {
	t.Helper()
	entries, err := manifest.ReadFile(job.ManifestPath())
	require.NoError(t, err)
	return entries
}

func TestRunner_CrawlEndToEnd(t *testing.T) {
	t.Parallel()

	srv := wikiServer(t)
	common := config.NewCommon(t.TempDir(), "wiki_ml")
	common.StoreText = true
	job := &config.Job{
		Mode:   config.ModeCrawl,
		Common: common,
		Crawl:  config.NewCrawlOptions(srv.URL+"/wiki/Start", "127.0.0.1"),
	}

	result, err := pipeline.NewRunner(nil).Run(context.Background(), job)
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, int64(3), result.Summary.Scheduled)
	assert.Equal(t, int64(1), result.Summary.Duplicates)

	entries := readManifest(t, job)
	require.Len(t, entries, 3)
	for i, entry := range entries {
		assert.Equal(t, i, entry.Index)
	}
	assert.Equal(t, srv.URL+"/wiki/Start", entries[0].URL)
	assert.Equal(t, srv.URL+"/wiki/A", entries[1].URL)
	assert.Equal(t, srv.URL+"/wiki/B", entries[2].URL)

	require.NotNil(t, entries[2].DuplicateOf)
	assert.Equal(t, 1, *entries[2].DuplicateOf)
	assert.Nil(t, entries[2].RawPath)
	assert.Equal(t, *entries[1].ContentSHA256, *entries[2].ContentSHA256)

	require.NotNil(t, entries[0].RawPath)
	assert.True(t, strings.HasPrefix(*entries[0].RawPath, "raw/000000_"))
	assert.FileExists(t, filepath.Join(job.CorpusDir(), filepath.FromSlash(*entries[0].RawPath)))

	require.NotNil(t, entries[0].TextPath)
	text, err := os.ReadFile(filepath.Join(job.CorpusDir(), filepath.FromSlash(*entries[0].TextPath)))
	require.NoError(t, err)
	assert.Contains(t, string(text), "Start")

	require.NotNil(t, entries[0].OutlinksCount)
	assert.Equal(t, 4, *entries[0].OutlinksCount)

	assert.FileExists(t, job.ConfigPath())
}

func listJob(t *testing.T, urls ...string) *config.Job {
	t.Helper()

	dir := t.TempDir()
	input := filepath.Join(dir, "urls.txt")
	require.NoError(t, os.WriteFile(input, []byte(strings.Join(urls, "\n")+"\n"), 0o644))

	return &config.Job{
		Mode:   config.ModeList,
		Common: config.NewCommon(filepath.Join(dir, "out"), "listed"),
		List:   &config.ListOptions{InputFile: input, SkipEmpty: true},
	}
}

func TestRunner_ListOutOfOrderCompletion(t *testing.T) {
	t.Parallel()

	job := listJob(t, "https://a.example/1", "", "https://a.example/2", "https://a.example/3", "https://a.example/4")
	job.Common.Concurrency = 4

	ctrl := gomock.NewController(t)
	mockFetcher := fetcherMock.NewMockFetcher(ctrl)
	mockFetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(4).DoAndReturn(
		func(_ context.Context, task domain.FetchTask) domain.FetchResult {
			time.Sleep(time.Duration(4-task.Index) * 5 * time.Millisecond)
			if task.Index == 2 {
				return domain.FailedResult(task, nil, errors.New("connection refused"))
			}
			return domain.FetchResult{
				Index:       task.Index,
				Locator:     task.Locator,
				StatusCode:  domain.IntPtr(200),
				Content:     []byte("body of " + task.Locator),
				ContentType: "text/plain",
				Outlinks:    []string{},
			}
		})

	result, err := pipeline.NewRunner(nil, pipeline.WithFetcher(mockFetcher)).Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Summary.Failed)

	entries := readManifest(t, job)
	require.Len(t, entries, 4)
	for i, entry := range entries {
		assert.Equal(t, i, entry.Index)
	}
	assert.Equal(t, "https://a.example/3", entries[2].URL)
	require.NotNil(t, entries[2].Error)
	assert.Contains(t, *entries[2].Error, "connection refused")
	assert.Nil(t, entries[2].RawPath)
	require.NotNil(t, entries[3].RawPath)
	assert.True(t, strings.HasSuffix(*entries[3].RawPath, ".bin"))
}

func TestRunner_TimeLimitAwaitsInflight(t *testing.T) {
	t.Parallel()

	const total = 20
	urls := make([]string, total)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://a.example/%d", i)
	}
	job := listJob(t, urls...)
	job.Common.Concurrency = 3
	job.Common.TimeLimit = 1

	ctrl := gomock.NewController(t)
	mockFetcher := fetcherMock.NewMockFetcher(ctrl)
	mockFetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(
		func(_ context.Context, task domain.FetchTask) domain.FetchResult {
			time.Sleep(400 * time.Millisecond)
			return domain.FetchResult{
				Locator:     task.Locator,
				StatusCode:  domain.IntPtr(200),
				Content:     []byte("body of " + task.Locator),
				ContentType: "text/plain",
			}
		})

	result, err := pipeline.NewRunner(nil, pipeline.WithFetcher(mockFetcher)).Run(context.Background(), job)
	require.NoError(t, err)

	scheduled := int(result.Summary.Scheduled)
	assert.Positive(t, scheduled)
	assert.Less(t, scheduled, total)

	entries := readManifest(t, job)
	require.Len(t, entries, scheduled)
	for i, entry := range entries {
		assert.Equal(t, i, entry.Index)
		assert.Nil(t, entry.Error)
	}
}

func TestRunner_PageLimit(t *testing.T) {
	t.Parallel()

	job := listJob(t, "https://a.example/1", "https://a.example/2", "https://a.example/3")
	job.Common.PageLimit = 2

	ctrl := gomock.NewController(t)
	mockFetcher := fetcherMock.NewMockFetcher(ctrl)
	mockFetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(2).DoAndReturn(
		func(_ context.Context, task domain.FetchTask) domain.FetchResult {
			return domain.FetchResult{Locator: task.Locator, Content: []byte(task.Locator)}
		})

	_, err := pipeline.NewRunner(nil, pipeline.WithFetcher(mockFetcher)).Run(context.Background(), job)
	require.NoError(t, err)
	assert.Len(t, readManifest(t, job), 2)
}

func TestRunner_DryRun(t *testing.T) {
	t.Parallel()

	job := listJob(t, "https://a.example/1")
	job.Common.DryRun = true

	ctrl := gomock.NewController(t)
	mockFetcher := fetcherMock.NewMockFetcher(ctrl)

	result, err := pipeline.NewRunner(nil, pipeline.WithFetcher(mockFetcher)).Run(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.NoDirExists(t, job.CorpusDir())
}

func TestRunner_InvalidJob(t *testing.T) {
	t.Parallel()

	job := listJob(t, "https://a.example/1")
	job.Common.Concurrency = 0

	_, err := pipeline.NewRunner(nil).Run(context.Background(), job)
	var verrs config.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.NoDirExists(t, job.CorpusDir())
}

type failingConverter struct{}

func (failingConverter) Name() string { return "failing" }

func (failingConverter) Convert(_ context.Context, _ string) (string, error) {
	return "", &domain.EnvironmentError{Tool: "pandoc", Err: errors.New("exit status 1")}
}

func TestRunner_ConverterFailureIsFatal(t *testing.T) {
	t.Parallel()

	job := listJob(t, "https://a.example/1", "https://a.example/2")
	job.Common.StoreText = true
	job.Common.TextFormat = config.TextFormatMarkdown
	job.Common.Concurrency = 1

	ctrl := gomock.NewController(t)
	mockFetcher := fetcherMock.NewMockFetcher(ctrl)
	mockFetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).MinTimes(1).MaxTimes(2).DoAndReturn(
		func(_ context.Context, task domain.FetchTask) domain.FetchResult {
			return domain.FetchResult{
				Locator:     task.Locator,
				StatusCode:  domain.IntPtr(200),
				Content:     []byte(article),
				ContentType: "text/html",
			}
		})

	runner := pipeline.NewRunner(nil, pipeline.WithFetcher(mockFetcher), pipeline.WithConverter(failingConverter{}))
	_, err := runner.Run(context.Background(), job)
	require.ErrorIs(t, err, domain.ErrEnvironment)
	assert.Empty(t, readManifest(t, job))
}

type staticSnapshotter struct {
	ws *gitrepo.Workspace
}

func (s *staticSnapshotter) Snapshot(_ context.Context, _, _ string) (*gitrepo.Workspace, error) {
	return s.ws, nil
}

func TestRunner_RepoMode(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	ws := &gitrepo.Workspace{Dir: src}
	for name, body := range map[string]string{
		"a.md":        "# A\n",
		"c.md":        "# A\n",
		"drafts/b.md": "draft\n",
		"main.go":     "package main\n",
	} {
		full := filepath.Join(src, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
		ws.Files = append(ws.Files, name)
	}

	repo := config.NewRepoOptions("https://git.example.com/docs.git")
	repo.Include = []string{"*.md"}
	repo.Exclude = []string{"drafts/**"}
	job := &config.Job{
		Mode:   config.ModeRepo,
		Common: config.NewCommon(t.TempDir(), "docs"),
		Repo:   repo,
	}
	job.Common.StoreText = true

	runner := pipeline.NewRunner(nil, pipeline.WithSnapshotter(&staticSnapshotter{ws: ws}))
	result, err := runner.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Summary.Scheduled)

	entries := readManifest(t, job)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://git.example.com/docs.git@HEAD:a.md", entries[0].URL)
	assert.Nil(t, entries[0].StatusCode)
	require.NotNil(t, entries[0].OutlinksCount)
	assert.Equal(t, 0, *entries[0].OutlinksCount)
	require.NotNil(t, entries[1].DuplicateOf)
	assert.Equal(t, 0, *entries[1].DuplicateOf)
}
