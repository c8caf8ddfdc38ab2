package config_test

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/corpus/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crawlJob() *config.Job {
	return &config.Job{
		Mode:   config.ModeCrawl,
		Common: config.NewCommon("./corpora", "demo"),
		Crawl:  config.NewCrawlOptions("https://example.com/wiki/Main", "example.com"),
	}
}

func fieldMessages(t *testing.T, err error) map[string]string {
	t.Helper()

	var verrs config.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field] = fe.Message
	}
	return out
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	t.Parallel()

	require.NoError(t, crawlJob().Validate())

	repo := &config.Job{
		Mode:   config.ModeRepo,
		Common: config.NewCommon("./corpora", "scipy"),
		Repo:   config.NewRepoOptions("https://github.com/scipy/scipy"),
	}
	require.NoError(t, repo.Validate())

	list := &config.Job{
		Mode:   config.ModeList,
		Common: config.NewCommon("./corpora", "urls"),
		List:   &config.ListOptions{InputFile: "./urls.txt", SkipEmpty: true},
	}
	require.NoError(t, list.Validate())
}

func TestValidate_CorpusName(t *testing.T) {
	t.Parallel()

	job := crawlJob()
	job.Common.CorpusName = "bad name"

	err := job.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidJob)
	assert.Equal(t, "must match [a-zA-Z0-9_-]+", fieldMessages(t, err)["corpus_name"])
}

func TestValidate_CommonRanges(t *testing.T) {
	t.Parallel()

	job := crawlJob()
	job.Common.Concurrency = 65
	job.Common.DownloadDelay = -1
	job.Common.Timeout = 0
	job.Common.TextFormat = "html"

	msgs := fieldMessages(t, job.Validate())
	assert.Equal(t, "must be <= 64", msgs["concurrency"])
	assert.Equal(t, "must be >= 0", msgs["download_delay"])
	assert.Equal(t, "must be > 0", msgs["timeout"])
	assert.Equal(t, "must be one of: plain, markdown", msgs["text_format"])
}

func TestValidate_CrawlOptions(t *testing.T) {
	t.Parallel()

	job := crawlJob()
	job.Crawl.AllowedDomains = nil
	job.Crawl.AllowPattern = "("
	job.Crawl.MaxDepth = 51

	msgs := fieldMessages(t, job.Validate())
	assert.Contains(t, msgs, "allowed_domains")
	assert.Equal(t, "invalid regular expression", msgs["allow_pattern"])
	assert.Equal(t, "must be <= 50", msgs["max_depth"])
}

func TestValidate_MediaWikiRequiresScope(t *testing.T) {
	t.Parallel()

	job := &config.Job{
		Mode:      config.ModeMediaWiki,
		Common:    config.NewCommon("./corpora", "wiki-demo"),
		MediaWiki: &config.MediaWikiOptions{APIURL: "https://en.wikipedia.org/w/api.php"},
	}

	msgs := fieldMessages(t, job.Validate())
	assert.Equal(t, "mediawiki requires category or allpages_prefix", msgs["category"])

	job.MediaWiki.Category = "Machine learning"
	require.NoError(t, job.Validate())
}

func TestValidate_RepoGlobs(t *testing.T) {
	t.Parallel()

	job := &config.Job{
		Mode:   config.ModeRepo,
		Common: config.NewCommon("./corpora", "repo"),
		Repo:   config.NewRepoOptions("https://github.com/owner/repo"),
	}
	job.Repo.Include = []string{"[*.md"}
	job.Repo.MaxFiles = 0

	msgs := fieldMessages(t, job.Validate())
	assert.Equal(t, "invalid glob pattern", msgs["include[0]"])
	assert.Equal(t, "must be >= 1", msgs["max_files"])
}

func TestValidate_RepoRejectsOptionLikeValues(t *testing.T) {
	t.Parallel()

	job := &config.Job{
		Mode:   config.ModeRepo,
		Common: config.NewCommon("./corpora", "repo"),
		Repo:   config.NewRepoOptions("--upload-pack=touch /tmp/x"),
	}
	job.Repo.Ref = "--orphan=x"

	msgs := fieldMessages(t, job.Validate())
	assert.Equal(t, "must not start with '-'", msgs["repo_url"])
	assert.Equal(t, "must not start with '-'", msgs["ref"])
}

func TestValidate_ModeMismatch(t *testing.T) {
	t.Parallel()

	job := &config.Job{Mode: config.ModeList, Common: config.NewCommon("./out", "demo")}
	msgs := fieldMessages(t, job.Validate())
	assert.Equal(t, "config does not match mode", msgs["config"])

	job = &config.Job{Mode: "ftp", Common: config.NewCommon("./out", "demo")}
	msgs = fieldMessages(t, job.Validate())
	assert.Contains(t, msgs["mode"], "unsupported mode")
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	err := config.ValidationErrors{
		{Field: "corpus_name", Message: "is required"},
		{Field: "timeout", Message: "must be > 0"},
	}
	assert.Equal(t, "corpus_name: is required\ntimeout: must be > 0", err.Error())
	assert.True(t, errors.Is(err, config.ErrInvalidJob))
}

func TestMaterialize_SortedMergedConfig(t *testing.T) {
	t.Parallel()

	data, err := config.Materialize(crawlJob())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))

	var payload struct {
		Mode   string         `json:"mode"`
		Config map[string]any `json:"config"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "crawl", payload.Mode)
	assert.Equal(t, "https://example.com/wiki/Main", payload.Config["start_url"])
	assert.Equal(t, "demo", payload.Config["corpus_name"])
	assert.Equal(t, true, payload.Config["store_raw"])

	// "config" sorts before "mode"; nested keys are sorted too.
	text := string(data)
	assert.Less(t, strings.Index(text, `"config"`), strings.Index(text, `"mode"`))
	assert.Less(t, strings.Index(text, `"allowed_domains"`), strings.Index(text, `"start_url"`))
}

func TestPathsAndDurations(t *testing.T) {
	t.Parallel()

	job := crawlJob()
	job.Common.TimeLimit = 90
	job.Common.DownloadDelay = 0.25
	job.Crawl.RandomDelay = 1.5

	assert.Equal(t, filepath.Join("./corpora", "demo"), job.CorpusDir())
	assert.Equal(t, filepath.Join("./corpora", "demo", "manifest.jsonl"), job.ManifestPath())
	assert.Equal(t, filepath.Join("./corpora", "demo", "config.json"), job.ConfigPath())
	assert.Equal(t, 90*time.Second, job.Common.TimeBudget())
	assert.Equal(t, 250*time.Millisecond, job.Common.Delay())
	assert.Equal(t, 30*time.Second, job.Common.RequestTimeout())
	assert.Equal(t, 1500*time.Millisecond, job.Crawl.Jitter())
}
