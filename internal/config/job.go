// Package config defines the job descriptor handed to the ingestion pipeline:
// every recognised option as a typed field, defaults, validation and the
// materialised JSON form written to config.json.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"
)

// Common holds the options shared by every mode.
type Common struct {
	OutputDir          string   `json:"output_dir" validate:"required"`
	CorpusName         string   `json:"corpus_name" validate:"required,corpusname"`
	PageLimit          int      `json:"page_limit" validate:"gte=0"`
	TimeLimit          int      `json:"time_limit" validate:"gte=0"`
	Concurrency        int      `json:"concurrency" validate:"gte=1,lte=64"`
	DownloadDelay      float64  `json:"download_delay" validate:"gte=0"`
	Timeout            float64  `json:"timeout" validate:"gt=0"`
	UserAgent          string   `json:"user_agent"`
	StoreRaw           bool     `json:"store_raw"`
	StoreText          bool     `json:"store_text"`
	StoreOutlinks      bool     `json:"store_outlinks"`
	Compress           bool     `json:"compress"`
	DeduplicateContent bool     `json:"deduplicate_content"`
	TextFormat         string   `json:"text_format" validate:"oneof=plain markdown"`
	MarkdownConverter  string   `json:"markdown_converter" validate:"oneof=html-to-markdown pandoc"`
	ChromeMarkers      []string `json:"chrome_markers"`
	LogLevel           string   `json:"log_level" validate:"oneof=DEBUG INFO WARNING ERROR"`
	DryRun             bool     `json:"dry_run"`
}

// CrawlOptions configures link-following discovery.
type CrawlOptions struct {
	StartURL           string   `json:"start_url" validate:"required,http_url"`
	AllowedDomains     []string `json:"allowed_domains" validate:"min=1,dive,required"`
	MaxDepth           int      `json:"max_depth" validate:"gte=0,lte=50"`
	AllowPattern       string   `json:"allow_pattern" validate:"omitempty,regexp"`
	DenyPattern        string   `json:"deny_pattern" validate:"omitempty,regexp"`
	ArticlePrefix      string   `json:"article_prefix" validate:"required,startswith=/"`
	ExcludedNamespaces []string `json:"excluded_namespaces"`
	RandomDelay        float64  `json:"random_delay" validate:"gte=0"`
}

// ListOptions configures fixed-list discovery.
type ListOptions struct {
	InputFile string `json:"input_file" validate:"required"`
	SkipEmpty bool   `json:"skip_empty"`
}

// RepoOptions configures repository snapshot discovery.
type RepoOptions struct {
	RepoURL  string   `json:"repo_url" validate:"required,notoption"`
	Ref      string   `json:"ref" validate:"required,notoption"`
	Subpath  string   `json:"subpath"`
	Include  []string `json:"include" validate:"dive,glob"`
	Exclude  []string `json:"exclude" validate:"dive,glob"`
	MaxFiles int      `json:"max_files" validate:"gte=1,lte=1000000"`
}

// MediaWikiOptions configures MediaWiki API listing.
type MediaWikiOptions struct {
	APIURL         string `json:"api_url" validate:"required,http_url"`
	Category       string `json:"category"`
	Namespace      int    `json:"namespace" validate:"gte=0"`
	AllpagesPrefix string `json:"allpages_prefix"`
}

// Job is the immutable descriptor for one ingestion run. Exactly one of the
// mode option pointers is set, matching Mode.
type Job struct {
	Mode      Mode
	Common    Common
	Crawl     *CrawlOptions
	List      *ListOptions
	Repo      *RepoOptions
	MediaWiki *MediaWikiOptions
}

// NewCommon returns Common populated with defaults.
func NewCommon(outputDir, corpusName string) Common {
	return Common{
		OutputDir:          outputDir,
		CorpusName:         corpusName,
		PageLimit:          DefaultPageLimit,
		Concurrency:        DefaultConcurrency,
		Timeout:            DefaultTimeout,
		UserAgent:          DefaultUserAgent,
		StoreRaw:           true,
		StoreOutlinks:      true,
		DeduplicateContent: true,
		TextFormat:         DefaultTextFormat,
		MarkdownConverter:  DefaultMarkdownConverter,
		ChromeMarkers:      append([]string(nil), DefaultChromeMarkers...),
		LogLevel:           DefaultLogLevel,
	}
}

// NewCrawlOptions returns CrawlOptions populated with defaults.
func NewCrawlOptions(startURL string, allowedDomains ...string) *CrawlOptions {
	return &CrawlOptions{
		StartURL:           startURL,
		AllowedDomains:     allowedDomains,
		MaxDepth:           DefaultMaxDepth,
		ArticlePrefix:      DefaultArticlePrefix,
		ExcludedNamespaces: append([]string(nil), DefaultExcludedNamespaces...),
	}
}

// NewRepoOptions returns RepoOptions populated with defaults.
func NewRepoOptions(repoURL string) *RepoOptions {
	return &RepoOptions{
		RepoURL:  repoURL,
		Ref:      DefaultRef,
		Include:  []string{DefaultIncludeGlob},
		Exclude:  []string{},
		MaxFiles: DefaultMaxFiles,
	}
}

// CorpusDir is output_dir/corpus_name.
func (j *Job) CorpusDir() string {
	return filepath.Join(j.Common.OutputDir, j.Common.CorpusName)
}

// ConfigPath is the location of the materialised job.
func (j *Job) ConfigPath() string {
	return filepath.Join(j.CorpusDir(), ConfigFileName)
}

// ManifestPath is the location of the manifest.
func (j *Job) ManifestPath() string {
	return filepath.Join(j.CorpusDir(), ManifestFileName)
}

// RequestTimeout is the per-request timeout.
func (c *Common) RequestTimeout() time.Duration {
	return seconds(c.Timeout)
}

// Delay is the per-request download delay.
func (c *Common) Delay() time.Duration {
	return seconds(c.DownloadDelay)
}

// TimeBudget is the wall-clock budget; zero means unlimited.
func (c *Common) TimeBudget() time.Duration {
	return time.Duration(c.TimeLimit) * time.Second
}

// Jitter is the random delay added to each crawl request.
func (o *CrawlOptions) Jitter() time.Duration {
	return seconds(o.RandomDelay)
}

func (j *Job) modeOptions() any {
	switch j.Mode {
	case ModeCrawl:
		return j.Crawl
	case ModeList:
		return j.List
	case ModeRepo:
		return j.Repo
	case ModeMediaWiki:
		return j.MediaWiki
	default:
		return nil
	}
}

// MarshalJSON renders {"mode": ..., "config": {...}} where config merges the
// common and mode-specific options. Maps are encoded with sorted keys.
func (j *Job) MarshalJSON() ([]byte, error) {
	merged := make(map[string]any)
	if err := mergeFields(merged, j.Common); err != nil {
		return nil, err
	}
	if opts := j.modeOptions(); opts != nil {
		if err := mergeFields(merged, opts); err != nil {
			return nil, err
		}
	}
	return json.Marshal(map[string]any{
		"mode":   j.Mode,
		"config": merged,
	})
}

// Materialize returns the indented JSON form written to config.json and
// echoed on stdout.
func Materialize(job *Job) ([]byte, error) {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("materialize job: %w", err)
	}
	return append(data, '\n'), nil
}

func mergeFields(dst map[string]any, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %T: %w", v, err)
	}
	var fields map[string]any
	if err = json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	for k, val := range fields {
		dst[k] = val
	}
	return nil
}
