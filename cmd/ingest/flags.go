package ingest

import (
	"strings"

	"github.com/jonesrussell/north-cloud/corpus/internal/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CORPUS_OUTPUT_DIR.
const EnvPrefix = "CORPUS"

// Flag names shared by every mode.
const (
	flagOutputDir          = "output-dir"
	flagCorpusName         = "corpus-name"
	flagPageLimit          = "page-limit"
	flagTimeLimit          = "time-limit"
	flagConcurrency        = "concurrency"
	flagDownloadDelay      = "download-delay"
	flagTimeout            = "timeout"
	flagUserAgent          = "user-agent"
	flagStoreRaw           = "store-raw"
	flagStoreText          = "store-text"
	flagStoreOutlinks      = "store-outlinks"
	flagCompress           = "compress"
	flagDeduplicateContent = "deduplicate-content"
	flagTextFormat         = "text-format"
	flagMarkdownConverter  = "markdown-converter"
	flagChromeMarker       = "chrome-marker"
	flagLogLevel           = "log-level"
	flagLogEncoding        = "log-encoding"
	flagDryRun             = "dry-run"
)

// Mode-specific flag names.
const (
	flagStartURL          = "start-url"
	flagAllowedDomain     = "allowed-domain"
	flagMaxDepth          = "max-depth"
	flagAllowPattern      = "allow-pattern"
	flagDenyPattern       = "deny-pattern"
	flagArticlePrefix     = "article-prefix"
	flagExcludedNamespace = "excluded-namespace"
	flagRandomDelay       = "random-delay"

	flagInputFile = "input-file"
	flagSkipEmpty = "skip-empty"

	flagRepoURL  = "repo-url"
	flagRef      = "ref"
	flagSubpath  = "subpath"
	flagInclude  = "include"
	flagExclude  = "exclude"
	flagMaxFiles = "max-files"

	flagAPIURL         = "api-url"
	flagCategory       = "category"
	flagNamespace      = "namespace"
	flagAllpagesPrefix = "allpages-prefix"
)

// ConfigureEnv makes v read CORPUS_* environment variables, with dashes in
// flag names mapped to underscores.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

func addCommonFlags(fs *pflag.FlagSet) {
	d := config.NewCommon("", "")

	fs.String(flagOutputDir, "", "Root output directory")
	fs.String(flagCorpusName, "", "Corpus name (letters, numbers, _ and -)")
	fs.Int(flagPageLimit, d.PageLimit, "Max pages/items to fetch")
	fs.Int(flagTimeLimit, 0, "Time limit in seconds (0 for none)")
	fs.Int(flagConcurrency, d.Concurrency, "Concurrent requests (1-64)")
	fs.Float64(flagDownloadDelay, 0, "Delay between requests in seconds")
	fs.Float64(flagTimeout, d.Timeout, "Request timeout in seconds")
	fs.String(flagUserAgent, d.UserAgent, "User agent sent with every request")
	fs.Bool(flagStoreRaw, d.StoreRaw, "Store raw responses")
	fs.Bool(flagStoreText, d.StoreText, "Store extracted text")
	fs.Bool(flagStoreOutlinks, d.StoreOutlinks, "Store outlinks")
	fs.Bool(flagCompress, d.Compress, "Gzip stored artifacts")
	fs.Bool(flagDeduplicateContent, d.DeduplicateContent, "Skip storing items whose content was already seen")
	fs.String(flagTextFormat, d.TextFormat, "Text format: plain or markdown")
	fs.String(flagMarkdownConverter, d.MarkdownConverter, "Markdown converter: html-to-markdown or pandoc")
	fs.StringSlice(flagChromeMarker, d.ChromeMarkers, "Class or id token pruned before markdown conversion (repeatable)")
	fs.String(flagLogLevel, d.LogLevel, "Log level: DEBUG, INFO, WARNING or ERROR")
	fs.String(flagLogEncoding, "console", "Log encoding: console or json")
	fs.Bool(flagDryRun, false, "Validate and print the resolved job without fetching or writing")
}

func commonFromViper(v *viper.Viper) config.Common {
	c := config.NewCommon(v.GetString(flagOutputDir), v.GetString(flagCorpusName))
	c.PageLimit = v.GetInt(flagPageLimit)
	c.TimeLimit = v.GetInt(flagTimeLimit)
	c.Concurrency = v.GetInt(flagConcurrency)
	c.DownloadDelay = v.GetFloat64(flagDownloadDelay)
	c.Timeout = v.GetFloat64(flagTimeout)
	c.UserAgent = v.GetString(flagUserAgent)
	c.StoreRaw = v.GetBool(flagStoreRaw)
	c.StoreText = v.GetBool(flagStoreText)
	c.StoreOutlinks = v.GetBool(flagStoreOutlinks)
	c.Compress = v.GetBool(flagCompress)
	c.DeduplicateContent = v.GetBool(flagDeduplicateContent)
	c.TextFormat = v.GetString(flagTextFormat)
	c.MarkdownConverter = v.GetString(flagMarkdownConverter)
	c.ChromeMarkers = v.GetStringSlice(flagChromeMarker)
	c.LogLevel = strings.ToUpper(v.GetString(flagLogLevel))
	c.DryRun = v.GetBool(flagDryRun)
	return c
}

func addCrawlFlags(fs *pflag.FlagSet) {
	d := config.NewCrawlOptions("")
	fs.String(flagStartURL, "", "Start URL for crawling")
	fs.StringSlice(flagAllowedDomain, nil, "Allowed domain (repeatable); subdomains are included")
	fs.Int(flagMaxDepth, d.MaxDepth, "Max crawl depth (0-50)")
	fs.String(flagAllowPattern, "", "Only follow URLs matching this regex")
	fs.String(flagDenyPattern, "", "Never follow URLs matching this regex")
	fs.String(flagArticlePrefix, d.ArticlePrefix, "Path prefix of article pages")
	fs.StringSlice(flagExcludedNamespace, d.ExcludedNamespaces, "Namespace never followed (repeatable)")
	fs.Float64(flagRandomDelay, 0, "Extra random delay between requests in seconds")
}

func crawlFromViper(v *viper.Viper) *config.CrawlOptions {
	o := config.NewCrawlOptions(v.GetString(flagStartURL), v.GetStringSlice(flagAllowedDomain)...)
	o.MaxDepth = v.GetInt(flagMaxDepth)
	o.AllowPattern = v.GetString(flagAllowPattern)
	o.DenyPattern = v.GetString(flagDenyPattern)
	o.ArticlePrefix = v.GetString(flagArticlePrefix)
	o.ExcludedNamespaces = v.GetStringSlice(flagExcludedNamespace)
	o.RandomDelay = v.GetFloat64(flagRandomDelay)
	return o
}

func addListFlags(fs *pflag.FlagSet) {
	fs.String(flagInputFile, "", "File with URLs, one per line")
	fs.Bool(flagSkipEmpty, true, "Skip empty lines")
}

func listFromViper(v *viper.Viper) *config.ListOptions {
	return &config.ListOptions{
		InputFile: v.GetString(flagInputFile),
		SkipEmpty: v.GetBool(flagSkipEmpty),
	}
}

func addRepoFlags(fs *pflag.FlagSet) {
	d := config.NewRepoOptions("")
	fs.String(flagRepoURL, "", "Git repository URL")
	fs.String(flagRef, d.Ref, "Branch, tag or commit")
	fs.String(flagSubpath, "", "Only consider files under this directory")
	fs.StringSlice(flagInclude, d.Include, "Include glob (repeatable)")
	fs.StringSlice(flagExclude, d.Exclude, "Exclude glob (repeatable)")
	fs.Int(flagMaxFiles, d.MaxFiles, "Max files to include")
}

func repoFromViper(v *viper.Viper) *config.RepoOptions {
	o := config.NewRepoOptions(v.GetString(flagRepoURL))
	o.Ref = v.GetString(flagRef)
	o.Subpath = v.GetString(flagSubpath)
	o.Include = v.GetStringSlice(flagInclude)
	o.Exclude = v.GetStringSlice(flagExclude)
	o.MaxFiles = v.GetInt(flagMaxFiles)
	return o
}

func addMediaWikiFlags(fs *pflag.FlagSet) {
	fs.String(flagAPIURL, "", "MediaWiki API URL, e.g. https://en.wikipedia.org/w/api.php")
	fs.String(flagCategory, "", "Category to list")
	fs.Int(flagNamespace, 0, "Namespace id")
	fs.String(flagAllpagesPrefix, "", "List all pages with this title prefix")
}

func mediaWikiFromViper(v *viper.Viper) *config.MediaWikiOptions {
	return &config.MediaWikiOptions{
		APIURL:         v.GetString(flagAPIURL),
		Category:       v.GetString(flagCategory),
		Namespace:      v.GetInt(flagNamespace),
		AllpagesPrefix: v.GetString(flagAllpagesPrefix),
	}
}

// BuildJob assembles the job for mode from flags, environment and config
// file values held by v. The result is not validated.
func BuildJob(mode config.Mode, v *viper.Viper) *config.Job {
	job := &config.Job{Mode: mode, Common: commonFromViper(v)}
	switch mode {
	case config.ModeCrawl:
		job.Crawl = crawlFromViper(v)
	case config.ModeList:
		job.List = listFromViper(v)
	case config.ModeRepo:
		job.Repo = repoFromViper(v)
	case config.ModeMediaWiki:
		job.MediaWiki = mediaWikiFromViper(v)
	}
	return job
}
