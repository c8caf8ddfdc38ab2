package config

import "time"

// Mode selects the discovery strategy for a job.
type Mode string

// Supported modes.
const (
	ModeCrawl     Mode = "crawl"
	ModeList      Mode = "list"
	ModeRepo      Mode = "repo"
	ModeMediaWiki Mode = "mediawiki"
)

// Text formats.
const (
	TextFormatPlain    = "plain"
	TextFormatMarkdown = "markdown"
)

// Markdown converters.
const (
	ConverterHTMLToMarkdown = "html-to-markdown"
	ConverterPandoc         = "pandoc"
)

// Default configuration values.
const (
	DefaultPageLimit         = 500
	DefaultConcurrency       = 4
	DefaultTimeout           = 30.0
	DefaultUserAgent         = "corpus-scraper/1.0"
	DefaultTextFormat        = TextFormatPlain
	DefaultMarkdownConverter = ConverterHTMLToMarkdown
	DefaultLogLevel          = "INFO"
	DefaultMaxDepth          = 3
	DefaultArticlePrefix     = "/wiki/"
	DefaultRef               = "HEAD"
	DefaultMaxFiles          = 100
	DefaultIncludeGlob       = "**/*"

	// MaxConcurrency is the upper bound for the concurrency setting.
	MaxConcurrency = 64
	// MaxDepthLimit is the upper bound for crawl max_depth.
	MaxDepthLimit = 50
	// MaxFilesLimit is the upper bound for repo max_files.
	MaxFilesLimit = 1_000_000
)

// Corpus layout names.
const (
	ConfigFileName   = "config.json"
	ManifestFileName = "manifest.jsonl"
)

// DefaultExcludedNamespaces are MediaWiki namespaces that are never articles.
var DefaultExcludedNamespaces = []string{
	"Special", "Talk", "Category", "File", "Template", "Help", "Wikipedia",
	"Portal", "Draft", "TimedText", "Module", "User", "User_talk", "Book",
}

// DefaultChromeMarkers are class or id tokens pruned before markdown conversion.
var DefaultChromeMarkers = []string{
	"navbox", "vertical-navbox", "mw-navigation", "mw-editsection", "catlinks",
	"sidebar", "toc", "navbar", "breadcrumb", "footer", "header", "menu",
	"advertisement", "social", "share", "comments", "related",
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
