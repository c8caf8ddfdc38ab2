// Package content classifies fetched items as new or duplicate, derives their
// text and outlink artifacts, and persists them through the storage layer.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"

	"github.com/jonesrussell/north-cloud/corpus/internal/config"
	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/jonesrussell/north-cloud/corpus/internal/logger"
	"github.com/jonesrussell/north-cloud/corpus/internal/storage"
)

const slugHashLen = 12

// Artifact extensions.
const (
	extHTML     = ".html"
	extBinary   = ".bin"
	extText     = ".txt"
	extMarkdown = ".md"
	extJSON     = ".json"
)

// Options selects which artifacts are derived for each item.
type Options struct {
	StoreRaw      bool
	StoreText     bool
	StoreOutlinks bool
	Compress      bool
	Deduplicate   bool
	TextFormat    string
	ChromeMarkers []string
}

// OptionsFromCommon maps job settings onto processor options.
func OptionsFromCommon(c *config.Common) Options {
	return Options{
		StoreRaw:      c.StoreRaw,
		StoreText:     c.StoreText,
		StoreOutlinks: c.StoreOutlinks,
		Compress:      c.Compress,
		Deduplicate:   c.DeduplicateContent,
		TextFormat:    c.TextFormat,
		ChromeMarkers: c.ChromeMarkers,
	}
}

// NeedsConverter reports whether markdown conversion will be invoked.
func (o Options) NeedsConverter() bool {
	return o.StoreText && o.TextFormat == config.TextFormatMarkdown
}

// Processor turns a FetchResult into a ManifestEntry. It is not safe for
// concurrent use.
type Processor struct {
	opts      Options
	store     storage.Interface
	dedup     *DedupTable
	converter Converter
	logger    logger.Interface
}

// NewProcessor creates a Processor. converter may be nil unless
// opts.NeedsConverter().
func NewProcessor(opts Options, store storage.Interface, dedup *DedupTable, converter Converter, log logger.Interface) *Processor {
	if dedup == nil {
		dedup = NewDedupTable()
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Processor{
		opts:      opts,
		store:     store,
		dedup:     dedup,
		converter: converter,
		logger:    log,
	}
}

// Hash returns the hex SHA-256 of content.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Slug is the artifact filename stem for an item.
func Slug(index int, hash string) string {
	if len(hash) > slugHashLen {
		hash = hash[:slugHashLen]
	}
	return fmt.Sprintf("%06d_%s", index, hash)
}

// Process classifies res and writes the requested artifacts. The returned
// error is job-fatal (filesystem or environment); per-item failures are
// carried in the entry.
func (p *Processor) Process(ctx context.Context, res *domain.FetchResult) (domain.ManifestEntry, error) {
	entry := domain.NewManifestEntry(res)
	if res.Failed() || len(res.Content) == 0 {
		return entry, nil
	}

	hash := Hash(res.Content)
	entry.ContentSHA256 = domain.StringPtr(hash)

	if first, ok := p.dedup.Lookup(hash); ok && p.opts.Deduplicate {
		entry.DuplicateOf = domain.IntPtr(first)
		p.logger.Debug("Duplicate content",
			"index", res.Index,
			"duplicate_of", first,
			"url", res.Locator,
		)
		return entry, nil
	}
	p.dedup.Register(hash, res.Index)

	slug := Slug(res.Index, hash)

	if p.opts.StoreRaw {
		written, err := p.store.Write(path.Join(storage.CategoryRaw, slug+rawExtension(res.ContentType)), res.Content, p.opts.Compress)
		if err != nil {
			return entry, err
		}
		entry.RawPath = domain.StringPtr(written)
	}

	if p.opts.StoreText {
		text, ext, err := p.text(ctx, res)
		if err != nil {
			return entry, err
		}
		written, err := p.store.Write(path.Join(storage.CategoryText, slug+ext), []byte(text+"\n"), p.opts.Compress)
		if err != nil {
			return entry, err
		}
		entry.TextPath = domain.StringPtr(written)
	}

	if p.opts.StoreOutlinks {
		outlinks := res.Outlinks
		if outlinks == nil {
			outlinks = []string{}
		}
		payload, err := json.MarshalIndent(outlinks, "", "  ")
		if err != nil {
			return entry, fmt.Errorf("encode outlinks for %d: %w", res.Index, err)
		}
		written, err := p.store.Write(path.Join(storage.CategoryOutlinks, slug+extJSON), append(payload, '\n'), p.opts.Compress)
		if err != nil {
			return entry, err
		}
		entry.OutlinksPath = domain.StringPtr(written)
		entry.OutlinksCount = domain.IntPtr(len(outlinks))
	}

	return entry, nil
}

func (p *Processor) text(ctx context.Context, res *domain.FetchResult) (text, ext string, err error) {
	if p.opts.TextFormat != config.TextFormatMarkdown {
		return PlainText(res.Content, res.ContentType, res.Locator), extText, nil
	}
	if !IsHTML(res.ContentType) {
		return PlainText(res.Content, res.ContentType, res.Locator), extMarkdown, nil
	}
	if p.converter == nil {
		return "", "", &domain.EnvironmentError{Tool: "markdown", Err: ErrUnknownConverter}
	}

	pruned, err := Prune(string(res.Content), p.opts.ChromeMarkers)
	if err != nil {
		return "", "", fmt.Errorf("prune %s: %w", res.Locator, err)
	}
	markdown, err := p.converter.Convert(ctx, pruned)
	if err != nil {
		return "", "", err
	}
	return markdown, extMarkdown, nil
}

func rawExtension(contentType string) string {
	if IsHTML(contentType) {
		return extHTML
	}
	return extBinary
}
