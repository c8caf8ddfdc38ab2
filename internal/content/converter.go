package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/jonesrussell/north-cloud/corpus/internal/config"
	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
)

// ErrUnknownConverter is returned for an unrecognised converter name.
var ErrUnknownConverter = errors.New("unknown markdown converter")

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// Converter turns pruned HTML into Markdown. Failures are environment errors.
type Converter interface {
	Name() string
	Convert(ctx context.Context, html string) (string, error)
}

// NewConverter resolves a converter by name. The pandoc binary is located
// here so a missing tool fails the job before any fetch.
func NewConverter(name string) (Converter, error) {
	switch name {
	case config.ConverterHTMLToMarkdown, "":
		return NewLibraryConverter(), nil
	case config.ConverterPandoc:
		return NewPandocConverter()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownConverter, name)
	}
}

// LibraryConverter converts in-process with html-to-markdown.
type LibraryConverter struct {
	converter *md.Converter
}

// NewLibraryConverter creates a GitHub-flavoured converter.
func NewLibraryConverter() *LibraryConverter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &LibraryConverter{converter: converter}
}

// Name implements Converter.
func (c *LibraryConverter) Name() string {
	return config.ConverterHTMLToMarkdown
}

// Convert implements Converter.
func (c *LibraryConverter) Convert(_ context.Context, html string) (string, error) {
	out, err := c.converter.ConvertString(html)
	if err != nil {
		return "", &domain.EnvironmentError{Tool: c.Name(), Err: err}
	}
	return cleanMarkdown(out), nil
}

// PandocConverter shells out to `pandoc -f html -t gfm`.
type PandocConverter struct {
	binary string
}

// NewPandocConverter locates pandoc on PATH.
func NewPandocConverter() (*PandocConverter, error) {
	binary, err := exec.LookPath(config.ConverterPandoc)
	if err != nil {
		return nil, &domain.EnvironmentError{Tool: config.ConverterPandoc, Err: err}
	}
	return &PandocConverter{binary: binary}, nil
}

// Name implements Converter.
func (c *PandocConverter) Name() string {
	return config.ConverterPandoc
}

// Convert implements Converter.
func (c *PandocConverter) Convert(ctx context.Context, html string) (string, error) {
	cmd := exec.CommandContext(ctx, c.binary, "-f", "html", "-t", "gfm")
	cmd.Stdin = strings.NewReader(html)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return "", &domain.EnvironmentError{Tool: c.Name(), Err: err}
	}
	return cleanMarkdown(stdout.String()), nil
}

// cleanMarkdown collapses runs of blank lines and trailing spaces.
func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
