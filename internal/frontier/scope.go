package frontier

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/jonesrussell/north-cloud/corpus/internal/config"
)

// Scope decides which discovered links a crawl may follow.
type Scope struct {
	domains       []string
	articlePrefix string
	namespaceRe   *regexp.Regexp
	allow         *regexp.Regexp
	deny          *regexp.Regexp
}

// NewScope compiles the crawl filters.
func NewScope(opts *config.CrawlOptions) (*Scope, error) {
	s := &Scope{articlePrefix: opts.ArticlePrefix}

	for _, d := range opts.AllowedDomains {
		d = strings.TrimLeft(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			s.domains = append(s.domains, d)
		}
	}

	if len(opts.ExcludedNamespaces) > 0 {
		quoted := make([]string, 0, len(opts.ExcludedNamespaces))
		for _, ns := range opts.ExcludedNamespaces {
			quoted = append(quoted, regexp.QuoteMeta(ns))
		}
		pattern := "(?i)^" + regexp.QuoteMeta(opts.ArticlePrefix) + "(?:" + strings.Join(quoted, "|") + "):"
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("excluded namespaces: %w", err)
		}
		s.namespaceRe = re
	}

	var err error
	if opts.AllowPattern != "" {
		if s.allow, err = regexp.Compile(opts.AllowPattern); err != nil {
			return nil, fmt.Errorf("allow_pattern: %w", err)
		}
	}
	if opts.DenyPattern != "" {
		if s.deny, err = regexp.Compile(opts.DenyPattern); err != nil {
			return nil, fmt.Errorf("deny_pattern: %w", err)
		}
	}

	return s, nil
}

// IsAllowedDomain reports whether the host equals an allowed domain or is a
// subdomain of one on a dot boundary.
func (s *Scope) IsAllowedDomain(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, d := range s.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// IsArticlePath reports whether the path is under the article prefix and
// outside every excluded namespace.
func (s *Scope) IsArticlePath(u *url.URL) bool {
	p := u.EscapedPath()
	if !strings.HasPrefix(p, s.articlePrefix) {
		return false
	}
	return s.namespaceRe == nil || !s.namespaceRe.MatchString(p)
}

// ShouldFollow applies the domain, article, allow and deny filters to an
// absolute URL.
func (s *Scope) ShouldFollow(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !s.IsAllowedDomain(u) || !s.IsArticlePath(u) {
		return false
	}
	if s.allow != nil && !s.allow.MatchString(rawURL) {
		return false
	}
	if s.deny != nil && s.deny.MatchString(rawURL) {
		return false
	}
	return true
}
