// Package frontier provides URL normalization, crawl scope filtering and the
// job-scoped set of scheduled URLs used by link-following discovery.
package frontier

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

var (
	errEmptyInput          = errors.New("normalize url: empty input")
	errMissingSchemeOrHost = errors.New("normalize url: missing scheme or host")
	errUnsupportedScheme   = errors.New("normalize url: unsupported scheme")
)

// Normalize resolves href against base, drops the fragment and rejects
// anything that is not an absolute http(s) URL.
func Normalize(base *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" && base == nil {
		return "", errEmptyInput
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("normalize url: %w", err)
	}

	resolved := ref
	if base != nil {
		resolved = base.ResolveReference(ref)
	}

	if validateErr := validateParsedURL(resolved); validateErr != nil {
		return "", validateErr
	}

	resolved.Fragment = ""
	resolved.RawFragment = ""

	return resolved.String(), nil
}

// NormalizeString is Normalize with a string base.
func NormalizeString(base, href string) (string, error) {
	if base == "" {
		return Normalize(nil, href)
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("normalize url: base: %w", err)
	}
	return Normalize(parsed, href)
}

// Outlinks normalizes every href against base and returns the sorted set of
// absolute http(s) links.
func Outlinks(base *url.URL, hrefs []string) []string {
	set := make(map[string]struct{}, len(hrefs))
	for _, href := range hrefs {
		link, err := Normalize(base, href)
		if err != nil {
			continue
		}
		set[link] = struct{}{}
	}

	links := make([]string, 0, len(set))
	for link := range set {
		links = append(links, link)
	}
	sort.Strings(links)

	return links
}

// validateParsedURL checks that a parsed URL is absolute http(s) with a host.
func validateParsedURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		if u.Scheme == "" {
			return errMissingSchemeOrHost
		}
		return fmt.Errorf("%w: %s", errUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return errMissingSchemeOrHost
	}

	return nil
}
