package gitrepo

import (
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchAll is the include pattern that selects every file.
const MatchAll = "**/*"

// Selection filters a tracked file list.
type Selection struct {
	Subpath  string
	Include  []string
	Exclude  []string
	MaxFiles int
}

// SelectFiles returns the sorted files under Subpath that match an include
// pattern (or all, when Include is empty) and no exclude pattern, truncated
// to MaxFiles. A non-positive MaxFiles means no cap.
func SelectFiles(files []string, sel Selection) []string {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	sub := normalizeSubpath(sel.Subpath)

	selected := make([]string, 0, len(sorted))
	for _, f := range sorted {
		if sub != "" && f != sub && !strings.HasPrefix(f, sub+"/") {
			continue
		}
		if len(sel.Include) > 0 && !MatchAny(sel.Include, f) {
			continue
		}
		if len(sel.Exclude) > 0 && MatchAny(sel.Exclude, f) {
			continue
		}
		selected = append(selected, f)
		if sel.MaxFiles > 0 && len(selected) == sel.MaxFiles {
			break
		}
	}

	return selected
}

// MatchAny reports whether file matches at least one pattern.
func MatchAny(patterns []string, file string) bool {
	for _, p := range patterns {
		if Match(p, file) {
			return true
		}
	}
	return false
}

// Match matches a slash-separated path against a doublestar glob. Patterns
// without a slash also match the file's base name, so "*.md" selects
// markdown at any depth.
func Match(pattern, file string) bool {
	if pattern == MatchAll {
		return true
	}
	if ok, err := doublestar.Match(pattern, file); err == nil && ok {
		return true
	}
	if !strings.Contains(pattern, "/") {
		ok, err := doublestar.Match(pattern, path.Base(file))
		return err == nil && ok
	}
	return false
}

func normalizeSubpath(sub string) string {
	sub = strings.ReplaceAll(strings.TrimSpace(sub), "\\", "/")
	if sub == "" {
		return ""
	}
	return strings.Trim(path.Clean("/"+sub), "/")
}
