package manifest_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/jonesrussell/north-cloud/corpus/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries() []domain.ManifestEntry {
	return []domain.ManifestEntry{
		{
			Index:         0,
			URL:           "https://example.com/wiki/A?x=1&y=<2>",
			StatusCode:    domain.IntPtr(200),
			ContentSHA256: domain.StringPtr(strings.Repeat("a", 64)),
			RawPath:       domain.StringPtr("raw/000000_aaaaaaaaaaaa.html"),
			OutlinksPath:  domain.StringPtr("outlinks/000000_aaaaaaaaaaaa.json"),
			OutlinksCount: domain.IntPtr(3),
		},
		{
			Index:         1,
			URL:           "https://example.com/wiki/B",
			StatusCode:    domain.IntPtr(200),
			ContentSHA256: domain.StringPtr(strings.Repeat("a", 64)),
			DuplicateOf:   domain.IntPtr(0),
		},
		{
			Index: 2,
			URL:   "https://example.com/wiki/C",
			Error: domain.StringPtr("connection refused"),
		},
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manifest.jsonl")
	w, err := manifest.Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())

	entries := sampleEntries()
	for _, e := range entries {
		require.NoError(t, w.Write(e))
	}
	assert.Equal(t, len(entries), w.Count())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	got, err := manifest.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestWriter_OneSortedObjectPerLine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manifest.jsonl")
	w, err := manifest.Open(path)
	require.NoError(t, err)
	for _, e := range sampleEntries() {
		require.NoError(t, w.Write(e))
	}
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(data), "\n"))

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)

	// No HTML escaping of locators.
	assert.Contains(t, lines[0], `y=<2>`)

	for _, line := range lines {
		var obj map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(line), &obj))
		assert.Len(t, obj, 10)

		keys := keyOrder(t, line)
		assert.True(t, sort.StringsAreSorted(keys), "keys not sorted: %v", keys)
	}
	assert.Contains(t, lines[2], `"content_sha256":null`)
	assert.Contains(t, lines[2], `"error":"connection refused"`)
}

func TestWriter_TruncatesExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manifest.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

	w, err := manifest.Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWriter_WriteAfterClose(t *testing.T) {
	t.Parallel()

	w, err := manifest.Open(filepath.Join(t.TempDir(), "manifest.jsonl"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Write(domain.ManifestEntry{}), manifest.ErrClosed)
}

func TestOpen_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := manifest.Open(filepath.Join(t.TempDir(), "absent", "manifest.jsonl"))
	assert.ErrorIs(t, err, domain.ErrFilesystem)
}

func TestReadAll_BadLine(t *testing.T) {
	t.Parallel()

	_, err := manifest.ReadAll(strings.NewReader("{\"index\":0}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest line 2")
}

// keyOrder returns the top-level keys of a flat JSON object in document order.
func keyOrder(t *testing.T, line string) []string {
	t.Helper()

	dec := json.NewDecoder(strings.NewReader(line))
	_, err := dec.Token()
	require.NoError(t, err)

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		require.NoError(t, err)
		keys = append(keys, tok.(string))
		var skip json.RawMessage
		require.NoError(t, dec.Decode(&skip))
	}
	return keys
}
