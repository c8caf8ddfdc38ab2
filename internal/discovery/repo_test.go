package discovery_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonesrussell/north-cloud/corpus/internal/config"
	"github.com/jonesrussell/north-cloud/corpus/internal/discovery"
	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/jonesrussell/north-cloud/corpus/internal/gitrepo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshotter struct {
	ws  *gitrepo.Workspace
	err error
	url string
	ref string
}

func (f *fakeSnapshotter) Snapshot(_ context.Context, url, ref string) (*gitrepo.Workspace, error) {
	f.url, f.ref = url, ref
	return f.ws, f.err
}

func workspace(t *testing.T, files map[string]string) *gitrepo.Workspace {
	t.Helper()

	dir := t.TempDir()
	ws := &gitrepo.Workspace{Dir: dir}
	for name, body := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
		ws.Files = append(ws.Files, name)
	}
	return ws
}

func TestRepo_SelectsAndReads(t *testing.T) {
	t.Parallel()

	ws := workspace(t, map[string]string{
		"a.md":        "# A\n",
		"drafts/b.md": "draft\n",
		"c.md":        "<html><body>C</body></html>",
		"d.txt":       "plain\n",
	})
	snap := &fakeSnapshotter{ws: ws}

	opts := config.NewRepoOptions("https://github.com/owner/repo")
	opts.Ref = "main"
	opts.Include = []string{"*.md"}
	opts.Exclude = []string{"drafts/**"}
	opts.MaxFiles = 2

	r := discovery.NewRepo(opts, snap, nil, nil)
	require.NoError(t, r.Open(context.Background()))
	assert.Equal(t, "main", snap.ref)

	tasks := drain(r)
	require.Len(t, tasks, 2)
	assert.Equal(t, "https://github.com/owner/repo@main:a.md", tasks[0].Locator)
	assert.Equal(t, "a.md", tasks[0].Target)
	assert.Equal(t, 1, tasks[1].Index)
	assert.Equal(t, "c.md", tasks[1].Target)

	f := r.Fetcher()
	res := f.Fetch(context.Background(), tasks[0])
	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, "# A\n", string(res.Content))
	assert.Contains(t, res.ContentType, "text/plain")
	assert.Nil(t, res.StatusCode)
	assert.NotNil(t, res.Outlinks)
	assert.Empty(t, res.Outlinks)

	html := f.Fetch(context.Background(), tasks[1])
	assert.Contains(t, html.ContentType, "text/html")

	missing := f.Fetch(context.Background(), domain.FetchTask{Index: 9, Locator: "x", Target: "../escape.md"})
	assert.True(t, missing.Failed())

	require.NoError(t, r.Close())
}

func TestRepo_SnapshotFailureIsFatal(t *testing.T) {
	t.Parallel()

	snapErr := &gitrepo.CommandError{Args: []string{"checkout", "nope"}, Err: errors.New("exit status 1")}
	r := discovery.NewRepo(config.NewRepoOptions("https://example.com/r.git"), &fakeSnapshotter{err: snapErr}, nil, nil)

	err := r.Open(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRuntime)
	require.NoError(t, r.Close())
}

func TestLocator(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "https://h/r@v1.0:docs/x.md", discovery.Locator("https://h/r", "v1.0", "docs/x.md"))
}
