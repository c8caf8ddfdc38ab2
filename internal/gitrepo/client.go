// Package gitrepo snapshots a remote repository with the git binary and
// selects the tracked files a corpus should ingest.
package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jonesrussell/north-cloud/corpus/internal/domain"
	"github.com/jonesrussell/north-cloud/corpus/internal/logger"
)

const gitBinary = "git"

// ErrOptionLike is returned for a repository url or ref starting with "-".
var ErrOptionLike = errors.New("value must not start with '-'")

// CommandError is a git invocation that exited non-zero.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s failed: %v: %s", strings.Join(e.Args, " "), e.Err, e.Output)
}

func (e *CommandError) Unwrap() []error {
	return []error{domain.ErrRuntime, e.Err}
}

// Client runs git subcommands.
type Client struct {
	binary string
	logger logger.Interface
}

// NewClient locates git on PATH.
func NewClient(log logger.Interface) (*Client, error) {
	binary, err := exec.LookPath(gitBinary)
	if err != nil {
		return nil, &domain.EnvironmentError{Tool: gitBinary, Err: err}
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Client{binary: binary, logger: log}, nil
}

// Clone clones url into dir without checking out a working tree.
func (c *Client) Clone(ctx context.Context, url, dir string) error {
	if err := rejectOption("repository url", url); err != nil {
		return err
	}
	_, err := c.run(ctx, "", "clone", "--no-checkout", "--quiet", "--", url, dir)
	return err
}

// Checkout checks out ref in the repository at dir.
func (c *Client) Checkout(ctx context.Context, dir, ref string) error {
	if err := rejectOption("ref", ref); err != nil {
		return err
	}
	_, err := c.run(ctx, dir, "checkout", "--quiet", ref, "--")
	return err
}

// rejectOption refuses values git would parse as an option.
func rejectOption(what, value string) error {
	if strings.HasPrefix(value, "-") {
		return fmt.Errorf("%w: %s %q: %w", domain.ErrRuntime, what, value, ErrOptionLike)
	}
	return nil
}

// ListFiles returns the tracked files of dir, slash separated and sorted.
func (c *Client) ListFiles(ctx context.Context, dir string) ([]string, error) {
	out, err := c.run(ctx, dir, "ls-files", "-z")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, f := range bytes.Split(out, []byte{0}) {
		if len(f) > 0 {
			files = append(files, string(f))
		}
	}
	sort.Strings(files)

	return files, nil
}

func (c *Client) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	c.logger.Debug("Running git", "args", args, "dir", dir)

	if args[0] == "ls-files" {
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		if err != nil {
			return nil, &CommandError{Args: args, Output: strings.TrimSpace(stderr.String()), Err: err}
		}
		return out, nil
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &CommandError{Args: args, Output: strings.TrimSpace(string(out)), Err: err}
	}
	return out, nil
}

// Workspace is a checked-out snapshot in a temporary directory.
type Workspace struct {
	Dir   string
	Files []string
	root  string
}

// Snapshot clones url, checks out ref and lists tracked files. The caller
// must Close the workspace; on error nothing is left on disk.
func (c *Client) Snapshot(ctx context.Context, url, ref string) (*Workspace, error) {
	root, err := os.MkdirTemp("", "corpus-repo-*")
	if err != nil {
		return nil, &domain.FilesystemError{Op: "mkdtemp", Path: os.TempDir(), Err: err}
	}

	ws := &Workspace{Dir: filepath.Join(root, "checkout"), root: root}
	if err = c.populate(ctx, ws, url, ref); err != nil {
		_ = ws.Close()
		return nil, err
	}
	return ws, nil
}

func (c *Client) populate(ctx context.Context, ws *Workspace, url, ref string) error {
	if err := c.Clone(ctx, url, ws.Dir); err != nil {
		return err
	}
	if err := c.Checkout(ctx, ws.Dir, ref); err != nil {
		return err
	}
	files, err := c.ListFiles(ctx, ws.Dir)
	if err != nil {
		return err
	}
	ws.Files = files
	return nil
}

// Close removes the workspace directory.
func (w *Workspace) Close() error {
	if w.root == "" {
		return nil
	}
	if err := os.RemoveAll(w.root); err != nil {
		return &domain.FilesystemError{Op: "remove", Path: w.root, Err: err}
	}
	w.root = ""
	return nil
}
