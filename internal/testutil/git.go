package testutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Fixture identity used for commits made by fixtures.
const (
	FixtureAuthorName  = "Fixture Author"
	FixtureAuthorEmail = "fixture@codexbuild.test"
)

// RequireGit skips the test when git is not on PATH.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available on PATH")
	}
}

// IsolateGitConfig points git at empty global and system configuration for
// the duration of the test so the developer's settings cannot leak in.
func IsolateGitConfig(t *testing.T) {
	t.Helper()
	empty := filepath.Join(t.TempDir(), "gitconfig")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	t.Setenv("GIT_CONFIG_GLOBAL", empty)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
}

// RunGit runs git in dir and returns trimmed stdout, failing the test on error.
func RunGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	full := append([]string{
		"-c", "user.name=" + FixtureAuthorName,
		"-c", "user.email=" + FixtureAuthorEmail,
		"-c", "init.defaultBranch=master",
	}, args...)
	cmd := exec.CommandContext(context.Background(), "git", full...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

// WriteFile writes content to name under dir, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// Remote is a bare repository acting as origin in tests.
type Remote struct {
	// Path is the bare repository directory; it doubles as the remote URL.
	Path string
}

// NewRemote creates a bare repository whose branch carries one commit with
// README.md and a .gitignore ignoring *.log.
func NewRemote(t *testing.T, branch string) *Remote {
	t.Helper()
	RequireGit(t)

	root := t.TempDir()
	bare := filepath.Join(root, "remote.git")
	RunGit(t, root, "init", "--bare", bare)

	seed := filepath.Join(root, "seed")
	RunGit(t, root, "init", seed)
	RunGit(t, seed, "checkout", "-B", branch)
	WriteFile(t, seed, "README.md", "# fixture\n")
	WriteFile(t, seed, ".gitignore", "*.log\n")
	RunGit(t, seed, "add", "-A")
	RunGit(t, seed, "commit", "-m", "initial commit")
	RunGit(t, seed, "push", bare, branch+":refs/heads/"+branch)

	return &Remote{Path: bare}
}

// Head returns the commit hash of ref in the remote, or "" when ref is absent.
func (r *Remote) Head(t *testing.T, ref string) string {
	t.Helper()

	cmd := exec.CommandContext(context.Background(), "git", "rev-parse", "--verify", "--quiet", ref)
	cmd.Dir = r.Path
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// CommitMessage returns the full message of ref in the remote.
func (r *Remote) CommitMessage(t *testing.T, ref string) string {
	t.Helper()

	cmd := exec.CommandContext(context.Background(), "git", "log", "-1", "--format=%B", ref)
	cmd.Dir = r.Path
	out, err := cmd.Output()
	require.NoError(t, err)
	return string(out)
}

// Advance pushes one more commit onto branch in the remote and returns its hash.
func (r *Remote) Advance(t *testing.T, branch, file, content string) string {
	t.Helper()

	clone := filepath.Join(t.TempDir(), "advance")
	RunGit(t, filepath.Dir(clone), "clone", "--branch", branch, r.Path, clone)
	WriteFile(t, clone, file, content)
	RunGit(t, clone, "add", "-A")
	RunGit(t, clone, "commit", "-m", "advance "+file)
	RunGit(t, clone, "push", "origin", branch)
	return RunGit(t, clone, "rev-parse", "HEAD")
}
