package publish

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/codexbuild/internal/constants"
	"github.com/mrz1836/codexbuild/internal/credentials"
	"github.com/mrz1836/codexbuild/internal/detect"
	"github.com/mrz1836/codexbuild/internal/errors"
	"github.com/mrz1836/codexbuild/internal/git"
	"github.com/mrz1836/codexbuild/internal/testutil"
	"github.com/mrz1836/codexbuild/internal/workspace"
)

type fakeScanner struct {
	findings []Finding
	err      error
	diff     string
}

func (s *fakeScanner) Scan(_ context.Context, diff string) ([]Finding, error) {
	s.diff = diff
	return s.findings, s.err
}

// changedWorkspace mirrors a fresh remote into a workspace, writes one file
// and returns the runner together with the detected change set.
func changedWorkspace(t *testing.T) (*testutil.Remote, *git.CLIRunner, *detect.ChangeSet) {
	t.Helper()
	testutil.RequireGit(t)
	testutil.IsolateGitConfig(t)
	ctx := context.Background()

	remote := testutil.NewRemote(t, "master")
	dir := filepath.Join(t.TempDir(), "ws")
	runner := git.NewRunner(dir)
	require.NoError(t, workspace.NewInitializer(runner, "master").Initialize(ctx, credentials.PlainURL(remote.Path)))

	testutil.WriteFile(t, dir, "hello.go", "package hello\n")

	changes, err := detect.NewDetector(runner, zerolog.Nop()).Detect(ctx)
	require.NoError(t, err)
	require.True(t, changes.Changed)
	return remote, runner, changes
}

func TestCommitPusher_CommitAndPush(t *testing.T) {
	remote, runner, changes := changedWorkspace(t)
	ctx := context.Background()

	prompt := "Add a hello package.\n\n# keep this line\nand this one"
	p := NewCommitPusher(runner, "42", prompt, WithPush(true), WithAuthor("Build Bot", "bot@example.test"))

	outcome, err := p.Publish(ctx, changes)
	require.NoError(t, err)

	assert.Equal(t, "codex-build-42", outcome.Branch)
	assert.True(t, outcome.Pushed)
	assert.Equal(t, outcome.Commit, remote.Head(t, "refs/heads/codex-build-42"))

	msg := strings.TrimRight(remote.CommitMessage(t, "refs/heads/codex-build-42"), "\n")
	summary, body, found := strings.Cut(msg, "\n\n")
	require.True(t, found)
	assert.Equal(t, "codex build #42", summary)
	assert.Equal(t, prompt, body)

	author := testutil.RunGit(t, runner.WorkDir(), "log", "-1", "--format=%an <%ae>")
	assert.Equal(t, "Build Bot <bot@example.test>", author)

	upstream := testutil.RunGit(t, runner.WorkDir(), "rev-parse", "--abbrev-ref", "codex-build-42@{upstream}")
	assert.Equal(t, "origin/codex-build-42", upstream)
}

func TestCommitPusher_PushDisabled(t *testing.T) {
	remote, runner, changes := changedWorkspace(t)
	ctx := context.Background()

	outcome, err := NewCommitPusher(runner, "7", "p").Publish(ctx, changes)
	require.NoError(t, err)

	assert.False(t, outcome.Pushed)
	assert.NotEmpty(t, outcome.Commit)
	assert.Empty(t, remote.Head(t, "refs/heads/codex-build-7"), "nothing reaches the remote")

	branch, err := runner.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "codex-build-7", branch)

	author := testutil.RunGit(t, runner.WorkDir(), "log", "-1", "--format=%an <%ae>")
	assert.Equal(t, constants.DefaultAuthorName+" <"+constants.DefaultAuthorEmail+">", author)
}

func TestCommitPusher_BranchExists(t *testing.T) {
	_, runner, changes := changedWorkspace(t)
	testutil.RunGit(t, runner.WorkDir(), "branch", "codex-build-42")

	outcome, err := NewCommitPusher(runner, "42", "p").Publish(context.Background(), changes)
	require.ErrorIs(t, err, errors.ErrBranchExists)
	assert.Nil(t, outcome)
}

func TestCommitPusher_NoChanges(t *testing.T) {
	t.Parallel()

	p := NewCommitPusher(git.NewRunner(t.TempDir()), "1", "p")
	_, err := p.Publish(context.Background(), &detect.ChangeSet{})
	require.ErrorIs(t, err, errors.ErrNoChanges)

	_, err = p.Publish(context.Background(), nil)
	require.ErrorIs(t, err, errors.ErrNoChanges)
}

func TestCommitPusher_PushFailureKeepsCommit(t *testing.T) {
	remote, runner, changes := changedWorkspace(t)
	require.NoError(t, os.RemoveAll(remote.Path))

	outcome, err := NewCommitPusher(runner, "9", "p", WithPush(true)).Publish(context.Background(), changes)
	require.ErrorIs(t, err, errors.ErrPushFailed)
	require.NotNil(t, outcome)
	assert.False(t, outcome.Pushed)
	assert.NotEmpty(t, outcome.Commit)

	head, headErr := runner.HeadCommit(context.Background())
	require.NoError(t, headErr)
	assert.Equal(t, outcome.Commit, head, "local commit is not rolled back")
}

func TestCommitPusher_SecretScan(t *testing.T) {
	leak := []Finding{{RuleID: "github-pat", Description: "GitHub token", Line: 3}}

	t.Run("block stops before commit", func(t *testing.T) {
		_, runner, changes := changedWorkspace(t)
		before, err := runner.HeadCommit(context.Background())
		require.NoError(t, err)

		scanner := &fakeScanner{findings: leak}
		outcome, err := NewCommitPusher(runner, "5", "p", WithSecretScan(constants.SecretScanBlock, scanner)).
			Publish(context.Background(), changes)

		require.ErrorIs(t, err, errors.ErrSecretsDetected)
		require.NotNil(t, outcome)
		assert.Equal(t, leak, outcome.Findings)
		assert.Empty(t, outcome.Commit)
		assert.Contains(t, scanner.diff, "hello.go", "scanner sees the staged diff")

		after, err := runner.HeadCommit(context.Background())
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("warn commits anyway", func(t *testing.T) {
		_, runner, changes := changedWorkspace(t)

		outcome, err := NewCommitPusher(runner, "5", "p", WithSecretScan(constants.SecretScanWarn, &fakeScanner{findings: leak})).
			Publish(context.Background(), changes)
		require.NoError(t, err)
		assert.NotEmpty(t, outcome.Commit)
		assert.Equal(t, leak, outcome.Findings)
	})

	t.Run("warn tolerates scanner errors", func(t *testing.T) {
		_, runner, changes := changedWorkspace(t)

		outcome, err := NewCommitPusher(runner, "5", "p", WithSecretScan(constants.SecretScanWarn, &fakeScanner{err: testutil.ErrMockStoreUnavailable})).
			Publish(context.Background(), changes)
		require.NoError(t, err)
		assert.NotEmpty(t, outcome.Commit)
	})

	t.Run("off never scans", func(t *testing.T) {
		_, runner, changes := changedWorkspace(t)

		scanner := &fakeScanner{findings: leak}
		_, err := NewCommitPusher(runner, "5", "p", WithSecretScan(constants.SecretScanOff, scanner)).
			Publish(context.Background(), changes)
		require.NoError(t, err)
		assert.Empty(t, scanner.diff)
	})
}

func TestCommitPusher_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCommitPusher(git.NewRunner(t.TempDir()), "1", "p").Publish(ctx, &detect.ChangeSet{Changed: true})
	require.ErrorIs(t, err, context.Canceled)
}
