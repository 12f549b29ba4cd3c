package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/codexbuild/internal/ai"
	"github.com/mrz1836/codexbuild/internal/clock"
	"github.com/mrz1836/codexbuild/internal/config"
	"github.com/mrz1836/codexbuild/internal/constants"
	"github.com/mrz1836/codexbuild/internal/credentials"
	"github.com/mrz1836/codexbuild/internal/errors"
	"github.com/mrz1836/codexbuild/internal/publish"
	"github.com/mrz1836/codexbuild/internal/testutil"
	"github.com/mrz1836/codexbuild/internal/workspace"
)

const testAPIKey = "sk-test-pipeline-key"

// fakeAgent stands in for the codex CLI. edit, when set, modifies the
// workspace the way a real agent would.
type fakeAgent struct {
	edit  func(dir string)
	err   error
	calls int
	key   string
	req   ai.Request
}

func (f *fakeAgent) Invoke(_ context.Context, req *ai.Request) (*ai.Result, error) {
	f.calls++
	f.req = *req
	f.key = req.APIKey.Reveal()
	if f.edit != nil {
		f.edit(req.WorkingDir)
	}
	return &ai.Result{}, f.err
}

type recordingFinalizer struct {
	calls  int
	status Status
	err    error
}

func (f *recordingFinalizer) Name() string { return "recording" }

func (f *recordingFinalizer) Finalize(_ context.Context, result *Result) error {
	f.calls++
	f.status = result.Status
	return f.err
}

func testStore() credentials.MapStore {
	return credentials.MapStore{
		"openai": {Kind: credentials.KindSecretText, Secret: testAPIKey},
	}
}

func testConfig(repoURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Prompt = "Add a hello package."
	cfg.Credentials.APIKeyRef = "openai"
	cfg.Repository.URL = repoURL
	cfg.Publish.SecretScan = constants.SecretScanOff
	return cfg
}

type fixture struct {
	remote *testutil.Remote
	dir    string
	cfg    *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	testutil.RequireGit(t)
	testutil.IsolateGitConfig(t)

	remote := testutil.NewRemote(t, "master")
	return &fixture{
		remote: remote,
		dir:    filepath.Join(t.TempDir(), "ws"),
		cfg:    testConfig(remote.Path),
	}
}

func stageNames(r *Result) []Stage {
	names := make([]Stage, 0, len(r.Stages))
	for _, s := range r.Stages {
		names = append(names, s.Stage)
	}
	return names
}

func writeHello(t *testing.T) func(string) {
	return func(dir string) {
		testutil.WriteFile(t, dir, "hello/hello.go", "package hello\n")
	}
}

func TestRun_MissingParametersFailBeforeAnyProcess(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ws")
	agent := &fakeAgent{}
	fin := &recordingFinalizer{}

	cfg := config.DefaultConfig()
	result, err := New(cfg, "42", dir,
		WithStore(testStore()),
		WithInvoker(agent),
		WithFinalizer(fin),
	).Run(context.Background())

	require.ErrorIs(t, err, errors.ErrMissingParameter)
	assert.True(t, strings.HasPrefix(err.Error(), "validate stage failed: "))
	for _, field := range []string{config.KeyPrompt, config.KeyAPIKeyRef, config.KeyRepoURL} {
		assert.Contains(t, err.Error(), field)
	}

	assert.Equal(t, StageValidate, result.FailedStage)
	assert.Equal(t, ExitInvalidInput, result.ExitCode())
	assert.Equal(t, []Stage{StageValidate, StageFinalize}, stageNames(result))
	assert.Zero(t, agent.calls, "agent must not start")
	assert.NoDirExists(t, dir, "workspace must not be touched")
	assert.Equal(t, 1, fin.calls, "finalize still runs")
	assert.Equal(t, StatusFailed, fin.status)
}

func TestRun_EmptyBuildID(t *testing.T) {
	t.Parallel()

	cfg := testConfig("https://example.invalid/repo.git")
	result, err := New(cfg, " ", t.TempDir(), WithStore(testStore()), WithInvoker(&fakeAgent{})).Run(context.Background())
	require.ErrorIs(t, err, errors.ErrInvalidBuildID)
	assert.Equal(t, StageValidate, result.FailedStage)
	assert.Equal(t, ExitFailure, result.ExitCode())
}

func TestRun_NoChanges(t *testing.T) {
	f := newFixture(t)
	agent := &fakeAgent{}

	result, err := New(f.cfg, "42", f.dir, WithStore(testStore()), WithInvoker(agent)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, ExitSuccess, result.ExitCode())
	assert.Equal(t, []Stage{StageValidate, StageInit, StageInvoke, StageDetect, StageSkipCommit, StageFinalize}, stageNames(result))
	require.NotNil(t, result.Changes)
	assert.False(t, result.Changes.Changed)
	assert.Empty(t, result.Branch)
	assert.Empty(t, result.Commit)
	assert.NotEmpty(t, result.RunID)

	assert.Equal(t, 1, agent.calls)
	assert.Equal(t, testAPIKey, agent.key)
	assert.Equal(t, f.dir, agent.req.WorkingDir)
	assert.Equal(t, f.cfg.Prompt, agent.req.Prompt)
	assert.Equal(t, constants.DefaultModel, agent.req.Model)

	head := testutil.RunGit(t, f.dir, "rev-parse", "HEAD")
	assert.Equal(t, f.remote.Head(t, "refs/heads/master"), head)
}

func TestRun_ChangesWithoutPush(t *testing.T) {
	f := newFixture(t)

	result, err := New(f.cfg, "42", f.dir,
		WithStore(testStore()),
		WithInvoker(&fakeAgent{edit: writeHello(t)}),
	).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Stage{StageValidate, StageInit, StageInvoke, StageDetect, StageCommitPush, StageFinalize}, stageNames(result))
	assert.True(t, result.Changes.Changed)
	assert.Equal(t, []string{"hello/hello.go"}, result.Changes.Paths)
	assert.Equal(t, "codex-build-42", result.Branch)
	assert.NotEmpty(t, result.Commit)
	assert.False(t, result.Pushed)
	assert.Empty(t, f.remote.Head(t, "refs/heads/codex-build-42"))

	branch := testutil.RunGit(t, f.dir, "rev-parse", "--abbrev-ref", "HEAD")
	assert.Equal(t, "codex-build-42", branch)
}

func TestRun_ChangesWithPush(t *testing.T) {
	f := newFixture(t)
	f.cfg.Git.Push = true
	f.cfg.Prompt = "Add a hello package.\n\nKeep it small."

	result, err := New(f.cfg, "42", f.dir,
		WithStore(testStore()),
		WithInvoker(&fakeAgent{edit: writeHello(t)}),
	).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Pushed)
	assert.Equal(t, result.Commit, f.remote.Head(t, "refs/heads/codex-build-42"))

	msg := strings.TrimRight(f.remote.CommitMessage(t, "refs/heads/codex-build-42"), "\n")
	summary, body, _ := strings.Cut(msg, "\n\n")
	assert.Equal(t, "codex build #42", summary)
	assert.Equal(t, f.cfg.Prompt, body)
}

func TestRun_PushFailureKeepsCommit(t *testing.T) {
	f := newFixture(t)
	f.cfg.Git.Push = true

	agent := &fakeAgent{edit: func(dir string) {
		testutil.WriteFile(t, dir, "hello.go", "package hello\n")
		require.NoError(t, os.RemoveAll(f.remote.Path))
	}}

	result, err := New(f.cfg, "8", f.dir, WithStore(testStore()), WithInvoker(agent)).Run(context.Background())
	require.ErrorIs(t, err, errors.ErrPushFailed)

	assert.Equal(t, StageCommitPush, result.FailedStage)
	assert.Equal(t, "codex-build-8", result.Branch)
	assert.NotEmpty(t, result.Commit)
	assert.False(t, result.Pushed)
}

func TestRun_AgentFailureStopsAtInvoke(t *testing.T) {
	f := newFixture(t)
	fin := &recordingFinalizer{}
	agentErr := errors.Wrap(errors.ErrAgentInvocation, "exit status 1: boom")

	result, err := New(f.cfg, "42", f.dir,
		WithStore(testStore()),
		WithInvoker(&fakeAgent{edit: writeHello(t), err: agentErr}),
		WithFinalizer(fin),
	).Run(context.Background())

	require.ErrorIs(t, err, errors.ErrAgentInvocation)
	assert.Equal(t, "invoke stage failed: exit status 1: boom: agent invocation failed", err.Error())
	assert.Equal(t, StageInvoke, result.FailedStage)
	assert.Equal(t, []Stage{StageValidate, StageInit, StageInvoke, StageFinalize}, stageNames(result))
	assert.Nil(t, result.Changes, "detect never runs")
	assert.Empty(t, result.Branch)
	assert.Equal(t, 1, fin.calls)
	assert.Equal(t, ExitFailure, result.ExitCode())

	exists := testutil.RunGit(t, f.dir, "branch", "--list", "codex-build-42")
	assert.Empty(t, exists, "no commit is attempted")
}

func TestRun_UnknownAPIKeyReference(t *testing.T) {
	f := newFixture(t)
	f.cfg.Credentials.APIKeyRef = "missing"
	agent := &fakeAgent{}

	result, err := New(f.cfg, "42", f.dir, WithStore(testStore()), WithInvoker(agent)).Run(context.Background())
	require.ErrorIs(t, err, errors.ErrCredentialNotFound)
	assert.Equal(t, StageInvoke, result.FailedStage)
	assert.Zero(t, agent.calls)
}

func TestRun_WorkspaceLocked(t *testing.T) {
	f := newFixture(t)

	held, err := workspace.AcquireLock(f.dir)
	require.NoError(t, err)

	agent := &fakeAgent{}
	result, err := New(f.cfg, "42", f.dir, WithStore(testStore()), WithInvoker(agent)).Run(context.Background())
	require.ErrorIs(t, err, errors.ErrWorkspaceLocked)
	assert.Equal(t, StageInit, result.FailedStage)
	assert.Zero(t, agent.calls)
	require.NoError(t, held.Release())

	_, err = New(f.cfg, "43", f.dir, WithStore(testStore()), WithInvoker(agent)).Run(context.Background())
	require.NoError(t, err)

	again, err := workspace.AcquireLock(f.dir)
	require.NoError(t, err, "finalize releases the lock")
	require.NoError(t, again.Release())
}

func TestRun_ReportAndMetrics(t *testing.T) {
	f := newFixture(t)
	out := t.TempDir()
	f.cfg.Report.MetricsFile = filepath.Join(out, "codexbuild.prom")
	reportPath := filepath.Join(out, "reports", "run.json")

	start := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	result, err := New(f.cfg, "42", f.dir,
		WithStore(testStore()),
		WithInvoker(&fakeAgent{edit: writeHello(t)}),
		WithClock(&clock.StepClock{Start: start, Step: time.Second}),
		WithReportPath(reportPath),
		WithLogger(zerolog.Nop()),
	).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, start, result.StartedAt)
	assert.Positive(t, result.Duration())

	data, err := os.ReadFile(reportPath) //nolint:gosec // test reads its own temp file
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "succeeded", report["status"])
	assert.Equal(t, "42", report["build_id"])
	assert.Equal(t, "codex-build-42", report["branch"])
	assert.NotContains(t, string(data), testAPIKey)

	prom, err := os.ReadFile(f.cfg.Report.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `codexbuild_runs_total{status="succeeded"} 1`)
	assert.Contains(t, string(prom), "codexbuild_changed_paths 1")
}

func TestRun_FinalizerErrorDoesNotChangeOutcome(t *testing.T) {
	f := newFixture(t)
	fin := &recordingFinalizer{err: testutil.ErrMockFinalizer}

	result, err := New(f.cfg, "42", f.dir, WithStore(testStore()), WithInvoker(&fakeAgent{}), WithFinalizer(fin)).
		Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, 1, fin.calls)
}

func TestRun_CanceledContextStillFinalizes(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fin := &recordingFinalizer{}
	agent := &fakeAgent{}
	result, err := New(testConfig("https://example.invalid/r.git"), "1", filepath.Join(t.TempDir(), "ws"),
		WithStore(testStore()),
		WithInvoker(agent),
		WithFinalizer(fin),
	).Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StageValidate, result.FailedStage)
	assert.Equal(t, 1, fin.calls)
	assert.Zero(t, agent.calls)
}

func TestRun_SecretScanBlocks(t *testing.T) {
	f := newFixture(t)
	f.cfg.Publish.SecretScan = constants.SecretScanBlock

	scanner := scannerFunc(func(string) []publish.Finding {
		return []publish.Finding{{RuleID: "github-pat", Line: 1}}
	})

	result, err := New(f.cfg, "42", f.dir,
		WithStore(testStore()),
		WithInvoker(&fakeAgent{edit: writeHello(t)}),
		WithScanner(scanner),
	).Run(context.Background())

	require.ErrorIs(t, err, errors.ErrSecretsDetected)
	assert.Equal(t, StageCommitPush, result.FailedStage)
	assert.Empty(t, result.Commit)
	assert.Len(t, result.Findings, 1)
}

type scannerFunc func(diff string) []publish.Finding

func (f scannerFunc) Scan(_ context.Context, diff string) ([]publish.Finding, error) {
	return f(diff), nil
}
