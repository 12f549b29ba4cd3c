// Package git wraps the git CLI for the build workspace.
// This file implements the CLIRunner which wraps git CLI commands.
package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/codexbuild/internal/ctxutil"
	"github.com/mrz1836/codexbuild/internal/errors"
)

// dirPerm is used when the workspace directory has to be created.
const dirPerm = 0o750

// CLIRunner implements Runner using the git CLI.
type CLIRunner struct {
	workDir string   // Working directory for git commands
	env     []string // Extra environment for every invocation
	logger  zerolog.Logger
}

// RunnerOption configures a CLIRunner.
type RunnerOption func(*CLIRunner)

// WithEnv adds environment entries (KEY=VALUE) to every git invocation.
// Used to pass GIT_SSH_COMMAND for key-based repository access.
func WithEnv(env ...string) RunnerOption {
	return func(r *CLIRunner) {
		r.env = append(r.env, env...)
	}
}

// WithLogger sets the logger for git invocations.
func WithLogger(logger zerolog.Logger) RunnerOption {
	return func(r *CLIRunner) {
		r.logger = logger
	}
}

// NewRunner creates a CLIRunner for workDir. The directory does not have to
// exist or be a repository yet; Init takes care of both.
func NewRunner(workDir string, opts ...RunnerOption) *CLIRunner {
	r := &CLIRunner{workDir: workDir, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("component", "git").Logger()
	return r
}

// WorkDir returns the working directory.
func (r *CLIRunner) WorkDir() string {
	return r.workDir
}

// IsRepository reports whether <workDir>/.git exists.
func (r *CLIRunner) IsRepository(ctx context.Context) (bool, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return false, err
	}

	_, err := os.Stat(filepath.Join(r.workDir, ".git"))
	if err == nil {
		return true, nil
	}
	if stderrors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to inspect %s: %w", r.workDir, err)
}

// Init creates the working directory and initializes a repository in it.
func (r *CLIRunner) Init(ctx context.Context) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(r.workDir, dirPerm); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	if _, err := r.run(ctx, "init"); err != nil {
		return fmt.Errorf("failed to init repository: %w", err)
	}
	return nil
}

// RemoveRemote deletes the named remote.
func (r *CLIRunner) RemoveRemote(ctx context.Context, name string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	_, err := r.run(ctx, "remote", "remove", name)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no such remote") {
			return fmt.Errorf("remote %q: %w", name, errors.ErrRemoteNotFound)
		}
		return fmt.Errorf("failed to remove remote %s: %w", name, err)
	}
	return nil
}

// AddRemote binds name to url. The url is never included in errors or logs.
func (r *CLIRunner) AddRemote(ctx context.Context, name, url string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if url == "" {
		return fmt.Errorf("remote url cannot be empty: %w", errors.ErrGitOperation)
	}

	if _, err := r.run(ctx, "remote", "add", name, url); err != nil {
		return fmt.Errorf("failed to add remote %s: %w", name, err)
	}
	return nil
}

// FetchBranch fetches exactly one branch, force-updating its remote-tracking ref.
func (r *CLIRunner) FetchBranch(ctx context.Context, remote, branch string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	refspec := fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", branch, remote, branch)
	if _, err := r.run(ctx, "fetch", "--no-tags", remote, refspec); err != nil {
		return fmt.Errorf("failed to fetch %s from %s: %w", branch, remote, err)
	}
	return nil
}

// CheckoutForce checks out branch, creating or resetting it at startPoint.
func (r *CLIRunner) CheckoutForce(ctx context.Context, branch, startPoint string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if _, err := r.run(ctx, "checkout", "-f", "-B", branch, startPoint); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", branch, err)
	}
	return nil
}

// ResetHard resets index and working tree to ref.
func (r *CLIRunner) ResetHard(ctx context.Context, ref string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if _, err := r.run(ctx, "reset", "--hard", ref); err != nil {
		return fmt.Errorf("failed to reset to %s: %w", ref, err)
	}
	return nil
}

// Clean removes untracked and ignored files and directories.
// The doubled -f also removes nested repositories.
func (r *CLIRunner) Clean(ctx context.Context) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if _, err := r.run(ctx, "clean", "-ffdx"); err != nil {
		return fmt.Errorf("failed to clean working tree: %w", err)
	}
	return nil
}

// StatusPorcelain returns raw `git status --porcelain -z` output including
// untracked files. The output is not trimmed: leading spaces are significant.
func (r *CLIRunner) StatusPorcelain(ctx context.Context) (string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}

	out, err := r.run(ctx, "status", "--porcelain", "-z", "--untracked-files=all")
	if err != nil {
		return "", fmt.Errorf("failed to get status: %w", err)
	}
	return out, nil
}

// Status returns the current working tree status.
func (r *CLIRunner) Status(ctx context.Context) (*Status, error) {
	out, err := r.StatusPorcelain(ctx)
	if err != nil {
		return nil, err
	}
	return ParsePorcelainZ(out), nil
}

// SetConfig sets a repository-local config value.
func (r *CLIRunner) SetConfig(ctx context.Context, key, value string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if _, err := r.run(ctx, "config", key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// BranchExists checks if a local branch exists.
func (r *CLIRunner) BranchExists(ctx context.Context, name string) (bool, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return false, err
	}

	_, err := r.run(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		// --quiet makes a missing ref a silent exit 1
		errStr := err.Error()
		if strings.Contains(errStr, "exit status 1") || strings.Contains(errStr, "not a valid ref") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check branch existence: %w", err)
	}
	return true, nil
}

// CreateBranch creates a new branch at HEAD and checks it out.
func (r *CLIRunner) CreateBranch(ctx context.Context, name string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if name == "" {
		return fmt.Errorf("branch name cannot be empty: %w", errors.ErrGitOperation)
	}

	exists, err := r.BranchExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking branch existence: %w", err)
	}
	if exists {
		return fmt.Errorf("branch '%s' already exists: %w", name, errors.ErrBranchExists)
	}

	if _, err := r.run(ctx, "checkout", "-b", name); err != nil {
		return fmt.Errorf("failed to create branch '%s': %w", name, err)
	}
	return nil
}

// AddAll stages all changes, including deletions and untracked files.
func (r *CLIRunner) AddAll(ctx context.Context) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if _, err := r.run(ctx, "add", "-A"); err != nil {
		return fmt.Errorf("failed to add files: %w", err)
	}
	return nil
}

// DiffStaged returns the diff of staged (cached) changes.
func (r *CLIRunner) DiffStaged(ctx context.Context) (string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}

	out, err := r.run(ctx, "diff", "--cached", "--no-color", "--no-ext-diff")
	if err != nil {
		return "", fmt.Errorf("failed to get diff: %w", err)
	}
	return out, nil
}

// Commit creates a commit with the given message.
// --cleanup=verbatim keeps the message byte-for-byte, comment lines included.
func (r *CLIRunner) Commit(ctx context.Context, message string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if message == "" {
		return fmt.Errorf("commit message cannot be empty: %w", errors.ErrGitOperation)
	}

	if _, err := r.run(ctx, "commit", "--cleanup=verbatim", "-m", message); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Push pushes commits to the remote repository.
func (r *CLIRunner) Push(ctx context.Context, remote, branch string, setUpstream bool) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	args := []string{"push"}
	if setUpstream {
		args = append(args, "--set-upstream")
	}
	args = append(args, remote, branch)

	if _, err := r.run(ctx, args...); err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}
	return nil
}

// HeadCommit returns the full hash of HEAD.
func (r *CLIRunner) HeadCommit(ctx context.Context) (string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}

	out, err := r.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// CurrentBranch returns the name of the currently checked out branch.
func (r *CLIRunner) CurrentBranch(ctx context.Context) (string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}

	out, err := r.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}

	branch := strings.TrimSpace(out)
	if branch == "HEAD" {
		return "", fmt.Errorf("repository is in detached HEAD state: %w", errors.ErrGitOperation)
	}
	return branch, nil
}

// run executes git in the runner's directory with its environment and
// returns raw stdout. Only the subcommand is logged; arguments may carry
// credentials.
func (r *CLIRunner) run(ctx context.Context, args ...string) (string, error) {
	r.logger.Debug().Str("subcommand", args[0]).Msg("running git")
	return runCommand(ctx, r.workDir, r.env, args...)
}
