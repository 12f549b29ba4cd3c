// Package git wraps the git CLI for the build workspace.
// This file defines the Runner interface for git CLI operations.
package git

import "context"

// Runner defines the git operations a build run performs on its workspace.
// All operations run in the runner's working directory and honor ctx.
type Runner interface {
	// WorkDir returns the directory the runner operates in.
	WorkDir() string

	// IsRepository reports whether the working directory contains a .git entry.
	IsRepository(ctx context.Context) (bool, error)

	// Init creates the working directory if needed and runs git init.
	Init(ctx context.Context) error

	// RemoveRemote deletes a remote. Returns ErrRemoteNotFound if it is absent.
	RemoveRemote(ctx context.Context, name string) error

	// AddRemote binds name to url.
	AddRemote(ctx context.Context, name, url string) error

	// FetchBranch fetches one branch of remote into refs/remotes/<remote>/<branch>
	// without tags.
	FetchBranch(ctx context.Context, remote, branch string) error

	// CheckoutForce checks out branch reset to startPoint, discarding local changes.
	CheckoutForce(ctx context.Context, branch, startPoint string) error

	// ResetHard resets index and working tree to ref.
	ResetHard(ctx context.Context, ref string) error

	// Clean removes untracked and ignored files, including nested repositories.
	Clean(ctx context.Context) error

	// Status returns the parsed working tree status.
	Status(ctx context.Context) (*Status, error)

	// StatusPorcelain returns the raw NUL-delimited porcelain status output.
	StatusPorcelain(ctx context.Context) (string, error)

	// SetConfig sets a repository-local config value.
	SetConfig(ctx context.Context, key, value string) error

	// BranchExists checks if a local branch exists.
	BranchExists(ctx context.Context, name string) (bool, error)

	// CreateBranch creates a branch from HEAD and checks it out.
	// Returns ErrBranchExists if the branch already exists.
	CreateBranch(ctx context.Context, name string) error

	// AddAll stages every change in the working tree.
	AddAll(ctx context.Context) error

	// DiffStaged returns the diff of staged changes.
	DiffStaged(ctx context.Context) (string, error)

	// Commit creates a commit with message kept verbatim.
	Commit(ctx context.Context, message string) error

	// Push pushes branch to remote.
	// If setUpstream is true, sets the upstream tracking reference.
	Push(ctx context.Context, remote, branch string, setUpstream bool) error

	// HeadCommit returns the full hash of HEAD.
	HeadCommit(ctx context.Context) (string, error)

	// CurrentBranch returns the checked out branch name.
	// Returns an error if in detached HEAD state.
	CurrentBranch(ctx context.Context) (string, error)
}
