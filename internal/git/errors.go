// Package git wraps the git CLI for the build workspace.
// This file provides error sentinel re-exports from internal/errors.
package git

import (
	"github.com/mrz1836/codexbuild/internal/errors"
)

// ErrGitOperation is re-exported from internal/errors for convenience.
// Use errors.Is(err, ErrGitOperation) to check for git operation failures.
var ErrGitOperation = errors.ErrGitOperation

// ErrBranchExists is re-exported from internal/errors for convenience.
// Returned when attempting to create a branch that already exists.
var ErrBranchExists = errors.ErrBranchExists

// ErrRemoteNotFound is re-exported from internal/errors for convenience.
// Returned when removing a remote that is not configured.
var ErrRemoteNotFound = errors.ErrRemoteNotFound
