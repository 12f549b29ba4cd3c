// Package testutil provides testing utilities for codexbuild.
//
// This package contains mock errors and git repository fixtures used across
// test files. It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors for testing purposes.
var (
	// ErrMockAgentFailed simulates a failing agent process.
	ErrMockAgentFailed = errors.New("agent exited with status 1")

	// ErrMockGitFailed simulates a failing git invocation.
	ErrMockGitFailed = errors.New("git command failed")

	// ErrMockStoreUnavailable simulates an unreachable credential store.
	ErrMockStoreUnavailable = errors.New("credential store unavailable")

	// ErrMockFinalizer simulates a failing finalize hook.
	ErrMockFinalizer = errors.New("finalizer failed")
)
