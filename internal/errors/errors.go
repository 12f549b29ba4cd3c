// Package errors provides centralized error handling for codexbuild.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrMissingParameter indicates that one or more mandatory run parameters
	// (prompt, API key reference, repository URL) were not supplied.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidAgent indicates an invalid agent configuration value.
	ErrConfigInvalidAgent = errors.New("invalid agent configuration")

	// ErrConfigInvalidRepository indicates an invalid repository configuration value.
	ErrConfigInvalidRepository = errors.New("invalid repository configuration")

	// ErrConfigInvalidPublish indicates an invalid publish configuration value.
	ErrConfigInvalidPublish = errors.New("invalid publish configuration")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrInvalidBuildID indicates the host did not supply a usable build identifier.
	ErrInvalidBuildID = errors.New("invalid build id")

	// ErrCredentialNotFound indicates that a credential reference could not be
	// resolved by any configured store.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrCredentialWrongKind indicates that a credential reference resolved to
	// material of a different kind than the caller asked for.
	ErrCredentialWrongKind = errors.New("credential has wrong type")

	// ErrCredentialInvalid indicates that credential material was present but unusable,
	// e.g. an SSH key that does not parse or a URL that cannot carry credentials.
	ErrCredentialInvalid = errors.New("credential invalid")

	// ErrCredentialStore indicates that a credential store could not be read.
	ErrCredentialStore = errors.New("credential store unavailable")

	// ErrGitOperation indicates that a git command failed during execution.
	ErrGitOperation = errors.New("git operation failed")

	// ErrRemoteNotFound indicates that the named git remote is not configured.
	ErrRemoteNotFound = errors.New("remote not found")

	// ErrBranchExists indicates the branch already exists.
	ErrBranchExists = errors.New("branch already exists")

	// ErrWorkspaceLocked indicates another run holds the workspace lock.
	ErrWorkspaceLocked = errors.New("workspace is locked by another run")

	// ErrAgentInvocation indicates that the coding agent failed to execute
	// or returned a non-zero exit code.
	ErrAgentInvocation = errors.New("agent invocation failed")

	// ErrAgentTimeout indicates that the coding agent exceeded its time budget.
	ErrAgentTimeout = errors.New("agent timed out")

	// ErrDetection indicates that the workspace status query failed.
	ErrDetection = errors.New("change detection failed")

	// ErrNoChanges indicates publishing was requested for a clean workspace.
	ErrNoChanges = errors.New("no changes to publish")

	// ErrPushFailed indicates that pushing the release branch failed.
	ErrPushFailed = errors.New("push failed")

	// ErrPushAuthFailed indicates the remote rejected the push credentials.
	ErrPushAuthFailed = errors.New("push authentication failed")

	// ErrPushNetworkFailed indicates the remote could not be reached.
	ErrPushNetworkFailed = errors.New("push network failure")

	// ErrPushRejected indicates the remote refused the ref update
	// (branch protection, non-fast-forward).
	ErrPushRejected = errors.New("push rejected by remote")

	// ErrSecretsDetected indicates that staged changes contain likely secrets
	// and the secret scan is configured to block.
	ErrSecretsDetected = errors.New("secrets detected in staged changes")

	// ErrInvalidTransition indicates an attempt to move the run state machine
	// along an edge that does not exist.
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrPreflightFailed indicates one or more environment checks failed.
	ErrPreflightFailed = errors.New("preflight checks failed")

	// ErrInterrupted indicates the run was stopped by SIGINT or SIGTERM.
	ErrInterrupted = errors.New("interrupted")
)
