// Package git wraps the git CLI for the build workspace.
// This file contains error classification for git remote operations.
package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/mrz1836/codexbuild/internal/errors"
)

// ErrorType represents the classification of a git remote error.
type ErrorType int

const (
	// ErrorTypeUnknown indicates the error could not be classified.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeAuth indicates an authentication error.
	ErrorTypeAuth
	// ErrorTypeNetwork indicates a network connectivity error.
	ErrorTypeNetwork
	// ErrorTypeNotFound indicates a missing repository or ref.
	ErrorTypeNotFound
	// ErrorTypeNonFastForward indicates a non-fast-forward push rejection.
	ErrorTypeNonFastForward
)

// String returns a human-readable name for the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeUnknown:
		return "unknown"
	case ErrorTypeAuth:
		return "authentication"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeNonFastForward:
		return "non_fast_forward"
	default:
		return "unknown"
	}
}

// PatternMatcher checks if a string contains any of a list of patterns.
// Patterns must be lowercase.
type PatternMatcher struct {
	patterns []string
}

// NewPatternMatcher creates a new PatternMatcher with the given patterns.
func NewPatternMatcher(patterns ...string) *PatternMatcher {
	return &PatternMatcher{patterns: patterns}
}

// Matches returns true if the input string contains any of the patterns.
// The input is lowercased before matching.
func (m *PatternMatcher) Matches(s string) bool {
	return m.matchesLower(strings.ToLower(s))
}

func (m *PatternMatcher) matchesLower(lower string) bool {
	for _, pattern := range m.patterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

//nolint:gochecknoglobals // Package-level immutable pattern matchers
var (
	authPatterns = NewPatternMatcher(
		"authentication failed",
		"could not read username",
		"could not read password",
		"permission denied",
		"invalid username or password",
		"access denied",
		"authentication required",
		"host key verification failed",
		"terminal prompts disabled",
	)

	networkPatterns = NewPatternMatcher(
		"could not resolve host",
		"connection refused",
		"network is unreachable",
		"connection timed out",
		"operation timed out",
		"no route to host",
		"failed to connect",
		"connection reset",
		"the remote end hung up unexpectedly",
	)

	notFoundPatterns = NewPatternMatcher(
		"repository not found",
		"does not appear to be a git repository",
		"couldn't find remote ref",
		"does not exist",
	)

	nonFastForwardPatterns = NewPatternMatcher(
		"non-fast-forward",
		"[rejected]",
		"updates were rejected",
		"fetch first",
		"tip of your current branch is behind",
	)
)

// ClassifyError determines the error type from an error string.
//
// Order matters, first match wins:
// authentication, non-fast-forward, not found, network.
// "the remote end hung up" accompanies auth and not-found failures on some
// transports, so network is checked last.
func ClassifyError(errStr string) ErrorType {
	lower := strings.ToLower(errStr)
	switch {
	case authPatterns.matchesLower(lower):
		return ErrorTypeAuth
	case nonFastForwardPatterns.matchesLower(lower):
		return ErrorTypeNonFastForward
	case notFoundPatterns.matchesLower(lower):
		return ErrorTypeNotFound
	case networkPatterns.matchesLower(lower):
		return ErrorTypeNetwork
	}
	return ErrorTypeUnknown
}

// PushFailure converts a push error into ErrPushFailed, additionally marked
// with the sentinel for its class so callers can give targeted advice.
func PushFailure(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}

	switch ClassifyError(err.Error()) {
	case ErrorTypeAuth:
		return fmt.Errorf("%w: %w: %w", errors.ErrPushFailed, errors.ErrPushAuthFailed, err)
	case ErrorTypeNetwork:
		return fmt.Errorf("%w: %w: %w", errors.ErrPushFailed, errors.ErrPushNetworkFailed, err)
	case ErrorTypeNonFastForward:
		return fmt.Errorf("%w: %w: %w", errors.ErrPushFailed, errors.ErrPushRejected, err)
	case ErrorTypeUnknown, ErrorTypeNotFound:
	}
	return fmt.Errorf("%w: %w", errors.ErrPushFailed, err)
}
