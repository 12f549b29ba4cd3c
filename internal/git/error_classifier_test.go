package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/codexbuild/internal/errors"
)

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		errType  ErrorType
		expected string
	}{
		{ErrorTypeUnknown, "unknown"},
		{ErrorTypeAuth, "authentication"},
		{ErrorTypeNetwork, "network"},
		{ErrorTypeNotFound, "not_found"},
		{ErrorTypeNonFastForward, "non_fast_forward"},
		{ErrorType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.errType.String())
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		errStr   string
		expected ErrorType
	}{
		{"auth - https prompt disabled", "fatal: could not read Username for 'https://host': terminal prompts disabled", ErrorTypeAuth},
		{"auth - publickey", "git@host: Permission denied (publickey).", ErrorTypeAuth},
		{"auth - host key", "Host key verification failed.", ErrorTypeAuth},
		{"auth - case insensitive", "AUTHENTICATION FAILED", ErrorTypeAuth},
		{"auth wins over hang up", "Permission denied\nfatal: the remote end hung up unexpectedly", ErrorTypeAuth},

		{"network - resolve", "Could not resolve host: github.com", ErrorTypeNetwork},
		{"network - refused", "Failed to connect to 127.0.0.1 port 1: Connection refused", ErrorTypeNetwork},
		{"network - hung up", "fatal: the remote end hung up unexpectedly", ErrorTypeNetwork},

		{"non-fast-forward", " ! [rejected]        main -> main (fetch first)", ErrorTypeNonFastForward},
		{"updates rejected", "Updates were rejected because the tip of your current branch is behind", ErrorTypeNonFastForward},

		{"not found - repository", "remote: Repository not found.", ErrorTypeNotFound},
		{"not found - ref", "fatal: couldn't find remote ref feature", ErrorTypeNotFound},

		{"unknown", "something odd happened", ErrorTypeUnknown},
		{"empty", "", ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyError(tt.errStr))
		})
	}
}

func TestPatternMatcher(t *testing.T) {
	m := NewPatternMatcher("alpha", "beta")
	assert.True(t, m.Matches("has ALPHA inside"))
	assert.False(t, m.Matches("gamma"))
}

func TestPushFailure(t *testing.T) {
	gitErr := func(stderr string) error {
		return fmt.Errorf("failed to push: git push failed: %s: %w", stderr, errors.ErrGitOperation)
	}

	tests := []struct {
		name   string
		err    error
		marker error
	}{
		{"auth", gitErr("fatal: Authentication failed for 'https://host/r.git/'"), errors.ErrPushAuthFailed},
		{"network", gitErr("fatal: unable to access: Could not resolve host: host"), errors.ErrPushNetworkFailed},
		{"rejected", gitErr("! [rejected] codex-build-1 -> codex-build-1 (non-fast-forward)"), errors.ErrPushRejected},
		{"other", gitErr("fatal: weird"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PushFailure(tt.err)
			require.ErrorIs(t, got, errors.ErrPushFailed)
			require.ErrorIs(t, got, errors.ErrGitOperation)
			if tt.marker != nil {
				require.ErrorIs(t, got, tt.marker)
			}
		})
	}

	require.NoError(t, PushFailure(nil))
	assert.True(t, stderrors.Is(PushFailure(context.Canceled), context.Canceled))
	assert.False(t, stderrors.Is(PushFailure(context.Canceled), errors.ErrPushFailed))
}
