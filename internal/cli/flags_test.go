package cli

import (
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/codexbuild/internal/errors"
)

func TestExitCodes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, ExitSuccess)
	assert.Equal(t, 1, ExitError)
	assert.Equal(t, 2, ExitInvalidInput)
}

func TestAddGlobalFlags(t *testing.T) {
	t.Parallel()

	flags := &GlobalFlags{}
	cmd := &cobra.Command{Use: "test"}
	AddGlobalFlags(cmd, flags)

	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"output", "o", OutputText},
		{"verbose", "v", "false"},
		{"quiet", "q", "false"},
		{"config", "c", ""},
	}
	for _, tc := range tests {
		f := cmd.PersistentFlags().Lookup(tc.name)
		require.NotNil(t, f, tc.name)
		assert.Equal(t, tc.shorthand, f.Shorthand)
		assert.Equal(t, tc.def, f.DefValue)
	}
}

func TestIsValidOutputFormat(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidOutputFormat("text"))
	assert.True(t, IsValidOutputFormat("json"))
	assert.False(t, IsValidOutputFormat("yaml"))
	assert.False(t, IsValidOutputFormat(""))
}

func TestExitCodeForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, ExitSuccess},
		{"explicit code", errors.NewExitCodeError(130, errors.ErrInterrupted), 130},
		{"explicit code wins over sentinel", errors.NewExitCodeError(1, errors.ErrMissingParameter), ExitError},
		{"missing parameter", errors.Wrap(errors.ErrMissingParameter, "prompt"), ExitInvalidInput},
		{"invalid output format", fmt.Errorf("%w: xml", errors.ErrInvalidOutputFormat), ExitInvalidInput},
		{"unknown flag", fmt.Errorf("unknown flag: --nope"), ExitInvalidInput},
		{"unknown command", fmt.Errorf(`unknown command "nope" for "codexbuild"`), ExitInvalidInput},
		{"general failure", errors.ErrAgentInvocation, ExitError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, ExitCodeForError(tc.err))
		})
	}
}
