package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrz1836/codexbuild/internal/pipeline"
)

func TestSemanticColors(t *testing.T) {
	assert.Equal(t, "#0087AF", ColorPrimary.Light)
	assert.Equal(t, "#00D7FF", ColorPrimary.Dark)
	assert.Equal(t, "#008700", ColorSuccess.Light)
	assert.Equal(t, "#AF0000", ColorError.Light)
	assert.Equal(t, "#AF8700", ColorWarning.Light)
	assert.Equal(t, "#585858", ColorMuted.Light)
}

func TestHasColorSupport(t *testing.T) {
	t.Run("NO_COLOR set to empty disables color", func(t *testing.T) {
		t.Setenv("NO_COLOR", "")
		t.Setenv("TERM", "xterm-256color")
		assert.False(t, HasColorSupport())
	})

	t.Run("dumb terminal disables color", func(t *testing.T) {
		t.Setenv("TERM", "dumb")
		assert.False(t, HasColorSupport())
	})
}

func TestOutcomeIcon(t *testing.T) {
	tests := []struct {
		outcome string
		icon    string
		color   string
	}{
		{pipeline.OutcomeSucceeded, "✓", ColorSuccess.Dark},
		{pipeline.OutcomeFailed, "✗", ColorError.Dark},
		{"skipped", "○", ColorMuted.Dark},
	}

	for _, tc := range tests {
		t.Run(tc.outcome, func(t *testing.T) {
			assert.Equal(t, tc.icon, OutcomeIcon(tc.outcome))
			assert.Equal(t, tc.color, OutcomeColor(tc.outcome).Dark)
		})
	}
}
