package publish

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleaseBranchName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "codex-build-42", ReleaseBranchName("42"))
	assert.Equal(t, "codex-build-1", ReleaseBranchName("1"))
}

func TestCommitMessage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "codex build #42\n\nfix the tests", CommitMessage("42", "fix the tests"))
	assert.Equal(t, "codex build #3\n\n  spaced\n#hash", CommitMessage("3", "  spaced\n#hash"))
}

func TestGitleaksScanner(t *testing.T) {
	t.Parallel()

	s := NewGitleaksScanner()

	clean, err := s.Scan(context.Background(), "+package hello\n+func Hello() string { return \"hi\" }\n")
	require.NoError(t, err)
	assert.Empty(t, clean)

	token := "ghp_" + "R4nd0mT0kenV4lu3F0rGitleaksTest9Zq1x"
	leaky, err := s.Scan(context.Background(), "+const token = \""+token+"\"\n")
	require.NoError(t, err)
	require.NotEmpty(t, leaky)
	rules := make([]string, 0, len(leaky))
	for _, f := range leaky {
		rules = append(rules, f.RuleID)
	}
	assert.Contains(t, rules, "github-pat")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Scan(ctx, "")
	require.ErrorIs(t, err, context.Canceled)
}
