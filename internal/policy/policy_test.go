package policy

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/codexbuild/internal/testutil"
)

func TestPolicy_Apply(t *testing.T) {
	t.Parallel()

	failing := func(context.Context) error { return testutil.ErrMockGitFailed }
	passing := func(context.Context) error { return nil }

	t.Run("fatal propagates", func(t *testing.T) {
		t.Parallel()
		err := Fatal.Apply(context.Background(), zerolog.Nop(), "commit", failing)
		require.ErrorIs(t, err, testutil.ErrMockGitFailed)
	})

	t.Run("best effort logs and swallows", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		err := BestEffort.Apply(context.Background(), zerolog.New(&buf), "configure author", failing)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `"level":"warn"`)
		assert.Contains(t, buf.String(), `"step":"configure author"`)
		assert.Contains(t, buf.String(), testutil.ErrMockGitFailed.Error())
	})

	t.Run("best effort still propagates cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := BestEffort.Apply(ctx, zerolog.Nop(), "configure author", func(ctx context.Context) error {
			return ctx.Err()
		})
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("success is silent", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, Fatal.Apply(context.Background(), zerolog.New(&buf), "x", passing))
		require.NoError(t, BestEffort.Apply(context.Background(), zerolog.New(&buf), "x", passing))
		assert.Empty(t, buf.String())
	})
}

func TestPolicy_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "fatal", Fatal.String())
	assert.Equal(t, "best_effort", BestEffort.String())
	assert.Equal(t, "unknown", Policy(9).String())
}
