package signal

import (
	"context"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_SignalCancelsAndRecords(t *testing.T) {
	h := NewHandler(context.Background())
	defer h.Stop()

	require.NoError(t, h.Context().Err())
	_, ok := h.ExitCode()
	assert.False(t, ok)

	h.handleSignal(syscall.SIGTERM)
	h.handleSignal(syscall.SIGINT)

	assert.Equal(t, context.Canceled, h.Context().Err())
	assert.Equal(t, syscall.SIGTERM, h.Received(), "only the first signal counts")

	code, ok := h.ExitCode()
	assert.True(t, ok)
	assert.Equal(t, 143, code)

	select {
	case <-h.Interrupted():
	default:
		t.Fatal("interrupted channel should be closed after signal")
	}
}

func TestHandler_SIGINTExitCode(t *testing.T) {
	h := NewHandler(context.Background())
	defer h.Stop()

	h.handleSignal(syscall.SIGINT)
	code, ok := h.ExitCode()
	assert.True(t, ok)
	assert.Equal(t, 130, code)
}

func TestHandler_StopIsIdempotent(t *testing.T) {
	h := NewHandler(context.Background())

	h.Stop()
	h.Stop()

	require.Error(t, h.Context().Err())
	assert.Nil(t, h.Received())
	select {
	case <-h.Interrupted():
		t.Fatal("stop is not an interrupt")
	default:
	}
}

func TestHandler_ParentCanceled(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	h := NewHandler(parent)
	defer h.Stop()

	cancel()
	assert.Error(t, h.Context().Err())
}

func TestHandler_RepeatedSignalsDoNotBlock(t *testing.T) {
	h := NewHandler(context.Background())
	defer h.Stop()

	h.sigChan <- syscall.SIGINT
	h.sigChan <- syscall.SIGINT

	<-h.Interrupted()
	assert.Equal(t, context.Canceled, h.Context().Err())
}
