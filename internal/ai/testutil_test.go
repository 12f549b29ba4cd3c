package ai

import (
	"context"
	"os/exec"
	"sync"
	"testing"
)

// EnsureNoRealAPIKeys clears provider API keys for the duration of the test
// so nothing in this package can reach a real model API.
//
// All tests here use MockExecutor; no agent process is ever started.
func EnsureNoRealAPIKeys(t *testing.T) {
	t.Helper()

	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
}

// MockExecutor records the command it was asked to run and returns canned
// output. When Block is set it waits for ctx to end and returns ctx.Err().
type MockExecutor struct {
	StdoutData []byte
	StderrData []byte
	Err        error
	Block      bool

	mu          sync.Mutex
	CapturedCmd *exec.Cmd
	Calls       int
}

func (m *MockExecutor) Execute(ctx context.Context, cmd *exec.Cmd) ([]byte, []byte, error) {
	m.mu.Lock()
	m.CapturedCmd = cmd
	m.Calls++
	m.mu.Unlock()

	if m.Block {
		<-ctx.Done()
		return m.StdoutData, m.StderrData, ctx.Err()
	}
	return m.StdoutData, m.StderrData, m.Err
}
