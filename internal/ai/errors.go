package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mrz1836/codexbuild/internal/logging"
)

// maxStderrInError caps how much agent stderr is carried in an error.
const maxStderrInError = 2048

// CLIInfo contains agent-specific information for error messages.
type CLIInfo struct {
	Name        string // CLI command name (e.g., "codex")
	InstallHint string // Installation instructions
	ErrType     error  // Sentinel error type for this agent
	EnvVar      string // API key environment variable name
}

// WrapCLIExecutionError wraps an execution error with agent-specific context.
// Stderr is filtered for secrets and truncated before it is embedded.
func WrapCLIExecutionError(info CLIInfo, err error, stderr []byte) error {
	stderrStr := logging.FilterSensitiveValue(strings.TrimSpace(string(stderr)))
	stderrStr = tail(stderrStr, maxStderrInError)

	if strings.Contains(stderrStr, "command not found") ||
		strings.Contains(err.Error(), "executable file not found") {
		return fmt.Errorf("%w: %s CLI not found - %s", info.ErrType, info.Name, info.InstallHint)
	}

	lower := strings.ToLower(stderrStr)
	if strings.Contains(lower, "api key") ||
		strings.Contains(lower, "authentication") ||
		strings.Contains(lower, "unauthorized") ||
		(info.EnvVar != "" && strings.Contains(stderrStr, info.EnvVar)) {
		return fmt.Errorf("%w: API key error: %s", info.ErrType, stderrStr)
	}

	if stderrStr != "" {
		return fmt.Errorf("%w: %s: %s", info.ErrType, err.Error(), stderrStr)
	}
	return fmt.Errorf("%w: %s", info.ErrType, err.Error())
}

// tail returns at most limit trailing bytes of s, starting on a rune boundary.
func tail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	start := len(s) - limit
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
