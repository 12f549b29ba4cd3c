// Package git wraps the git CLI for the build workspace.
// This file provides shared git command execution utilities.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mrz1836/codexbuild/internal/credentials"
	"github.com/mrz1836/codexbuild/internal/errors"
	"github.com/mrz1836/codexbuild/internal/logging"
)

// nonInteractiveEnv keeps git from ever waiting on a terminal prompt.
//
//nolint:gochecknoglobals // immutable
var nonInteractiveEnv = []string{"GIT_TERMINAL_PROMPT=0", "GCM_INTERACTIVE=never"}

// RunCommand executes a git command in the specified directory and returns its
// trimmed output. Errors wrap ErrGitOperation and carry stderr with secrets filtered.
func RunCommand(ctx context.Context, workDir string, args ...string) (string, error) {
	out, err := runCommand(ctx, workDir, nil, args...)
	return strings.TrimSpace(out), err
}

// runCommand executes git with extra environment entries and returns the raw
// stdout.
func runCommand(ctx context.Context, workDir string, env []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...) //#nosec G204 -- args are constructed internally
	cmd.Dir = workDir
	cmd.Env = append(append(credentials.Environ(), nonInteractiveEnv...), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := logging.FilterSensitiveValue(strings.TrimSpace(stderr.String()))
		if msg != "" {
			return "", fmt.Errorf("git %s failed: %s: %w", args[0], msg, errors.ErrGitOperation)
		}
		return "", fmt.Errorf("git %s failed: %s: %w", args[0], err.Error(), errors.ErrGitOperation)
	}

	return stdout.String(), nil
}
