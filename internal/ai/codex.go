package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/codexbuild/internal/clock"
	"github.com/mrz1836/codexbuild/internal/config"
	"github.com/mrz1836/codexbuild/internal/constants"
	"github.com/mrz1836/codexbuild/internal/credentials"
	"github.com/mrz1836/codexbuild/internal/ctxutil"
	"github.com/mrz1836/codexbuild/internal/errors"
)

// waitDelay bounds how long Wait blocks for output pipes after the agent
// was killed on timeout or cancellation.
const waitDelay = 10 * time.Second

// Invoker runs the coding agent.
type Invoker interface {
	Invoke(ctx context.Context, req *Request) (*Result, error)
}

// CodexRunner implements Invoker for the codex CLI.
type CodexRunner struct {
	config   *config.AgentConfig
	executor CommandExecutor
	clock    clock.Clock
	logger   zerolog.Logger
}

// CodexRunnerOption is a functional option for configuring CodexRunner.
type CodexRunnerOption func(*CodexRunner)

// WithLogger sets the logger for the CodexRunner.
func WithLogger(logger zerolog.Logger) CodexRunnerOption {
	return func(r *CodexRunner) {
		r.logger = logger
	}
}

// WithClock sets the clock used to measure invocation duration.
func WithClock(c clock.Clock) CodexRunnerOption {
	return func(r *CodexRunner) {
		r.clock = c
	}
}

// NewCodexRunner creates a new CodexRunner with the given configuration.
// If executor is nil, a DefaultExecutor is used for production subprocess execution.
func NewCodexRunner(cfg *config.AgentConfig, executor CommandExecutor, opts ...CodexRunnerOption) *CodexRunner {
	if executor == nil {
		executor = &DefaultExecutor{}
	}
	if cfg == nil {
		cfg = &config.AgentConfig{}
	}
	r := &CodexRunner{
		config:   cfg,
		executor: executor,
		clock:    clock.RealClock{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("component", "agent").Logger()
	return r
}

// ResolveTimeout determines the timeout to use for a request.
// Priority: request timeout > config timeout > default timeout.
func (r *CodexRunner) ResolveTimeout(req *Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	if r.config.Timeout > 0 {
		return r.config.Timeout
	}
	return constants.DefaultAgentTimeout
}

// Invoke runs the agent once in req.WorkingDir. Failures are not retried.
func (r *CodexRunner) Invoke(ctx context.Context, req *Request) (*Result, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	timeout := r.ResolveTimeout(req)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := r.buildCommand(runCtx, req)
	r.logger.Info().
		Str("command", cmd.Path).
		Str("model", r.model(req)).
		Str("provider", r.provider(req)).
		Dur("timeout", timeout).
		Int("prompt_bytes", len(req.Prompt)).
		Msg("invoking agent")

	start := r.clock.Now()
	stdout, stderr, err := r.executor.Execute(runCtx, cmd)
	result := &Result{
		Duration:    r.clock.Now().Sub(start),
		StdoutBytes: len(stdout),
		StderrBytes: len(stderr),
	}
	r.logger.Debug().
		Int("stdout_bytes", result.StdoutBytes).
		Int("stderr_bytes", result.StderrBytes).
		Dur("duration", result.Duration).
		Msg("agent exited")

	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if stderrors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return result, fmt.Errorf("%w after %s", errors.ErrAgentTimeout, timeout)
		}
		return result, WrapCLIExecutionError(r.cliInfo(), err, stderr)
	}
	return result, nil
}

// buildCommand constructs the agent command. The prompt is one argv entry;
// no shell is involved. It is the first argument and is not preceded by
// "--", so a prompt starting with '-' reaches the agent's flag parser as is.
func (r *CodexRunner) buildCommand(ctx context.Context, req *Request) *exec.Cmd {
	args := []string{
		req.Prompt,
		"--model", r.model(req),
		"--provider", r.provider(req),
		"--approval-mode", firstNonEmpty(r.config.ApprovalMode, constants.DefaultApprovalMode),
		"--quiet",
	}

	cmd := exec.CommandContext(ctx, r.command(), args...) //#nosec G204 -- argv only, no shell
	cmd.Dir = req.WorkingDir
	cmd.WaitDelay = waitDelay
	cmd.Env = append(credentials.Environ(),
		firstNonEmpty(r.config.APIKeyEnv, constants.DefaultAPIKeyEnv)+"="+req.APIKey.Reveal(),
		firstNonEmpty(r.config.BaseURLEnv, constants.DefaultBaseURLEnv)+"="+
			firstNonEmpty(req.BaseURL, r.config.BaseURL, constants.DefaultBaseURL),
	)
	return cmd
}

func (r *CodexRunner) command() string {
	return firstNonEmpty(r.config.Command, constants.DefaultAgentCommand)
}

func (r *CodexRunner) model(req *Request) string {
	return firstNonEmpty(req.Model, r.config.Model, constants.DefaultModel)
}

func (r *CodexRunner) provider(req *Request) string {
	return firstNonEmpty(req.Provider, r.config.Provider, constants.DefaultProvider)
}

func (r *CodexRunner) cliInfo() CLIInfo {
	return CLIInfo{
		Name:        r.command(),
		InstallHint: "install with: npm install -g @openai/codex",
		ErrType:     errors.ErrAgentInvocation,
		EnvVar:      firstNonEmpty(r.config.APIKeyEnv, constants.DefaultAPIKeyEnv),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
