// Package workspace prepares the build workspace: a local repository bound to
// origin and reset to exactly the tip of the requested branch.
package workspace

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrz1836/codexbuild/internal/constants"
	"github.com/mrz1836/codexbuild/internal/credentials"
	"github.com/mrz1836/codexbuild/internal/ctxutil"
	"github.com/mrz1836/codexbuild/internal/errors"
	"github.com/mrz1836/codexbuild/internal/git"
)

// Step names reported when initialization fails.
const (
	StepInit         = "init"
	StepRemoveRemote = "remove-remote"
	StepAddRemote    = "add-remote"
	StepFetch        = "fetch"
	StepCheckout     = "checkout"
	StepReset        = "reset"
	StepClean        = "clean"
)

// StepError reports which initialization step failed.
type StepError struct {
	Step string
	Err  error
}

// Error implements error.
func (e *StepError) Error() string {
	return fmt.Sprintf("workspace %s: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Initializer brings a workspace directory to the state of origin/<branch>.
type Initializer struct {
	runner git.Runner
	branch string
	remote string
	logger zerolog.Logger
}

// InitializerOption configures an Initializer.
type InitializerOption func(*Initializer)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) InitializerOption {
	return func(i *Initializer) {
		i.logger = logger
	}
}

// NewInitializer creates an Initializer operating through runner.
// An empty branch means constants.DefaultBranch.
func NewInitializer(runner git.Runner, branch string, opts ...InitializerOption) *Initializer {
	if branch == "" {
		branch = constants.DefaultBranch
	}
	i := &Initializer{
		runner: runner,
		branch: branch,
		remote: constants.DefaultRemote,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With().Str("component", "workspace").Logger()
	return i
}

// Initialize makes the workspace a repository whose origin is remoteURL and
// whose working tree matches origin/<branch> exactly, with no untracked or
// ignored files left. Running it twice in a row yields the same state.
func (i *Initializer) Initialize(ctx context.Context, remoteURL credentials.RemoteURL) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	tracking := i.remote + "/" + i.branch
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{StepInit, i.ensureRepository},
		{StepRemoveRemote, i.removeOrigin},
		{StepAddRemote, func(ctx context.Context) error { return i.runner.AddRemote(ctx, i.remote, remoteURL.Reveal()) }},
		{StepFetch, func(ctx context.Context) error { return i.runner.FetchBranch(ctx, i.remote, i.branch) }},
		{StepCheckout, func(ctx context.Context) error { return i.runner.CheckoutForce(ctx, i.branch, tracking) }},
		{StepReset, func(ctx context.Context) error { return i.runner.ResetHard(ctx, tracking) }},
		{StepClean, i.runner.Clean},
	}

	for _, step := range steps {
		i.logger.Debug().Str("step", step.name).Msg("workspace step")
		if err := step.run(ctx); err != nil {
			return &StepError{Step: step.name, Err: err}
		}
	}

	i.logger.Info().
		Str("workspace", i.runner.WorkDir()).
		Str("branch", i.branch).
		Stringer("remote_url", remoteURL).
		Msg("workspace initialized")
	return nil
}

func (i *Initializer) ensureRepository(ctx context.Context) error {
	ok, err := i.runner.IsRepository(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return i.runner.Init(ctx)
}

// removeOrigin drops any previous origin binding; a missing origin is fine.
func (i *Initializer) removeOrigin(ctx context.Context) error {
	err := i.runner.RemoveRemote(ctx, i.remote)
	if err != nil && !stderrors.Is(err, errors.ErrRemoteNotFound) {
		return err
	}
	return nil
}
