// Package publish turns the agent's changes into a commit on a per-build
// release branch and optionally pushes that branch to origin.
package publish

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrz1836/codexbuild/internal/constants"
	"github.com/mrz1836/codexbuild/internal/ctxutil"
	"github.com/mrz1836/codexbuild/internal/detect"
	"github.com/mrz1836/codexbuild/internal/errors"
	"github.com/mrz1836/codexbuild/internal/git"
	"github.com/mrz1836/codexbuild/internal/policy"
)

// Outcome describes what Publish left behind. A failed push still reports
// the local branch and commit.
type Outcome struct {
	Branch   string    `json:"branch"`
	Commit   string    `json:"commit,omitempty"`
	Pushed   bool      `json:"pushed"`
	Findings []Finding `json:"findings,omitempty"`
}

// CommitPusher commits workspace changes to the release branch of one build.
type CommitPusher struct {
	runner      git.Runner
	buildID     string
	prompt      string
	authorName  string
	authorEmail string
	push        bool
	scanMode    string
	scanner     Scanner
	logger      zerolog.Logger
}

// Option configures a CommitPusher.
type Option func(*CommitPusher)

// WithAuthor sets the commit identity written to the workspace config.
func WithAuthor(name, email string) Option {
	return func(p *CommitPusher) {
		p.authorName = name
		p.authorEmail = email
	}
}

// WithPush enables pushing the release branch to origin.
func WithPush(push bool) Option {
	return func(p *CommitPusher) {
		p.push = push
	}
}

// WithSecretScan sets the scan mode (warn, block or off) and the scanner.
func WithSecretScan(mode string, scanner Scanner) Option {
	return func(p *CommitPusher) {
		p.scanMode = mode
		p.scanner = scanner
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *CommitPusher) {
		p.logger = logger
	}
}

// NewCommitPusher creates a CommitPusher operating through runner.
func NewCommitPusher(runner git.Runner, buildID, prompt string, opts ...Option) *CommitPusher {
	p := &CommitPusher{
		runner:      runner,
		buildID:     buildID,
		prompt:      prompt,
		authorName:  constants.DefaultAuthorName,
		authorEmail: constants.DefaultAuthorEmail,
		scanMode:    constants.SecretScanOff,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("component", "publish").Str("build_id", buildID).Logger()
	return p
}

// Publish creates the release branch, stages everything, commits with the
// build message and pushes when enabled. There is no rollback: if the push
// fails the local commit stays and the returned Outcome records it.
func (p *CommitPusher) Publish(ctx context.Context, changes *detect.ChangeSet) (*Outcome, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if changes == nil || !changes.Changed {
		return nil, errors.ErrNoChanges
	}

	if err := policy.BestEffort.Apply(ctx, p.logger, "configure author", p.configureAuthor); err != nil {
		return nil, err
	}

	outcome := &Outcome{Branch: ReleaseBranchName(p.buildID)}

	if err := p.createBranch(ctx, outcome.Branch); err != nil {
		return nil, err
	}
	if err := p.runner.AddAll(ctx); err != nil {
		return outcome, err
	}

	findings, err := p.scan(ctx)
	outcome.Findings = findings
	if err != nil {
		return outcome, err
	}

	if err := p.runner.Commit(ctx, CommitMessage(p.buildID, p.prompt)); err != nil {
		return outcome, err
	}
	commit, err := p.runner.HeadCommit(ctx)
	if err != nil {
		return outcome, err
	}
	outcome.Commit = commit

	p.logger.Info().
		Str("branch", outcome.Branch).
		Str("commit", commit).
		Int("paths", len(changes.Paths)).
		Msg("changes committed")

	if !p.push {
		p.logger.Info().Msg("push disabled, release branch kept local")
		return outcome, nil
	}

	if err := p.runner.Push(ctx, constants.DefaultRemote, outcome.Branch, true); err != nil {
		return outcome, git.PushFailure(err)
	}
	outcome.Pushed = true
	p.logger.Info().Str("branch", outcome.Branch).Msg("release branch pushed")
	return outcome, nil
}

func (p *CommitPusher) configureAuthor(ctx context.Context) error {
	if p.authorName != "" {
		if err := p.runner.SetConfig(ctx, "user.name", p.authorName); err != nil {
			return err
		}
	}
	if p.authorEmail != "" {
		if err := p.runner.SetConfig(ctx, "user.email", p.authorEmail); err != nil {
			return err
		}
	}
	return nil
}

func (p *CommitPusher) createBranch(ctx context.Context, name string) error {
	exists, err := p.runner.BranchExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return errors.Wrapf(errors.ErrBranchExists, "%s", name)
	}
	return p.runner.CreateBranch(ctx, name)
}

// scan checks the staged diff according to the configured mode. In warn mode
// scanner failures and findings are only logged.
func (p *CommitPusher) scan(ctx context.Context) ([]Finding, error) {
	if p.scanMode == constants.SecretScanOff || p.scanner == nil {
		return nil, nil
	}

	mode := policy.BestEffort
	if p.scanMode == constants.SecretScanBlock {
		mode = policy.Fatal
	}

	var findings []Finding
	err := mode.Apply(ctx, p.logger, "secret scan", func(ctx context.Context) error {
		diff, err := p.runner.DiffStaged(ctx)
		if err != nil {
			return err
		}
		findings, err = p.scanner.Scan(ctx, diff)
		if err != nil {
			return err
		}
		if len(findings) == 0 {
			return nil
		}
		for _, f := range findings {
			p.logger.Warn().
				Str("rule_id", f.RuleID).
				Int("line", f.Line).
				Msg("possible secret in staged changes")
		}
		return fmt.Errorf("%w: %d finding(s)", errors.ErrSecretsDetected, len(findings))
	})
	return findings, err
}
