package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrz1836/codexbuild/internal/ai"
	"github.com/mrz1836/codexbuild/internal/clock"
	"github.com/mrz1836/codexbuild/internal/config"
	"github.com/mrz1836/codexbuild/internal/constants"
	"github.com/mrz1836/codexbuild/internal/credentials"
	"github.com/mrz1836/codexbuild/internal/ctxutil"
	"github.com/mrz1836/codexbuild/internal/detect"
	"github.com/mrz1836/codexbuild/internal/errors"
	"github.com/mrz1836/codexbuild/internal/git"
	"github.com/mrz1836/codexbuild/internal/metrics"
	"github.com/mrz1836/codexbuild/internal/policy"
	"github.com/mrz1836/codexbuild/internal/publish"
	"github.com/mrz1836/codexbuild/internal/workspace"
)

// ExecutorFactory builds the git runner a stage uses. env carries the
// stage's repository access environment, if any.
type ExecutorFactory func(workDir string, env []string, logger zerolog.Logger) git.Runner

// DefaultExecutorFactory runs the git CLI.
func DefaultExecutorFactory(workDir string, env []string, logger zerolog.Logger) git.Runner {
	return git.NewRunner(workDir, git.WithEnv(env...), git.WithLogger(logger))
}

// Orchestrator drives the build stages in order. It never retries a stage.
type Orchestrator struct {
	cfg     *config.Config
	buildID string
	workDir string

	store      credentials.Store
	invoker    ai.Invoker
	newRunner  ExecutorFactory
	recorder   metrics.Recorder
	clock      clock.Clock
	logger     zerolog.Logger
	finalizers []Finalizer
	scanner    publish.Scanner
	reportPath string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore sets the credential store. Default: host-injected
// CODEXBUILD_CRED_* variables.
func WithStore(store credentials.Store) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithInvoker sets the coding agent. Default: the codex CLI.
func WithInvoker(invoker ai.Invoker) Option {
	return func(o *Orchestrator) {
		o.invoker = invoker
	}
}

// WithExecutorFactory sets how git runners are built.
func WithExecutorFactory(factory ExecutorFactory) Option {
	return func(o *Orchestrator) {
		o.newRunner = factory
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder metrics.Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = recorder
	}
}

// WithClock sets the clock used for stage timing.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithFinalizer appends a finalizer. Finalizers run in the order added.
func WithFinalizer(f Finalizer) Option {
	return func(o *Orchestrator) {
		o.finalizers = append(o.finalizers, f)
	}
}

// WithScanner sets the staged-diff secret scanner. Default: gitleaks, unless
// the scan mode is off.
func WithScanner(s publish.Scanner) Option {
	return func(o *Orchestrator) {
		o.scanner = s
	}
}

// WithReportPath writes a JSON run report to path during finalize,
// overriding report.path from the config.
func WithReportPath(path string) Option {
	return func(o *Orchestrator) {
		o.reportPath = path
	}
}

// New creates an Orchestrator for one build. buildID and workDir come from
// the host and are not part of the run configuration.
func New(cfg *config.Config, buildID, workDir string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		buildID:   buildID,
		workDir:   workDir,
		store:     credentials.EnvStore{},
		newRunner: DefaultExecutorFactory,
		clock:     clock.RealClock{},
		logger:    zerolog.Nop(),
	}
	if cfg != nil {
		o.reportPath = cfg.Report.Path
	}
	for _, opt := range opts {
		opt(o)
	}

	o.logger = o.logger.With().Str("component", "pipeline").Str("build_id", buildID).Logger()

	if o.recorder == nil {
		if cfg != nil && cfg.Report.MetricsFile != "" {
			prom := metrics.NewPrometheusRecorder()
			o.recorder = prom
			o.finalizers = append(o.finalizers, &MetricsTextfile{Recorder: prom, Path: cfg.Report.MetricsFile})
		} else {
			o.recorder = metrics.NopRecorder{}
		}
	}
	if o.reportPath != "" {
		o.finalizers = append(o.finalizers, &ReportWriter{Path: o.reportPath})
	}
	if o.invoker == nil && cfg != nil {
		o.invoker = ai.NewCodexRunner(&cfg.Agent, nil, ai.WithLogger(o.logger), ai.WithClock(o.clock))
	}
	if o.scanner == nil && cfg != nil && cfg.Publish.SecretScan != constants.SecretScanOff {
		o.scanner = publish.NewGitleaksScanner()
	}
	return o
}

// run is the mutable state of one Run call.
type run struct {
	stage    Stage
	result   *Result
	lock     *workspace.Lock
	resolver *credentials.Resolver
	logger   zerolog.Logger
}

// Run executes the build. It always returns a Result; the error is the
// *StageError of the first failing stage, or nil. Finalize runs on every
// path, including cancellation.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	r := &run{
		stage: StagePending,
		result: &Result{
			RunID:     runID,
			BuildID:   o.buildID,
			Workspace: o.workDir,
			Status:    StatusSucceeded,
			Stages:    make([]StageRecord, 0, 6),
			StartedAt: o.clock.Now(),
		},
		logger: o.logger.With().Str("run_id", runID).Logger(),
	}
	r.resolver = credentials.NewResolver(o.store, credentials.WithResolverLogger(r.logger))

	err := o.execute(ctx, r)
	if err != nil {
		r.result.fail(err)
	}
	o.finalize(ctx, r)
	return r.result, err
}

func (o *Orchestrator) execute(ctx context.Context, r *run) error {
	if err := o.stage(ctx, r, StageValidate, o.validate); err != nil {
		return err
	}
	if err := o.stage(ctx, r, StageInit, o.initialize); err != nil {
		return err
	}
	if err := o.stage(ctx, r, StageInvoke, o.invoke); err != nil {
		return err
	}
	if err := o.stage(ctx, r, StageDetect, o.detect); err != nil {
		return err
	}

	if !r.result.Changes.Changed {
		return o.stage(ctx, r, StageSkipCommit, func(context.Context, *run) error {
			r.logger.Info().Msg("agent left no changes, nothing to commit")
			return nil
		})
	}
	return o.stage(ctx, r, StageCommitPush, o.commitPush)
}

// stage moves the machine to next, runs fn and records the outcome.
func (o *Orchestrator) stage(ctx context.Context, r *run, next Stage, fn func(context.Context, *run) error) error {
	var err error
	if r.stage, err = transition(r.stage, next); err != nil {
		return &StageError{Stage: next, Err: err}
	}

	if err = ctxutil.Canceled(ctx); err == nil {
		r.logger.Info().Str("stage", string(next)).Msg("stage started")
		start := o.clock.Now()
		err = fn(ctx, r)
		o.recordStage(r, next, start, err)
	}
	if err != nil {
		return &StageError{Stage: next, Err: err}
	}
	return nil
}

func (o *Orchestrator) recordStage(r *run, s Stage, start time.Time, err error) {
	duration := o.clock.Now().Sub(start)
	rec := StageRecord{Stage: s, Outcome: OutcomeSucceeded, StartedAt: start, Duration: duration}
	event := r.logger.Info()
	if err != nil {
		rec.Outcome = OutcomeFailed
		rec.Error = err.Error()
		event = r.logger.Error().Err(err)
	}
	r.result.record(rec)
	o.recorder.ObserveStage(string(s), rec.Outcome, duration)

	event.
		Str("stage", string(s)).
		Str("outcome", rec.Outcome).
		Dur("duration", duration).
		Msg("stage finished")
}

// validate checks the configuration before any process starts or any
// secret is resolved.
func (o *Orchestrator) validate(_ context.Context, _ *run) error {
	if err := config.Validate(o.cfg); err != nil {
		return err
	}
	if strings.TrimSpace(o.buildID) == "" {
		return errors.Wrap(errors.ErrInvalidBuildID, "build id is empty")
	}
	if strings.TrimSpace(o.workDir) == "" {
		return errors.Wrap(errors.ErrMissingParameter, "workspace directory is empty")
	}
	return nil
}

// initialize takes the workspace lock and mirrors origin/<branch> under the
// repository access of the git credential.
func (o *Orchestrator) initialize(ctx context.Context, r *run) error {
	lock, err := workspace.AcquireLock(o.workDir)
	if err != nil {
		return err
	}
	r.lock = lock
	r.logger.Debug().Str("lock", lock.Path()).Msg("workspace lock acquired")

	return r.resolver.WithRepoAccess(ctx, o.cfg.Credentials.GitRef, o.cfg.Repository.URL,
		func(access *credentials.RepoAccess) error {
			r.logger.Debug().Stringer("access", access).Msg("repository access acquired")
			runner := o.newRunner(o.workDir, access.Env(), r.logger)
			return workspace.NewInitializer(runner, o.cfg.Repository.Branch, workspace.WithLogger(r.logger)).
				Initialize(ctx, access.RemoteURL())
		})
}

// invoke runs the agent with the API key in scope only for the call.
func (o *Orchestrator) invoke(ctx context.Context, r *run) error {
	return r.resolver.WithSecretText(ctx, o.cfg.Credentials.APIKeyRef, func(key credentials.Secret) error {
		_, err := o.invoker.Invoke(ctx, &ai.Request{
			Prompt:     o.cfg.Prompt,
			WorkingDir: o.workDir,
			APIKey:     key,
			BaseURL:    o.cfg.Agent.BaseURL,
			Model:      o.cfg.Agent.Model,
			Provider:   o.cfg.Agent.Provider,
		})
		return err
	})
}

func (o *Orchestrator) detect(ctx context.Context, r *run) error {
	runner := o.newRunner(o.workDir, nil, r.logger)
	changes, err := detect.NewDetector(runner, r.logger).Detect(ctx)
	if err != nil {
		return err
	}
	r.result.Changes = changes
	o.recorder.ObserveChanges(len(changes.Paths))
	return nil
}

// commitPush publishes the changes. Credentials are only resolved when the
// push is enabled; a local commit needs none.
func (o *Orchestrator) commitPush(ctx context.Context, r *run) error {
	if !o.cfg.Git.Push {
		return o.publish(ctx, r, nil)
	}
	return r.resolver.WithRepoAccess(ctx, o.cfg.Credentials.GitRef, o.cfg.Repository.URL,
		func(access *credentials.RepoAccess) error {
			return o.publish(ctx, r, access.Env())
		})
}

func (o *Orchestrator) publish(ctx context.Context, r *run, env []string) error {
	runner := o.newRunner(o.workDir, env, r.logger)
	pusher := publish.NewCommitPusher(runner, o.buildID, o.cfg.Prompt,
		publish.WithAuthor(o.cfg.Git.AuthorName, o.cfg.Git.AuthorEmail),
		publish.WithPush(o.cfg.Git.Push),
		publish.WithSecretScan(o.cfg.Publish.SecretScan, o.scanner),
		publish.WithLogger(r.logger),
	)

	outcome, err := pusher.Publish(ctx, r.result.Changes)
	if outcome != nil {
		r.result.Branch = outcome.Branch
		r.result.Commit = outcome.Commit
		r.result.Pushed = outcome.Pushed
		r.result.Findings = outcome.Findings
	}
	return err
}

// finalize always runs, detached from cancellation of ctx. Every step is
// best effort: nothing here changes the run outcome.
func (o *Orchestrator) finalize(ctx context.Context, r *run) {
	ctx = context.WithoutCancel(ctx)
	if next, err := transition(r.stage, StageFinalize); err == nil {
		r.stage = next
	}
	start := o.clock.Now()

	_ = policy.BestEffort.Apply(ctx, r.logger, "release workspace lock", func(context.Context) error {
		return r.lock.Release()
	})

	r.result.FinishedAt = o.clock.Now()
	o.recorder.ObserveRun(string(r.result.Status), r.result.Duration(), r.result.FinishedAt)

	for _, f := range o.finalizers {
		_ = policy.BestEffort.Apply(ctx, r.logger, f.Name(), func(ctx context.Context) error {
			return f.Finalize(ctx, r.result)
		})
	}

	r.result.record(StageRecord{
		Stage:     StageFinalize,
		Outcome:   OutcomeSucceeded,
		StartedAt: start,
		Duration:  o.clock.Now().Sub(start),
	})

	event := r.logger.Info()
	if !r.result.Succeeded() {
		event = r.logger.Error().Str("failed_stage", string(r.result.FailedStage))
	}
	event.
		Str("status", string(r.result.Status)).
		Bool("changed", r.result.Changes != nil && r.result.Changes.Changed).
		Str("branch", r.result.Branch).
		Bool("pushed", r.result.Pushed).
		Dur("duration", r.result.Duration()).
		Msg("build finished")
}
