package pipeline

import (
	stderrors "errors"
	"time"

	"github.com/mrz1836/codexbuild/internal/detect"
	"github.com/mrz1836/codexbuild/internal/errors"
	"github.com/mrz1836/codexbuild/internal/publish"
)

// Status is the final status of a run.
type Status string

// Run statuses.
const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Stage outcomes recorded per stage.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitInvalidInput = 2
)

// StageRecord is the audit entry of one executed stage.
type StageRecord struct {
	Stage     Stage         `json:"stage"`
	Outcome   string        `json:"outcome"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Error     string        `json:"error,omitempty"`
}

// Result is everything a finished run reports.
type Result struct {
	RunID       string            `json:"run_id"`
	BuildID     string            `json:"build_id"`
	Workspace   string            `json:"workspace"`
	Status      Status            `json:"status"`
	FailedStage Stage             `json:"failed_stage,omitempty"`
	Error       string            `json:"error,omitempty"`
	Changes     *detect.ChangeSet `json:"changes,omitempty"`
	Branch      string            `json:"branch,omitempty"`
	Commit      string            `json:"commit,omitempty"`
	Pushed      bool              `json:"pushed"`
	Findings    []publish.Finding `json:"findings,omitempty"`
	Stages      []StageRecord     `json:"stages"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Err         error             `json:"-"`
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run completed without a stage failure.
func (r *Result) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// ExitCode maps the run outcome to a process exit code: 0 on success, 2 when
// mandatory parameters were missing, 1 for every other failure.
func (r *Result) ExitCode() int {
	switch {
	case r.Err == nil:
		return ExitSuccess
	case stderrors.Is(r.Err, errors.ErrMissingParameter):
		return ExitInvalidInput
	}
	return ExitFailure
}

func (r *Result) record(rec StageRecord) {
	r.Stages = append(r.Stages, rec)
}

func (r *Result) fail(err error) {
	r.Status = StatusFailed
	r.Err = err
	r.Error = err.Error()

	var se *StageError
	if stderrors.As(err, &se) {
		r.FailedStage = se.Stage
	}
}
