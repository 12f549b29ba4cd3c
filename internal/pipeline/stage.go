// Package pipeline runs one build: the ordered stages that take a prompt and a
// repository to a committed, optionally pushed, release branch.
//
// This file implements the stage state machine.
//
// Import rules:
//   - CAN import: every internal package except internal/cli and internal/tui
//   - MUST NOT import: internal/cli, internal/tui
package pipeline

import (
	"fmt"
	"slices"

	"github.com/mrz1836/codexbuild/internal/errors"
)

// Stage is a step of the build state machine.
type Stage string

// Build stages in execution order. StagePending is the state before the
// first stage starts.
const (
	StagePending    Stage = "pending"
	StageValidate   Stage = "validate"
	StageInit       Stage = "init"
	StageInvoke     Stage = "invoke"
	StageDetect     Stage = "detect"
	StageCommitPush Stage = "commit_push"
	StageSkipCommit Stage = "skip_commit"
	StageFinalize   Stage = "finalize"
)

// ValidTransitions defines every allowed stage transition.
// Format: from_stage -> []to_stages
//
// The state machine follows this flow:
//
//	Pending → Validate
//	Validate → Init, Finalize
//	Init → Invoke, Finalize
//	Invoke → Detect, Finalize
//	Detect → CommitPush, SkipCommit, Finalize
//	CommitPush → Finalize
//	SkipCommit → Finalize
//
// Every stage may jump straight to Finalize when it fails. Finalize is terminal.
//
//nolint:gochecknoglobals // Exported for testing and read-only lookup table
var ValidTransitions = map[Stage][]Stage{
	StagePending:    {StageValidate},
	StageValidate:   {StageInit, StageFinalize},
	StageInit:       {StageInvoke, StageFinalize},
	StageInvoke:     {StageDetect, StageFinalize},
	StageDetect:     {StageCommitPush, StageSkipCommit, StageFinalize},
	StageCommitPush: {StageFinalize},
	StageSkipCommit: {StageFinalize},
}

// IsValidTransition reports whether the machine may move from one stage to another.
func IsValidTransition(from, to Stage) bool {
	return slices.Contains(ValidTransitions[from], to)
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s Stage) bool {
	_, ok := ValidTransitions[s]
	return !ok
}

// transition validates a move and returns the new stage.
func transition(from, to Stage) (Stage, error) {
	if !IsValidTransition(from, to) {
		return from, fmt.Errorf("%w: cannot transition from %s to %s", errors.ErrInvalidTransition, from, to)
	}
	return to, nil
}

// StageError is the failure diagnostic of a run: the stage that failed and
// the underlying tool error.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements error.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}
