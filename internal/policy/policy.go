// Package policy decides what a step failure means for the surrounding run.
//
// Every side-effecting step declares its policy explicitly: Fatal steps end
// the stage, BestEffort steps log a warning and let the stage continue.
package policy

import (
	"context"

	"github.com/rs/zerolog"
)

// Policy is the failure handling declared by a step.
type Policy int

const (
	// Fatal propagates the step error.
	Fatal Policy = iota
	// BestEffort logs the step error as a warning and swallows it.
	BestEffort
)

// String returns a string representation of the policy.
func (p Policy) String() string {
	switch p {
	case Fatal:
		return "fatal"
	case BestEffort:
		return "best_effort"
	}
	return "unknown"
}

// Apply runs fn and interprets its error under p. Context cancellation is
// always propagated, even for best-effort steps.
func (p Policy) Apply(ctx context.Context, logger zerolog.Logger, step string, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		return nil
	}
	if p == Fatal || ctx.Err() != nil {
		return err
	}

	logger.Warn().
		Err(err).
		Str("step", step).
		Str("policy", p.String()).
		Msg("step failed, continuing")
	return nil
}
