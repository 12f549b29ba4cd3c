// Package detect decides whether the agent left any change in the workspace.
package detect

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/codexbuild/internal/ctxutil"
	"github.com/mrz1836/codexbuild/internal/errors"
	"github.com/mrz1836/codexbuild/internal/git"
)

// ChangeSet is the evidence of modification in the workspace.
type ChangeSet struct {
	// Changed is true when the porcelain status is non-empty after trimming.
	Changed bool `json:"changed"`

	// Paths lists changed paths; renames contribute their destination.
	Paths []string `json:"paths,omitempty"`

	// Raw is the trimmed porcelain output.
	Raw string `json:"-"`
}

// StatusSource is the subset of git.Runner the detector needs.
type StatusSource interface {
	StatusPorcelain(ctx context.Context) (string, error)
}

// Detector inspects the working tree. It never modifies it.
type Detector struct {
	source StatusSource
	logger zerolog.Logger
}

// NewDetector creates a Detector reading status from source.
func NewDetector(source StatusSource, logger zerolog.Logger) *Detector {
	return &Detector{
		source: source,
		logger: logger.With().Str("component", "detect").Logger(),
	}
}

// Detect reports tracked modifications, deletions and untracked files.
// Calling it repeatedly on an unchanged tree returns the same ChangeSet.
func (d *Detector) Detect(ctx context.Context) (*ChangeSet, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	raw, err := d.source.StatusPorcelain(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrDetection, err.Error())
	}

	trimmed := strings.TrimSpace(raw)
	cs := &ChangeSet{Changed: trimmed != "", Raw: trimmed}
	if cs.Changed {
		cs.Paths = git.ParsePorcelainZ(raw).Paths()
	}

	d.logger.Info().
		Bool("changed", cs.Changed).
		Int("paths", len(cs.Paths)).
		Msg("change detection complete")
	return cs, nil
}
