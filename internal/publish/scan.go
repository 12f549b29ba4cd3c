package publish

import (
	"context"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"

	"github.com/mrz1836/codexbuild/internal/ctxutil"
)

// Finding is one likely secret in a staged diff. The matched value itself is
// never retained.
type Finding struct {
	RuleID      string `json:"rule_id"`
	Description string `json:"description"`
	Line        int    `json:"line"`
}

// Scanner inspects staged changes for secrets before they are committed.
type Scanner interface {
	Scan(ctx context.Context, diff string) ([]Finding, error)
}

// GitleaksScanner scans with the default gitleaks rule set.
type GitleaksScanner struct {
	once     sync.Once
	detector *detect.Detector
	initErr  error
}

// NewGitleaksScanner creates a scanner. The rule set is compiled on first use.
func NewGitleaksScanner() *GitleaksScanner {
	return &GitleaksScanner{}
}

// Scan returns the findings in diff.
func (s *GitleaksScanner) Scan(ctx context.Context, diff string) ([]Finding, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	s.once.Do(func() {
		s.detector, s.initErr = detect.NewDetectorDefaultConfig()
	})
	if s.initErr != nil {
		return nil, s.initErr
	}

	leaks := s.detector.DetectString(diff)
	findings := make([]Finding, 0, len(leaks))
	for _, f := range leaks {
		findings = append(findings, Finding{
			RuleID:      f.RuleID,
			Description: f.Description,
			Line:        f.StartLine,
		})
	}
	return findings, nil
}
