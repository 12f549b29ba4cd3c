// Package preflight verifies the build host before a run touches anything:
// the git and agent binaries must be on PATH and the credential file, when
// configured, must be readable.
package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/codexbuild/internal/config"
	"github.com/mrz1836/codexbuild/internal/constants"
	"github.com/mrz1836/codexbuild/internal/credentials"
	"github.com/mrz1836/codexbuild/internal/ctxutil"
	"github.com/mrz1836/codexbuild/internal/errors"
)

//nolint:gochecknoglobals // compiled once
var versionRe = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?)`)

// Level is the severity of a failed check.
type Level int

const (
	// LevelError blocks the run.
	LevelError Level = iota
	// LevelWarn is reported but does not block the run.
	LevelWarn
)

// String returns a string representation of the level.
func (l Level) String() string {
	if l == LevelWarn {
		return "warn"
	}
	return "error"
}

// Result is the outcome of one check.
type Result struct {
	Name    string `json:"name"`
	Level   Level  `json:"-"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// Check is one independent, read-only environment probe.
type Check interface {
	Name() string
	Run(ctx context.Context, executor CommandExecutor) Result
}

// CommandExecutor abstracts binary lookup and execution for testability.
type CommandExecutor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// DefaultCommandExecutor implements CommandExecutor using os/exec.
type DefaultCommandExecutor struct{}

// LookPath searches for an executable in the PATH.
func (DefaultCommandExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run executes a command and returns its combined output.
func (DefaultCommandExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //#nosec G204 -- fixed check commands
	cmd.Env = credentials.Environ()
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// Report collects the results of a preflight run in check order.
type Report struct {
	Results []Result `json:"results"`
}

// Failed returns the failed checks at error level.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Passed && res.Level == LevelError {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err returns ErrPreflightFailed naming every blocking failure, or nil.
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(failed))
	for _, res := range failed {
		names = append(names, res.Name)
	}
	return errors.Wrap(errors.ErrPreflightFailed, strings.Join(names, ", "))
}

// Checker runs checks concurrently.
type Checker struct {
	executor CommandExecutor
	checks   []Check
}

// NewChecker creates a Checker. A nil executor uses DefaultCommandExecutor.
func NewChecker(executor CommandExecutor, checks ...Check) *Checker {
	if executor == nil {
		executor = DefaultCommandExecutor{}
	}
	return &Checker{executor: executor, checks: checks}
}

// ForConfig returns the standard checks for a run configured by cfg.
func ForConfig(cfg *config.Config) []Check {
	agent := cfg.Agent.Command
	if agent == "" {
		agent = constants.DefaultAgentCommand
	}
	checks := []Check{
		&BinaryCheck{
			Label:       "git",
			Command:     "git",
			MinVersion:  constants.MinVersionGit,
			InstallHint: "Install Git from https://git-scm.com/downloads",
		},
		&BinaryCheck{
			Label:       "agent",
			Command:     agent,
			InstallHint: "install with: npm install -g @openai/codex",
		},
	}
	if cfg.Credentials.File != "" {
		checks = append(checks, &FileCheck{Label: "credentials file", Path: cfg.Credentials.File})
	}
	return checks
}

// Run executes every check and returns the report. Checks are independent
// and read-only, so they run in parallel; results keep the check order.
func (c *Checker) Run(ctx context.Context) (*Report, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	report := &Report{Results: make([]Result, len(c.checks))}

	g, gCtx := errgroup.WithContext(ctx)
	for i, check := range c.checks {
		g.Go(func() error {
			res := check.Run(gCtx, c.executor)
			res.Name = check.Name()
			report.Results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to run preflight checks: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return report, nil
}

// BinaryCheck verifies an executable is on PATH and, when MinVersion is
// set, that its --version output reports at least that version.
type BinaryCheck struct {
	Label       string
	Command     string
	MinVersion  string
	InstallHint string
}

// Name implements Check.
func (b *BinaryCheck) Name() string {
	return b.Label
}

// Run implements Check.
func (b *BinaryCheck) Run(ctx context.Context, executor CommandExecutor) Result {
	path, err := executor.LookPath(b.Command)
	if err != nil {
		return Result{Message: fmt.Sprintf("%s not found on PATH", b.Command), Hint: b.InstallHint}
	}
	if b.MinVersion == "" {
		return Result{Passed: true, Message: path}
	}

	out, err := executor.Run(ctx, b.Command, "--version")
	if err != nil {
		return Result{Level: LevelWarn, Message: fmt.Sprintf("%s found at %s, version unknown", b.Command, path)}
	}
	version := ParseVersion(out)
	if version == "" {
		return Result{Level: LevelWarn, Message: fmt.Sprintf("%s found at %s, version unknown", b.Command, path)}
	}
	if CompareVersions(version, b.MinVersion) < 0 {
		return Result{
			Message: fmt.Sprintf("%s %s is older than %s", b.Command, version, b.MinVersion),
			Hint:    b.InstallHint,
		}
	}
	return Result{Passed: true, Message: fmt.Sprintf("%s %s", path, version)}
}

// FileCheck verifies a file can be opened for reading.
type FileCheck struct {
	Label string
	Path  string
}

// Name implements Check.
func (f *FileCheck) Name() string {
	return f.Label
}

// Run implements Check.
func (f *FileCheck) Run(context.Context, CommandExecutor) Result {
	file, err := os.Open(f.Path)
	if err != nil {
		return Result{Message: err.Error(), Hint: "check the --credentials-file path and its permissions"}
	}
	_ = file.Close()
	return Result{Passed: true, Message: f.Path}
}

// ParseVersion extracts the first dotted version number from s.
func ParseVersion(s string) string {
	m := versionRe.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// CompareVersions compares dotted numeric versions, treating missing
// segments as zero. It returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		av, bv := segment(as, i), segment(bs, i)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	}
	return 0
}

func segment(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n := 0
	for _, c := range parts[i] {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}
