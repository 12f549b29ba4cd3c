package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrz1836/codexbuild/internal/errors"
	"github.com/mrz1836/codexbuild/internal/pipeline"
	"github.com/mrz1836/codexbuild/internal/preflight"
)

const (
	// labelWidth aligns stage titles and detail labels in one column.
	labelWidth = 18

	// maxListedPaths caps the changed paths printed under the summary.
	maxListedPaths = 5

	// pathWidth is the display width changed paths are truncated to.
	pathWidth = 60
)

// StageTitle turns a stage identifier into a display title ("commit_push"
// becomes "Commit Push").
func StageTitle(stage pipeline.Stage) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(stage), "_", " "))
}

// FormatDuration rounds d for display: milliseconds below a second,
// tenths of a second below a minute, whole seconds above.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

// RenderRunSummary renders a finished run as a headline, one row per
// executed stage and the publish details.
func RenderRunSummary(result *pipeline.Result, styles *OutputStyles) string {
	var b strings.Builder

	outcome := pipeline.OutcomeSucceeded
	if !result.Succeeded() {
		outcome = pipeline.OutcomeFailed
	}
	headline := fmt.Sprintf("%s build #%s %s", OutcomeIcon(outcome), result.BuildID, outcome)
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(OutcomeColor(outcome)).Render(headline))
	b.WriteString(" ")
	b.WriteString(styles.Dim.Render("in " + FormatDuration(result.Duration())))
	b.WriteString("\n\n")

	for _, rec := range result.Stages {
		icon := lipgloss.NewStyle().Foreground(OutcomeColor(rec.Outcome)).Render(OutcomeIcon(rec.Outcome))
		fmt.Fprintf(&b, "  %s %s %s\n", icon, styles.Label.Render(StageTitle(rec.Stage)), styles.Dim.Render(FormatDuration(rec.Duration)))
	}
	b.WriteString("\n")

	writeDetail(&b, styles, "Workspace", result.Workspace)
	switch {
	case result.Changes == nil:
	case !result.Changes.Changed:
		writeDetail(&b, styles, "Changes", "none, nothing committed")
	default:
		writeDetail(&b, styles, "Changes", fmt.Sprintf("%d path(s)", len(result.Changes.Paths)))
		writePaths(&b, styles, result.Changes.Paths)
	}
	if result.Branch != "" {
		branch := result.Branch
		if result.Pushed {
			branch += " (pushed)"
		}
		writeDetail(&b, styles, "Branch", branch)
	}
	if result.Commit != "" {
		writeDetail(&b, styles, "Commit", shortSHA(result.Commit))
	}
	if n := len(result.Findings); n > 0 {
		writeDetail(&b, styles, "Findings", styles.Warning.Render(fmt.Sprintf("⚠ %d possible secret(s)", n)))
	}

	if result.Err != nil {
		b.WriteString("\n")
		b.WriteString(styles.Error.Render("✗ " + result.Error))
		b.WriteString("\n")
		if _, action := errors.Actionable(result.Err); action != "" {
			b.WriteString(styles.Dim.Render("  " + action))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderPreflight renders one line per check, with the install hint under
// each failure.
func RenderPreflight(report *preflight.Report, styles *OutputStyles) string {
	var b strings.Builder
	for _, res := range report.Results {
		var icon string
		switch {
		case res.Passed:
			icon = styles.Success.Render("✓")
		case res.Level == preflight.LevelWarn:
			icon = styles.Warning.Render("⚠")
		default:
			icon = styles.Error.Render("✗")
		}
		fmt.Fprintf(&b, "  %s %s %s\n", icon, styles.Label.Render(res.Name), res.Message)
		if !res.Passed && res.Hint != "" {
			fmt.Fprintf(&b, "    %s\n", styles.Dim.Render(res.Hint))
		}
	}
	return b.String()
}

func writeDetail(b *strings.Builder, styles *OutputStyles, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "  %s %s\n", styles.Label.Render(label), value)
}

// writePaths lists the first changed paths, truncated by display width so
// wide runes do not break the column.
func writePaths(b *strings.Builder, styles *OutputStyles, paths []string) {
	indent := strings.Repeat(" ", labelWidth+3)
	for i, p := range paths {
		if i == maxListedPaths {
			fmt.Fprintf(b, "%s%s\n", indent, styles.Dim.Render(fmt.Sprintf("… %d more", len(paths)-maxListedPaths)))
			return
		}
		fmt.Fprintf(b, "%s%s\n", indent, styles.Dim.Render(runewidth.Truncate(p, pathWidth, "…")))
	}
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
