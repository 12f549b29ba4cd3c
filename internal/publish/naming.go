package publish

import (
	"fmt"

	"github.com/mrz1836/codexbuild/internal/constants"
)

// ReleaseBranchName returns the branch that holds the changes of one build.
func ReleaseBranchName(buildID string) string {
	return constants.ReleaseBranchPrefix + buildID
}

// CommitSummary returns the first line of a build commit message.
func CommitSummary(buildID string) string {
	return fmt.Sprintf("codex build #%s", buildID)
}

// CommitMessage builds the full commit message: the summary line, a blank
// line, then the prompt verbatim as the body paragraph.
func CommitMessage(buildID, prompt string) string {
	return CommitSummary(buildID) + "\n\n" + prompt
}
