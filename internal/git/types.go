// Package git wraps the git CLI for the build workspace.
// This file defines types used by the Runner.
package git

import "strings"

// Status represents the current state of a Git working tree.
type Status struct {
	Staged    []FileChange // Files staged for commit
	Unstaged  []FileChange // Modified but not staged
	Untracked []string     // Untracked files
}

// FileChange represents a changed file in the working tree.
type FileChange struct {
	Path    string     // File path relative to repo root
	Status  ChangeType // Type of change (Added, Modified, Deleted, etc.)
	OldPath string     // For renamed or copied files, the original path
}

// ChangeType represents the type of change for a file.
type ChangeType string

// Change type constants for git status.
const (
	ChangeAdded    ChangeType = "A"
	ChangeModified ChangeType = "M"
	ChangeDeleted  ChangeType = "D"
	ChangeRenamed  ChangeType = "R"
	ChangeCopied   ChangeType = "C"
	ChangeUnmerged ChangeType = "U"
	ChangeTypeOnly ChangeType = "T"
)

// IsClean returns true if the working tree has no changes.
func (s *Status) IsClean() bool {
	return len(s.Staged) == 0 && len(s.Unstaged) == 0 && len(s.Untracked) == 0
}

// Paths returns every path with evidence of change, in status order and
// without duplicates. Renames and copies contribute their destination.
func (s *Status) Paths() []string {
	seen := make(map[string]struct{})
	var paths []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	for _, c := range s.Staged {
		add(c.Path)
	}
	for _, c := range s.Unstaged {
		add(c.Path)
	}
	for _, p := range s.Untracked {
		add(p)
	}
	return paths
}

// ParsePorcelainZ parses `git status --porcelain -z` output. Each entry is
// "XY PATH" terminated by NUL; rename and copy entries are followed by one
// more NUL-terminated field holding the source path.
func ParsePorcelainZ(output string) *Status {
	status := &Status{
		Staged:    []FileChange{},
		Unstaged:  []FileChange{},
		Untracked: []string{},
	}

	fields := strings.Split(output, "\x00")
	for i := 0; i < len(fields); i++ {
		entry := fields[i]
		if len(entry) < 4 {
			continue
		}

		indexStatus := entry[0]
		workTreeStatus := entry[1]
		path := entry[3:]

		var oldPath string
		if isRenameOrCopy(indexStatus) || isRenameOrCopy(workTreeStatus) {
			if i+1 < len(fields) {
				oldPath = fields[i+1]
				i++
			}
		}

		switch {
		case indexStatus == '?' && workTreeStatus == '?':
			status.Untracked = append(status.Untracked, path)
			continue
		case indexStatus == '!' && workTreeStatus == '!':
			continue
		}

		if indexStatus != ' ' {
			status.Staged = append(status.Staged, FileChange{
				Path:    path,
				Status:  ChangeType(string(indexStatus)),
				OldPath: oldPath,
			})
		}
		if workTreeStatus != ' ' {
			status.Unstaged = append(status.Unstaged, FileChange{
				Path:    path,
				Status:  ChangeType(string(workTreeStatus)),
				OldPath: oldPath,
			})
		}
	}

	return status
}

func isRenameOrCopy(b byte) bool {
	return b == 'R' || b == 'C'
}
