package ai

import (
	"time"

	"github.com/mrz1836/codexbuild/internal/credentials"
)

// Request is one agent invocation.
type Request struct {
	// Prompt is passed verbatim as a single argument.
	Prompt string

	// WorkingDir is the workspace the agent edits.
	WorkingDir string

	// APIKey is exported to the agent under the configured variable name.
	APIKey credentials.Secret

	// BaseURL overrides the configured API base URL when set.
	BaseURL string

	// Model and Provider override the configured values when set.
	Model    string
	Provider string

	// Timeout overrides the configured timeout when positive.
	Timeout time.Duration
}

// Result describes a finished agent invocation. Output content is not kept.
type Result struct {
	Duration    time.Duration
	StdoutBytes int
	StderrBytes int
}
