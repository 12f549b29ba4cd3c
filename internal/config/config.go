// Package config provides configuration loading and validation for codexbuild.
//
// A Config is the immutable input set of one run: the prompt, the repository
// to mirror, credential references, agent selection and publish behavior.
// Values come from built-in defaults, an optional YAML file, CODEXBUILD_*
// environment variables and CLI flags, in increasing order of precedence.
//
// The build id and workspace directory are deliberately absent: the host
// supplies them per run and they are passed to the orchestrator directly.
package config

import "time"

// Config is the complete configuration of a single build run.
// It is read-only once validation has succeeded.
type Config struct {
	// Prompt is the free-text instruction handed to the coding agent. Required.
	Prompt string `yaml:"prompt" mapstructure:"prompt"`

	// Repository selects the remote and branch the workspace mirrors.
	Repository RepositoryConfig `yaml:"repository" mapstructure:"repository"`

	// Credentials holds opaque references into the credential store.
	Credentials CredentialsConfig `yaml:"credentials" mapstructure:"credentials"`

	// Agent configures the coding agent invocation.
	Agent AgentConfig `yaml:"agent" mapstructure:"agent"`

	// Git configures commit authorship and publishing.
	Git GitConfig `yaml:"git" mapstructure:"git"`

	// Publish configures checks applied before committing.
	Publish PublishConfig `yaml:"publish" mapstructure:"publish"`

	// Report configures run artifacts written during finalization.
	Report ReportConfig `yaml:"report" mapstructure:"report"`
}

// RepositoryConfig identifies the remote repository and branch.
type RepositoryConfig struct {
	// URL is the remote repository URL. Required.
	URL string `yaml:"url" mapstructure:"url"`

	// Branch is the branch fetched and mirrored into the workspace.
	// Default: "master".
	Branch string `yaml:"branch" mapstructure:"branch"`
}

// CredentialsConfig holds credential references, never secret values.
type CredentialsConfig struct {
	// APIKeyRef references a secret-text credential holding the provider API key. Required.
	APIKeyRef string `yaml:"api_key_ref" mapstructure:"api_key_ref"`

	// GitRef optionally references a username/password or SSH key credential
	// used for fetch and push. Empty means the repository URL is used as-is.
	GitRef string `yaml:"git_ref" mapstructure:"git_ref"`

	// File is an optional YAML credential store. Host-injected
	// CODEXBUILD_CRED_* variables are always consulted first.
	File string `yaml:"file" mapstructure:"file"`
}

// AgentConfig configures the coding agent process.
type AgentConfig struct {
	// Command is the agent executable. Default: "codex".
	Command string `yaml:"command" mapstructure:"command"`

	// Model is passed as --model. Default: "o4-mini".
	Model string `yaml:"model" mapstructure:"model"`

	// Provider is passed as --provider. Default: "openai".
	Provider string `yaml:"provider" mapstructure:"provider"`

	// BaseURL is exported to the agent as its API base URL.
	// Default: "https://api.openai.com/v1".
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// ApprovalMode is passed as --approval-mode. Default: "full-auto".
	ApprovalMode string `yaml:"approval_mode" mapstructure:"approval_mode"`

	// APIKeyEnv names the variable carrying the API key. Default: "OPENAI_API_KEY".
	APIKeyEnv string `yaml:"api_key_env" mapstructure:"api_key_env"`

	// BaseURLEnv names the variable carrying the base URL. Default: "OPENAI_BASE_URL".
	BaseURLEnv string `yaml:"base_url_env" mapstructure:"base_url_env"`

	// Timeout bounds one agent invocation. Zero means the built-in default (30m).
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// GitConfig configures commit authorship and publishing.
type GitConfig struct {
	// AuthorName is written to the workspace's user.name (best effort).
	AuthorName string `yaml:"author_name" mapstructure:"author_name"`

	// AuthorEmail is written to the workspace's user.email (best effort).
	AuthorEmail string `yaml:"author_email" mapstructure:"author_email"`

	// Push enables pushing the release branch to origin. Default: false.
	Push bool `yaml:"push" mapstructure:"push"`
}

// PublishConfig configures checks on staged changes.
type PublishConfig struct {
	// SecretScan is one of "warn", "block" or "off". Default: "warn".
	SecretScan string `yaml:"secret_scan" mapstructure:"secret_scan"`
}

// ReportConfig configures artifacts written when a run finalizes.
type ReportConfig struct {
	// Path, when set, receives a JSON summary of the run.
	Path string `yaml:"path" mapstructure:"path"`

	// MetricsFile, when set, receives Prometheus text-format metrics.
	MetricsFile string `yaml:"metrics_file" mapstructure:"metrics_file"`
}
