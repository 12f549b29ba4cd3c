// Package constants provides centralized constant values used throughout codexbuild.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory and file names used by codexbuild.
const (
	// AppHome is the hidden directory name where codexbuild stores its data.
	// This directory is created in the user's home directory.
	AppHome = ".codexbuild"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// CLILogFileName is the name of the rotating CLI log file.
	CLILogFileName = "codexbuild.log"

	// ProjectConfigDir is the per-project configuration directory.
	ProjectConfigDir = ".codexbuild"

	// ConfigFileName is the configuration file name inside config directories.
	ConfigFileName = "config.yaml"

	// LockFileSuffix is appended to the workspace directory name to form its lock file.
	LockFileSuffix = ".codexbuild.lock"
)

// Log rotation settings for the CLI log file.
const (
	LogMaxSizeMB  = 10
	LogMaxBackups = 5
	LogMaxAgeDays = 30
	LogCompress   = true
)

// Git defaults.
const (
	// DefaultRemote is the only remote codexbuild manages.
	DefaultRemote = "origin"

	// DefaultBranch is the branch mirrored when none is configured.
	DefaultBranch = "master"

	// ReleaseBranchPrefix prefixes the per-build branch holding agent changes.
	ReleaseBranchPrefix = "codex-build-"

	// DefaultAuthorName is the commit author name used when none is configured.
	DefaultAuthorName = "Codex Build"

	// DefaultAuthorEmail is the commit author email used when none is configured.
	DefaultAuthorEmail = "codex-build@localhost"

	// MinVersionGit is the oldest git whose clean, fetch and status flags are relied on.
	MinVersionGit = "2.20"
)

// Agent defaults.
const (
	// DefaultAgentCommand is the coding agent executable.
	DefaultAgentCommand = "codex"

	// DefaultModel is the model passed to the agent when none is configured.
	DefaultModel = "o4-mini"

	// DefaultProvider is the provider passed to the agent when none is configured.
	DefaultProvider = "openai"

	// DefaultBaseURL is the public inference endpoint used when none is configured.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultApprovalMode keeps the agent from waiting on confirmation prompts.
	DefaultApprovalMode = "full-auto"

	// DefaultAPIKeyEnv is the variable the agent reads its API key from.
	DefaultAPIKeyEnv = "OPENAI_API_KEY"

	// DefaultBaseURLEnv is the variable the agent reads its base URL from.
	DefaultBaseURLEnv = "OPENAI_BASE_URL"

	// DefaultAgentTimeout bounds a single agent invocation.
	DefaultAgentTimeout = 30 * time.Minute
)

// Secret scan modes for staged changes.
const (
	SecretScanWarn  = "warn"
	SecretScanBlock = "block"
	SecretScanOff   = "off"
)

// Environment variables supplied by the build host.
const (
	// EnvHome overrides the codexbuild home directory.
	EnvHome = "CODEXBUILD_HOME"

	// EnvHostBuildNumber is read for the build id when --build-id is not given.
	EnvHostBuildNumber = "BUILD_NUMBER"

	// EnvHostWorkspace is read for the workspace when --workspace is not given.
	EnvHostWorkspace = "WORKSPACE"

	// EnvCredentialPrefix prefixes host-injected credential variables.
	EnvCredentialPrefix = "CODEXBUILD_CRED_"
)
