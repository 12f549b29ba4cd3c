package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinel errors to their user-facing messages.
// Entries are matched in order with errors.Is(), so more specific sentinels
// must come before the general ones they are usually wrapped together with.
//
//nolint:gochecknoglobals // Pre-built mapping for efficiency
var errorInfoEntries = []errorEntry{
	// ===================
	// Configuration
	// ===================
	{
		err: ErrMissingParameter,
		info: ErrorInfo{
			Message: "Required build parameters are missing.",
			Action:  "Provide --prompt, --api-key-ref and --repo (or the matching CODEXBUILD_* variables).",
		},
	},
	{
		err: ErrInvalidBuildID,
		info: ErrorInfo{
			Message: "No build id was supplied by the host.",
			Action:  "Pass --build-id or set BUILD_NUMBER to a positive integer.",
		},
	},
	{
		err: ErrConfigInvalidAgent,
		info: ErrorInfo{
			Message: "Agent configuration is invalid.",
			Action:  "Check the agent.* settings in your config file or flags.",
		},
	},
	{
		err: ErrConfigInvalidRepository,
		info: ErrorInfo{
			Message: "Repository configuration is invalid.",
			Action:  "Check --repo and --branch.",
		},
	},
	{
		err: ErrConfigInvalidPublish,
		info: ErrorInfo{
			Message: "Publish configuration is invalid.",
			Action:  "Use one of warn, block or off for --secret-scan.",
		},
	},

	// ===================
	// Credentials
	// ===================
	{
		err: ErrCredentialNotFound,
		info: ErrorInfo{
			Message: "A credential reference could not be resolved.",
			Action:  "Check the reference id and the credentials file or CODEXBUILD_CRED_* variables.",
		},
	},
	{
		err: ErrCredentialWrongKind,
		info: ErrorInfo{
			Message: "A credential reference points at the wrong kind of secret.",
			Action:  "Use a secret-text credential for the API key and a username/password or SSH key for git.",
		},
	},
	{
		err: ErrCredentialInvalid,
		info: ErrorInfo{
			Message: "Credential material could not be used.",
			Action:  "Verify the SSH key and passphrase, or use an http(s) repository URL for username/password access.",
		},
	},
	{
		err: ErrCredentialStore,
		info: ErrorInfo{
			Message: "The credential store could not be read.",
			Action:  "Check the path and permissions of the credentials file.",
		},
	},

	// ===================
	// Workspace & Git
	// ===================
	{
		err: ErrWorkspaceLocked,
		info: ErrorInfo{
			Message: "Another run is using this workspace.",
			Action:  "Wait for the other run to finish or use a separate workspace directory.",
		},
	},
	{
		err: ErrBranchExists,
		info: ErrorInfo{
			Message: "The release branch already exists in the workspace.",
			Action:  "Build ids must be unique; check that the host is not reusing them.",
		},
	},
	{
		err: ErrPushAuthFailed,
		info: ErrorInfo{
			Message: "The remote rejected the push credentials.",
			Action:  "Check that the git credential has write access to the repository.",
		},
	},
	{
		err: ErrPushNetworkFailed,
		info: ErrorInfo{
			Message: "The remote could not be reached while pushing.",
			Action:  "Check network connectivity to the git host. The commit is kept locally.",
		},
	},
	{
		err: ErrPushRejected,
		info: ErrorInfo{
			Message: "The remote refused the release branch.",
			Action:  "Check branch protection rules for codex-build-* branches.",
		},
	},
	{
		err: ErrPushFailed,
		info: ErrorInfo{
			Message: "Pushing the release branch failed. The commit is kept locally.",
			Action:  "Inspect the git error above and re-run the build.",
		},
	},
	{
		err: ErrSecretsDetected,
		info: ErrorInfo{
			Message: "The agent's changes look like they contain secrets.",
			Action:  "Review the staged diff in the workspace or run with --secret-scan=warn.",
		},
	},
	{
		err: ErrDetection,
		info: ErrorInfo{
			Message: "Could not determine whether the agent changed any files.",
			Action:  "Check that the workspace is still a valid git repository.",
		},
	},
	{
		err: ErrGitOperation,
		info: ErrorInfo{
			Message: "A git command failed.",
			Action:  "Check the repository URL, branch name and git credential.",
		},
	},

	// ===================
	// Agent
	// ===================
	{
		err: ErrAgentTimeout,
		info: ErrorInfo{
			Message: "The coding agent did not finish in time.",
			Action:  "Increase --agent-timeout or narrow the prompt.",
		},
	},
	{
		err: ErrAgentInvocation,
		info: ErrorInfo{
			Message: "The coding agent exited with an error.",
			Action:  "Verify the API key, base URL and model, and that the codex CLI is installed.",
		},
	},
	{
		err: ErrInterrupted,
		info: ErrorInfo{
			Message: "The build was interrupted.",
			Action:  "The workspace lock was released; rerun the build when ready.",
		},
	},
	{
		err: ErrPreflightFailed,
		info: ErrorInfo{
			Message: "The build environment is missing required tools.",
			Action:  "Run 'codexbuild doctor' for details.",
		},
	},
}

// getErrorInfo looks up the ErrorInfo for a given error.
// Returns an ErrorInfo with the original error message if not found.
func getErrorInfo(err error) ErrorInfo {
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}
	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for the error.
// Unknown errors return their own text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action the user can take to resolve or work around the issue.
//
// For errors that have no clear action, the action string will be empty.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
