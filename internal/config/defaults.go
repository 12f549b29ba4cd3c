package config

import (
	"github.com/mrz1836/codexbuild/internal/constants"
)

// DefaultConfig returns a Config populated with every default value.
// Required fields (prompt, API key reference, repository URL) are left empty:
// they have no default and must come from the operator.
func DefaultConfig() *Config {
	return &Config{
		Repository: RepositoryConfig{
			Branch: constants.DefaultBranch,
		},
		Agent: AgentConfig{
			Command:      constants.DefaultAgentCommand,
			Model:        constants.DefaultModel,
			Provider:     constants.DefaultProvider,
			BaseURL:      constants.DefaultBaseURL,
			ApprovalMode: constants.DefaultApprovalMode,
			APIKeyEnv:    constants.DefaultAPIKeyEnv,
			BaseURLEnv:   constants.DefaultBaseURLEnv,
			Timeout:      constants.DefaultAgentTimeout,
		},
		Git: GitConfig{
			AuthorName:  constants.DefaultAuthorName,
			AuthorEmail: constants.DefaultAuthorEmail,
		},
		Publish: PublishConfig{
			SecretScan: constants.SecretScanWarn,
		},
	}
}
