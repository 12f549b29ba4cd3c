package config

import (
	"fmt"
	"strings"

	"github.com/mrz1836/codexbuild/internal/constants"
	"github.com/mrz1836/codexbuild/internal/errors"
)

// Keys of the mandatory parameters, in reporting order.
const (
	KeyPrompt    = "prompt"
	KeyAPIKeyRef = "credentials.api_key_ref"
	KeyRepoURL   = "repository.url"
)

// MissingParametersError names every mandatory parameter that was absent.
// It matches errors.ErrMissingParameter with errors.Is.
type MissingParametersError struct {
	Fields []string
}

// Error implements error.
func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("%s: %s", errors.ErrMissingParameter, strings.Join(e.Fields, ", "))
}

// Unwrap returns the sentinel so errors.Is works.
func (e *MissingParametersError) Unwrap() error {
	return errors.ErrMissingParameter
}

// ValidateRequired checks that the prompt, the API key reference and the
// repository URL are present. A value made only of whitespace counts as
// absent. Every missing field is reported, not just the first.
// It has no side effects.
func ValidateRequired(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	var missing []string
	if strings.TrimSpace(cfg.Prompt) == "" {
		missing = append(missing, KeyPrompt)
	}
	if strings.TrimSpace(cfg.Credentials.APIKeyRef) == "" {
		missing = append(missing, KeyAPIKeyRef)
	}
	if strings.TrimSpace(cfg.Repository.URL) == "" {
		missing = append(missing, KeyRepoURL)
	}

	if len(missing) > 0 {
		return &MissingParametersError{Fields: missing}
	}
	return nil
}

// Validate checks required parameters first, then the values of fields that
// carry defaults. It returns the first failure found.
//
// Validation rules beyond presence:
//   - repository.branch must be a usable branch name
//   - agent.command, agent.model and agent.provider must not be blank
//   - agent.timeout must not be negative
//   - publish.secret_scan must be warn, block or off
func Validate(cfg *Config) error {
	if err := ValidateRequired(cfg); err != nil {
		return err
	}

	if err := validateRepositoryConfig(&cfg.Repository); err != nil {
		return err
	}

	if err := validateAgentConfig(&cfg.Agent); err != nil {
		return err
	}

	return validatePublishConfig(&cfg.Publish)
}

func validateRepositoryConfig(cfg *RepositoryConfig) error {
	if err := ValidateBranchName(cfg.Branch); err != nil {
		return errors.Wrapf(errors.ErrConfigInvalidRepository, "repository.branch: %s", err.Error())
	}
	return nil
}

// validateAgentConfig checks agent-specific configuration values.
func validateAgentConfig(cfg *AgentConfig) error {
	if strings.TrimSpace(cfg.Command) == "" {
		return errors.Wrap(errors.ErrConfigInvalidAgent, "agent.command must not be empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return errors.Wrap(errors.ErrConfigInvalidAgent, "agent.model must not be empty")
	}
	if strings.TrimSpace(cfg.Provider) == "" {
		return errors.Wrap(errors.ErrConfigInvalidAgent, "agent.provider must not be empty")
	}
	if cfg.Timeout < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidAgent,
			"agent.timeout cannot be negative, got %s", cfg.Timeout)
	}
	return nil
}

func validatePublishConfig(cfg *PublishConfig) error {
	switch cfg.SecretScan {
	case constants.SecretScanWarn, constants.SecretScanBlock, constants.SecretScanOff:
		return nil
	default:
		return errors.Wrapf(errors.ErrConfigInvalidPublish,
			"publish.secret_scan must be one of warn, block, off, got %q", cfg.SecretScan)
	}
}

// ValidateBranchName applies the subset of git's ref-format rules that can be
// checked without running git.
func ValidateBranchName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("branch name must not be empty")
	case strings.HasPrefix(name, "-"):
		return fmt.Errorf("branch name %q must not start with '-'", name)
	case strings.HasPrefix(name, "/"), strings.HasSuffix(name, "/"):
		return fmt.Errorf("branch name %q must not start or end with '/'", name)
	case strings.HasSuffix(name, ".lock"), strings.HasSuffix(name, "."):
		return fmt.Errorf("branch name %q has an invalid suffix", name)
	case strings.Contains(name, ".."), strings.Contains(name, "@{"), strings.Contains(name, "//"):
		return fmt.Errorf("branch name %q contains an invalid sequence", name)
	case strings.ContainsAny(name, " ~^:?*[\\\t\n"):
		return fmt.Errorf("branch name %q contains an invalid character", name)
	}
	return nil
}
