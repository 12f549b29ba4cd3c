package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrz1836/codexbuild/internal/constants"
	"github.com/mrz1836/codexbuild/internal/errors"
)

// EnvPrefix is the prefix for environment variable overrides
// (e.g. CODEXBUILD_REPOSITORY_URL for repository.url).
const EnvPrefix = "CODEXBUILD"

// NewViper creates a Viper instance with codexbuild defaults and environment
// binding. Callers may bind CLI flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr) || os.IsNotExist(err)
}

// Load reads configuration into v and decodes it.
//
// Precedence (highest first): flags bound to v, CODEXBUILD_* environment
// variables, configFile (or ./.codexbuild/config.yaml when configFile is
// empty), the global ~/.codexbuild/config.yaml, built-in defaults.
//
// Load does not validate. Validation is the first stage of a run so that a
// missing parameter is reported through the same diagnostic path as every
// other stage failure.
func Load(ctx context.Context, v *viper.Viper, configFile string) (*Config, error) {
	if globalPath, ok := globalConfigPathIfExists(); ok {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrap(err, "failed to read global config file")
		}
	}

	if configFile == "" && fileExists(ProjectConfigPath()) {
		configFile = ProjectConfigPath()
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Str("repository.branch", cfg.Repository.Branch).
		Str("agent.model", cfg.Agent.Model).
		Str("agent.provider", cfg.Agent.Provider).
		Dur("agent.timeout", cfg.Agent.Timeout).
		Bool("git.push", cfg.Git.Push).
		Msg("configuration loaded")

	return cfg, nil
}

// LoadFromPaths loads configuration from specific file paths for testing.
// Either path can be empty to skip that level.
func LoadFromPaths(_ context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := NewViper()

	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}

// setDefaults configures all default values on the Viper instance.
// Keys must match the mapstructure tag names exactly. Required keys are
// registered with empty defaults so AutomaticEnv can see them on Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("prompt", "")

	v.SetDefault("repository.url", "")
	v.SetDefault("repository.branch", d.Repository.Branch)

	v.SetDefault("credentials.api_key_ref", "")
	v.SetDefault("credentials.git_ref", "")
	v.SetDefault("credentials.file", "")

	v.SetDefault("agent.command", d.Agent.Command)
	v.SetDefault("agent.model", d.Agent.Model)
	v.SetDefault("agent.provider", d.Agent.Provider)
	v.SetDefault("agent.base_url", d.Agent.BaseURL)
	v.SetDefault("agent.approval_mode", d.Agent.ApprovalMode)
	v.SetDefault("agent.api_key_env", d.Agent.APIKeyEnv)
	v.SetDefault("agent.base_url_env", d.Agent.BaseURLEnv)
	v.SetDefault("agent.timeout", d.Agent.Timeout.String())

	v.SetDefault("git.author_name", d.Git.AuthorName)
	v.SetDefault("git.author_email", d.Git.AuthorEmail)
	v.SetDefault("git.push", d.Git.Push)

	v.SetDefault("publish.secret_scan", d.Publish.SecretScan)

	v.SetDefault("report.path", "")
	v.SetDefault("report.metrics_file", "")
}

// viperDecoderOption returns the decode hooks used when unmarshaling,
// so "30m" style strings decode into time.Duration fields.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}

// globalConfigPathIfExists returns the global config path if it exists.
func globalConfigPathIfExists() (string, bool) {
	path, err := GlobalConfigPath()
	if err != nil {
		return "", false
	}
	if !fileExists(path) {
		return "", false
	}
	return path, true
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// GlobalConfigPath returns the path of the user-wide config file,
// honoring CODEXBUILD_HOME.
func GlobalConfigPath() (string, error) {
	if home := os.Getenv(constants.EnvHome); home != "" {
		return filepath.Join(home, constants.ConfigFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.AppHome, constants.ConfigFileName), nil
}

// ProjectConfigPath returns the relative path to the project configuration file.
func ProjectConfigPath() string {
	return filepath.Join(constants.ProjectConfigDir, constants.ConfigFileName)
}
