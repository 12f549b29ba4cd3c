package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/codexbuild/internal/errors"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Prompt = "add a README"
	cfg.Credentials.APIKeyRef = "openai-key"
	cfg.Repository.URL = "https://example.com/org/repo.git"
	return cfg
}

func TestValidateRequired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		missing []string
	}{
		{
			name:   "all present",
			mutate: func(*Config) {},
		},
		{
			name:    "missing prompt",
			mutate:  func(c *Config) { c.Prompt = "" },
			missing: []string{KeyPrompt},
		},
		{
			name:    "whitespace prompt counts as missing",
			mutate:  func(c *Config) { c.Prompt = " \n\t" },
			missing: []string{KeyPrompt},
		},
		{
			name:    "missing api key reference",
			mutate:  func(c *Config) { c.Credentials.APIKeyRef = "" },
			missing: []string{KeyAPIKeyRef},
		},
		{
			name:    "missing repository url",
			mutate:  func(c *Config) { c.Repository.URL = "" },
			missing: []string{KeyRepoURL},
		},
		{
			name: "all missing are named together",
			mutate: func(c *Config) {
				c.Prompt = ""
				c.Credentials.APIKeyRef = ""
				c.Repository.URL = ""
			},
			missing: []string{KeyPrompt, KeyAPIKeyRef, KeyRepoURL},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.mutate(cfg)

			err := ValidateRequired(cfg)
			if tc.missing == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, errors.ErrMissingParameter)
			var mpe *MissingParametersError
			require.ErrorAs(t, err, &mpe)
			assert.Equal(t, tc.missing, mpe.Fields)
			for _, field := range tc.missing {
				assert.Contains(t, err.Error(), field)
			}
		})
	}
}

func TestValidateRequired_Nil(t *testing.T) {
	t.Parallel()
	require.ErrorIs(t, ValidateRequired(nil), errors.ErrConfigNil)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "required checked before values",
			mutate:  func(c *Config) { c.Prompt = ""; c.Agent.Model = "" },
			wantErr: errors.ErrMissingParameter,
		},
		{
			name:    "bad branch",
			mutate:  func(c *Config) { c.Repository.Branch = "feature..x" },
			wantErr: errors.ErrConfigInvalidRepository,
		},
		{
			name:    "empty branch",
			mutate:  func(c *Config) { c.Repository.Branch = "" },
			wantErr: errors.ErrConfigInvalidRepository,
		},
		{
			name:    "blank model",
			mutate:  func(c *Config) { c.Agent.Model = "  " },
			wantErr: errors.ErrConfigInvalidAgent,
		},
		{
			name:    "blank provider",
			mutate:  func(c *Config) { c.Agent.Provider = "" },
			wantErr: errors.ErrConfigInvalidAgent,
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Agent.Timeout = -time.Second },
			wantErr: errors.ErrConfigInvalidAgent,
		},
		{
			name:   "zero timeout falls back to default",
			mutate: func(c *Config) { c.Agent.Timeout = 0 },
		},
		{
			name:    "unknown secret scan mode",
			mutate:  func(c *Config) { c.Publish.SecretScan = "loud" },
			wantErr: errors.ErrConfigInvalidPublish,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.mutate(cfg)

			err := Validate(cfg)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestValidateBranchName(t *testing.T) {
	t.Parallel()

	valid := []string{"master", "main", "release/1.2", "codex-build-42", "feat_x"}
	for _, name := range valid {
		assert.NoError(t, ValidateBranchName(name), name)
	}

	invalid := []string{"", "-x", "/x", "x/", "x.lock", "a..b", "a b", "a~1", "a^", "a:b", "a@{1}", "a//b"}
	for _, name := range invalid {
		assert.Error(t, ValidateBranchName(name), name)
	}
}
