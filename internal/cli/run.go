package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mrz1836/codexbuild/internal/config"
	"github.com/mrz1836/codexbuild/internal/constants"
	"github.com/mrz1836/codexbuild/internal/credentials"
	"github.com/mrz1836/codexbuild/internal/errors"
	"github.com/mrz1836/codexbuild/internal/pipeline"
	"github.com/mrz1836/codexbuild/internal/signal"
	"github.com/mrz1836/codexbuild/internal/tui"
)

// AddRunCommand adds the run command to the root command.
func AddRunCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(newRunCmd(flags))
}

// runOptions holds the per-run values that are not part of the configuration.
type runOptions struct {
	buildID   string
	workspace string
}

// configFlag maps a run flag onto its configuration key.
type configFlag struct {
	name  string
	key   string
	usage string
}

// runConfigFlags lists the string flags bound to configuration keys.
//
//nolint:gochecknoglobals // Static flag table
var runConfigFlags = []configFlag{
	{"prompt", "prompt", "instruction handed to the coding agent (required)"},
	{"api-key-ref", "credentials.api_key_ref", "credential reference of the provider API key (required)"},
	{"repo", "repository.url", "remote repository URL (required)"},
	{"branch", "repository.branch", "branch to mirror into the workspace"},
	{"base-url", "agent.base_url", "provider API base URL"},
	{"model", "agent.model", "model passed to the agent"},
	{"provider", "agent.provider", "provider passed to the agent"},
	{"git-credential-ref", "credentials.git_ref", "credential reference used for fetch and push"},
	{"credentials-file", "credentials.file", "YAML credential store consulted after CODEXBUILD_CRED_* variables"},
	{"author-name", "git.author_name", "commit author name"},
	{"author-email", "git.author_email", "commit author email"},
	{"secret-scan", "publish.secret_scan", "secret scan of staged changes (warn|block|off)"},
	{"report", "report.path", "write a JSON run report to this path"},
	{"metrics-file", "report.metrics_file", "write Prometheus text metrics to this path"},
}

// newRunCmd creates the run command.
func newRunCmd(flags *GlobalFlags) *cobra.Command {
	v := config.NewViper()
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent against the workspace and publish its changes",
		Long: `Run mirrors the configured branch into the workspace, invokes the codex
agent with the prompt and, if the working tree changed, commits everything to
codex-build-<build id>. With --push the branch is pushed to origin.

Every option can also come from the config file or a CODEXBUILD_* variable
(for example CODEXBUILD_REPOSITORY_URL). Secrets are never passed directly:
--api-key-ref and --git-credential-ref name entries that are resolved from
CODEXBUILD_CRED_<REF>_* variables or the --credentials-file store.

Exit codes: 0 success, 1 run failure, 2 missing parameters.

Examples:
  codexbuild run --prompt "fix the failing tests" --api-key-ref openai \
    --repo https://github.com/acme/app.git --build-id 42 --workspace /tmp/ws
  codexbuild run --config build.yaml --push --git-credential-ref deploy-key`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindRunFlags(v, cmd.Flags()); err != nil {
				return err
			}
			return runBuild(cmd.Context(), cmd, flags, v, opts)
		},
	}

	for _, f := range runConfigFlags {
		cmd.Flags().String(f.name, "", f.usage)
	}
	cmd.Flags().Bool("push", false, "push the build branch to origin")
	cmd.Flags().Duration("agent-timeout", 0, "upper bound for one agent invocation (default 30m)")
	cmd.Flags().StringVar(&opts.buildID, "build-id", "", "build id (default $"+constants.EnvHostBuildNumber+")")
	cmd.Flags().StringVar(&opts.workspace, "workspace", "", "workspace directory (default $"+constants.EnvHostWorkspace+")")

	return cmd
}

// bindRunFlags binds run flags to their configuration keys. Flags the user
// did not set fall back to env, config file and defaults.
func bindRunFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	bindings := map[string]string{
		"push":          "git.push",
		"agent-timeout": "agent.timeout",
	}
	for _, f := range runConfigFlags {
		bindings[f.name] = f.key
	}
	for name, key := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return errors.Wrapf(err, "bind --%s", name)
		}
	}
	return nil
}

// runBuild loads the configuration, runs the pipeline under signal handling
// and renders the result. Failures are returned as ExitCodeError since the
// summary already reported them.
func runBuild(ctx context.Context, cmd *cobra.Command, flags *GlobalFlags, v *viper.Viper, opts runOptions, extra ...pipeline.Option) error {
	logger := GetLogger()
	ctx = logger.WithContext(ctx)

	cfg, err := config.Load(ctx, v, flags.ConfigFile)
	if err != nil {
		return err
	}

	buildID := firstNonEmpty(opts.buildID, os.Getenv(constants.EnvHostBuildNumber))
	workDir := firstNonEmpty(opts.workspace, os.Getenv(constants.EnvHostWorkspace))
	if workDir != "" {
		if abs, absErr := filepath.Abs(workDir); absErr == nil {
			workDir = abs
		}
	}

	handler := signal.NewHandler(ctx)
	defer handler.Stop()

	pipelineOpts := append([]pipeline.Option{
		pipeline.WithStore(credentialStore(cfg)),
		pipeline.WithLogger(logger),
	}, extra...)
	result, runErr := pipeline.New(cfg, buildID, workDir, pipelineOpts...).Run(handler.Context())

	out := tui.NewOutput(cmd.OutOrStdout(), flags.Output)
	if err := out.RunSummary(result); err != nil {
		logger.Warn().Err(err).Msg("failed to render run summary")
	}

	if code, interrupted := handler.ExitCode(); interrupted {
		return errors.NewExitCodeError(code, errors.Wrap(errors.ErrInterrupted, handler.Received().String()))
	}
	if runErr != nil {
		return errors.NewExitCodeError(result.ExitCode(), runErr)
	}
	return nil
}

// credentialStore consults host-injected variables first, then the
// credentials file when one is configured.
func credentialStore(cfg *config.Config) credentials.Store {
	if cfg.Credentials.File == "" {
		return credentials.EnvStore{}
	}
	return credentials.ChainStore{
		credentials.EnvStore{},
		credentials.NewFileStore(cfg.Credentials.File),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
