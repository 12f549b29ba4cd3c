package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrz1836/codexbuild/internal/config"
	"github.com/mrz1836/codexbuild/internal/errors"
	"github.com/mrz1836/codexbuild/internal/preflight"
	"github.com/mrz1836/codexbuild/internal/tui"
)

// AddDoctorCommand adds the doctor command to the root command.
func AddDoctorCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(newDoctorCmd(flags))
}

// newDoctorCmd creates the doctor command.
func newDoctorCmd(flags *GlobalFlags) *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the build host can run codexbuild",
		Long: `Doctor verifies that git and the agent binary are on PATH in supported
versions and that the credentials file, when configured, is readable.
Nothing is modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlag("agent.command", cmd.Flags().Lookup("agent-command")); err != nil {
				return err
			}
			if err := v.BindPFlag("credentials.file", cmd.Flags().Lookup("credentials-file")); err != nil {
				return err
			}
			return runDoctor(cmd.Context(), cmd.OutOrStdout(), flags, v, nil)
		},
	}

	cmd.Flags().String("agent-command", "", "agent executable to look for (default codex)")
	cmd.Flags().String("credentials-file", "", "credentials file to check")

	return cmd
}

// runDoctor runs the preflight checks for the loaded configuration. A nil
// executor uses the real PATH.
func runDoctor(ctx context.Context, w io.Writer, flags *GlobalFlags, v *viper.Viper, executor preflight.CommandExecutor) error {
	logger := GetLogger()
	ctx = logger.WithContext(ctx)

	cfg, err := config.Load(ctx, v, flags.ConfigFile)
	if err != nil {
		return err
	}

	report, err := preflight.NewChecker(executor, preflight.ForConfig(cfg)...).Run(ctx)
	if err != nil {
		return err
	}

	out := tui.NewOutput(w, flags.Output)
	if err := out.Preflight(report); err != nil {
		return err
	}
	if err := report.Err(); err != nil {
		return errors.NewExitCodeError(ExitError, err)
	}
	out.Success("build host is ready")
	return nil
}
