package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <entity-type> <from> <to>",
		Short: "Check compatibility between two versions of a definition",
		Long: `Run every compatibility rule against two registered versions and report
the compatibility level, breaking changes, warnings and, when a migration
is required, the optimal migration path.

Exits 1 when the versions are incompatible or the check could not run.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, args []string, cmd *cobra.Command) error {
	entityType := args[0]
	from, err := parseVersion("source", args[1])
	if err != nil {
		return err
	}
	to, err := parseVersion("target", args[2])
	if err != nil {
		return err
	}

	env, err := newEnvironment(opts, cmd)
	if err != nil {
		return err
	}

	result, err := env.checker.CheckCompatibility(cmd.Context(), entityType, from, to)
	if err != nil {
		return WrapExitError(ExitCommandError, "compatibility check failed", err)
	}

	if err := env.out.Result(newCheckView(result), result.Success && result.IsCompatible); err != nil {
		return err
	}
	env.writeMetrics(cmd.ErrOrStderr())

	if !result.Success {
		return WrapExitError(ExitFailure, "compatibility check could not run", result.Err)
	}
	if !result.IsCompatible {
		return NewExitError(ExitFailure, fmt.Sprintf("%s %s -> %s is incompatible", entityType, from, to))
	}
	return nil
}
