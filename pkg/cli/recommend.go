package cli

import (
	"github.com/spf13/cobra"
)

// NewRecommendCommand creates the recommend command
func NewRecommendCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <entity-type> <current>",
		Short: "Grade every newer version as an upgrade target",
		Long: `Check every registered version above the current one and grade it as an
upgrade target by compatibility, risk and effort. Verbose output includes
up to three alternative migration paths per target.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runRecommend(opts *RootOptions, args []string, cmd *cobra.Command) error {
	entityType := args[0]
	current, err := parseVersion("current", args[1])
	if err != nil {
		return err
	}

	env, err := newEnvironment(opts, cmd)
	if err != nil {
		return err
	}

	recs, err := env.checker.GetUpgradeRecommendations(cmd.Context(), entityType, current)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compute recommendations", err)
	}

	if err := env.out.Result(newRecommendationsView(entityType, current, recs), true); err != nil {
		return err
	}
	env.writeMetrics(cmd.ErrOrStderr())
	return nil
}
