package cli

import (
	"github.com/spf13/cobra"
)

// ShadowOptions holds flags for the shadow command
type ShadowOptions struct {
	State            string
	Trigger          string
	FailOnDivergence bool
}

// NewShadowCommand creates the shadow command
func NewShadowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShadowOptions{}

	cmd := &cobra.Command{
		Use:   "shadow <entity-type> <current> <target>",
		Short: "Compare what a trigger would do under two versions",
		Long: `Predict the effect of firing a trigger in a given state under the current
and the target definition without changing anything, and report whether
the outcomes diverge.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShadow(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.State, "state", "", "current state of the instance")
	cmd.Flags().StringVar(&opts.Trigger, "trigger", "", "trigger to fire")
	cmd.Flags().BoolVar(&opts.FailOnDivergence, "fail-on-divergence", false, "exit 1 when the outcomes diverge")
	_ = cmd.MarkFlagRequired("state")
	_ = cmd.MarkFlagRequired("trigger")

	return cmd
}

func runShadow(rootOpts *RootOptions, opts *ShadowOptions, args []string, cmd *cobra.Command) error {
	entityType := args[0]
	current, err := parseVersion("current", args[1])
	if err != nil {
		return err
	}
	target, err := parseVersion("target", args[2])
	if err != nil {
		return err
	}

	env, err := newEnvironment(rootOpts, cmd)
	if err != nil {
		return err
	}

	result, err := env.checker.EvaluateShadow(cmd.Context(), entityType, current, target, opts.State, opts.Trigger)
	if err != nil {
		return WrapExitError(ExitCommandError, "shadow evaluation failed", err)
	}

	diverged := opts.FailOnDivergence && result.Diverges
	if err := env.out.Result(newShadowView(result), result.Success && !diverged); err != nil {
		return err
	}

	if !result.Success {
		return WrapExitError(ExitFailure, "shadow evaluation could not run", result.Err)
	}
	if diverged {
		return NewExitError(ExitFailure, result.Reason)
	}
	return nil
}
