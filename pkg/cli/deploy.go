package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/lineage/pkg/version"
)

// DeployCheckOptions holds flags for the deploy-check command
type DeployCheckOptions struct {
	Existing []string
}

// NewDeployCheckCommand creates the deploy-check command
func NewDeployCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeployCheckOptions{}

	cmd := &cobra.Command{
		Use:   "deploy-check <entity-type> <new-version>",
		Short: "Validate that a new version can be deployed next to running versions",
		Long: `Check a new version against the versions instances are currently running
and pick a rollout strategy: DirectUpgrade, RollingUpgrade,
RequiresMigration or Blocked.

Without --existing every other registered version is treated as running.
Exits 1 when the deployment is blocked.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeployCheck(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Existing, "existing", nil, "versions currently running (repeatable or comma separated)")

	return cmd
}

func runDeployCheck(rootOpts *RootOptions, opts *DeployCheckOptions, args []string, cmd *cobra.Command) error {
	entityType := args[0]
	newVersion, err := parseVersion("new", args[1])
	if err != nil {
		return err
	}
	existing, err := version.ParseAll(opts.Existing)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --existing version", err)
	}

	env, err := newEnvironment(rootOpts, cmd)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		for _, v := range env.registry.Versions(entityType) {
			if !v.Equal(newVersion) {
				existing = append(existing, v)
			}
		}
	}

	result, err := env.checker.ValidateDeploymentCompatibility(cmd.Context(), entityType, newVersion, existing)
	if err != nil {
		return WrapExitError(ExitCommandError, "deployment validation failed", err)
	}

	if err := env.out.Result(newDeployView(result), result.CanDeploy); err != nil {
		return err
	}
	env.writeMetrics(cmd.ErrOrStderr())

	if !result.CanDeploy {
		return NewExitError(ExitFailure, fmt.Sprintf("deployment of %s %s is blocked", entityType, newVersion))
	}
	return nil
}
