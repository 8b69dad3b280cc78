package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/lineage/pkg/migration"
)

// PathOptions holds flags for the path command
type PathOptions struct {
	Alternatives int
}

// NewPathCommand creates the path command
func NewPathCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PathOptions{}

	cmd := &cobra.Command{
		Use:   "path <entity-type> <from> <to>",
		Short: "Plan a migration path between two versions",
		Long: `Compute the best migration path between two registered versions, ranked
by risk, then cost, then number of steps. --alternatives lists more
candidate paths in the same order.

Direct hops follow the compatibility matrix from the config file when one
is set for the entity type. Exits 1 when no path exists.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPath(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Alternatives, "alternatives", "n", 1, "number of paths to list")

	return cmd
}

func runPath(rootOpts *RootOptions, opts *PathOptions, args []string, cmd *cobra.Command) error {
	if opts.Alternatives < 1 {
		return NewExitError(ExitCommandError, "--alternatives must be at least 1")
	}

	entityType := args[0]
	from, err := parseVersion("source", args[1])
	if err != nil {
		return err
	}
	to, err := parseVersion("target", args[2])
	if err != nil {
		return err
	}

	env, err := newEnvironment(rootOpts, cmd)
	if err != nil {
		return err
	}

	calc := env.checker.Calculator()
	var paths []*migration.Path
	if opts.Alternatives == 1 {
		var best *migration.Path
		best, err = calc.CalculateOptimalPath(cmd.Context(), entityType, from, to)
		paths = []*migration.Path{best}
	} else {
		paths, err = calc.CalculateAlternativePaths(cmd.Context(), entityType, from, to, opts.Alternatives)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "path calculation failed", err)
	}

	found := len(paths) > 0 && paths[0].Valid
	if err := env.out.Result(newPathsView(entityType, from, to, paths), found); err != nil {
		return err
	}
	env.writeMetrics(cmd.ErrOrStderr())

	if !found {
		var cause error
		if len(paths) > 0 {
			cause = paths[0].Err
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("no migration path from %s to %s", from, to), cause)
	}
	return nil
}
