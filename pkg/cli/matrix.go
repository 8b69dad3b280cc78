package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// MatrixOptions holds flags for the matrix command
type MatrixOptions struct {
	MinCompatible float64
}

// NewMatrixCommand creates the matrix command
func NewMatrixCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MatrixOptions{}

	cmd := &cobra.Command{
		Use:   "matrix <entity-type>",
		Short: "Check every ordered pair of registered versions",
		Long: `Check compatibility for every pair (from, to) with from < to across the
registered versions of an entity type and report the share of compatible
pairs.

With --min-compatible the command exits 1 when the share is lower.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatrix(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.MinCompatible, "min-compatible", 0, "minimum percentage of compatible pairs")

	return cmd
}

func runMatrix(rootOpts *RootOptions, opts *MatrixOptions, entityType string, cmd *cobra.Command) error {
	if opts.MinCompatible < 0 || opts.MinCompatible > 100 {
		return NewExitError(ExitCommandError, "--min-compatible must be between 0 and 100")
	}

	env, err := newEnvironment(rootOpts, cmd)
	if err != nil {
		return err
	}
	if len(env.registry.Versions(entityType)) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no versions of %s are registered", entityType))
	}

	matrix, err := env.checker.AnalyzeCompatibilityMatrix(cmd.Context(), entityType)
	if err != nil {
		return WrapExitError(ExitCommandError, "matrix analysis failed", err)
	}

	pct := matrix.CompatiblePercentage()
	ok := pct >= opts.MinCompatible
	if err := env.out.Result(newMatrixView(matrix), ok); err != nil {
		return err
	}
	env.writeMetrics(cmd.ErrOrStderr())

	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("%.1f%% of pairs are compatible, below the required %.1f%%", pct, opts.MinCompatible))
	}
	return nil
}
