package cli

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/lineage/pkg/config"
	"github.com/platinummonkey/lineage/pkg/observability"
)

// NewWatchCommand creates the watch command
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <entity-type>",
		Short: "Re-analyze the compatibility matrix whenever the config file changes",
		Long: `Print the compatibility matrix of an entity type, then watch the config
file. Each valid change re-applies the log settings and the compatibility
matrix, drops cached results and prints the matrix again. Invalid changes
are logged and ignored. Runs until interrupted.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runWatch(opts *RootOptions, entityType string, cmd *cobra.Command) error {
	env, err := newEnvironment(opts, cmd)
	if err != nil {
		return err
	}
	if env.loader.ConfigFile() == "" {
		return NewExitError(ExitCommandError, "watch needs a config file: use --config or create .lineage.yaml")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	analyze := func() {
		mu.Lock()
		defer mu.Unlock()

		matrix, err := env.checker.AnalyzeCompatibilityMatrix(ctx, entityType)
		if err != nil {
			env.logger.WithError(err).WithField("entity_type", entityType).Error("matrix analysis failed")
			return
		}
		if err := env.out.Result(newMatrixView(matrix), true); err != nil {
			env.logger.WithError(err).Error("failed to write matrix")
		}
	}

	env.loader.Watch(func(previous, current *config.Config) {
		if err := observability.Configure(env.logger, current.Log.Level, current.Log.Format); err != nil {
			env.logger.WithError(err).Warn("keeping previous log settings")
		}
		if err := current.ApplyMatrix(env.checker.Calculator(), previous); err != nil {
			env.logger.WithError(err).Error("failed to apply compatibility matrix")
			return
		}
		env.checker.ClearCache()
		env.logger.WithFields(logrus.Fields{
			"entity_type": entityType,
			"file":        env.loader.ConfigFile(),
		}).Info("compatibility matrix re-applied")
		analyze()
	})

	analyze()
	env.out.VerboseLog("Watching %s", env.loader.ConfigFile())

	<-ctx.Done()
	return nil
}
