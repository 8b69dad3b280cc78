package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/lineage/pkg/audit"
	"github.com/platinummonkey/lineage/pkg/checker"
	"github.com/platinummonkey/lineage/pkg/compatibility"
	"github.com/platinummonkey/lineage/pkg/compatibility/rules"
	"github.com/platinummonkey/lineage/pkg/config"
	"github.com/platinummonkey/lineage/pkg/definition"
	"github.com/platinummonkey/lineage/pkg/migration"
	"github.com/platinummonkey/lineage/pkg/observability"
	"github.com/platinummonkey/lineage/pkg/version"
)

// environment is what every command works against: configuration, a
// registry populated from definition files and a checker over it
type environment struct {
	opts     *RootOptions
	loader   *config.Loader
	config   *config.Config
	logger   *logrus.Logger
	metrics  *observability.Metrics
	gatherer prometheus.Gatherer
	registry *definition.MemoryRegistry
	checker  *checker.Checker
	out      *OutputFormatter
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func newEnvironment(opts *RootOptions, cmd *cobra.Command) (*environment, error) {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())

	loader := config.NewLoader(opts.ConfigFile, logger)
	cfg, err := loader.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	if err := observability.Configure(logger, cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid log configuration", err)
	}
	if opts.Verbose && logger.GetLevel() < logrus.DebugLevel {
		logger.SetLevel(logrus.DebugLevel)
	}

	env := &environment{
		opts:     opts,
		loader:   loader,
		config:   cfg,
		logger:   logger,
		registry: definition.NewMemoryRegistry(),
		out:      newFormatter(opts, cmd),
	}

	if cfg.Engine.MetricsEnabled {
		reg := prometheus.NewRegistry()
		env.metrics = observability.NewMetrics(reg)
		env.gatherer = reg
	}

	path := opts.Definitions
	if path == "" {
		path = cfg.Definitions
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no definitions given: use --definitions or set definitions in the config file")
	}
	n, err := definition.LoadInto(env.registry, path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load definitions", err)
	}
	env.out.VerboseLog("Loaded %d definition(s) from %s", n, path)
	if file := loader.ConfigFile(); file != "" {
		env.out.VerboseLog("Using config file %s", file)
	}

	calc := migration.NewCalculator(env.registry,
		migration.WithLogger(logger),
		migration.WithMetrics(env.metrics),
		migration.WithMaxCandidatePaths(cfg.Migration.MaxCandidatePaths),
	)
	if err := cfg.ApplyMatrix(calc, nil); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid compatibility matrix", err)
	}

	ruleRegistry := compatibility.NewRegistry()
	if err := rules.RegisterDefaultRules(ruleRegistry); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to register rules", err)
	}
	engine := compatibility.NewEngine(ruleRegistry, compatibility.EngineOptions{
		Logger:         logger,
		Metrics:        env.metrics,
		MaxConcurrency: cfg.Engine.MaxConcurrency,
	})

	chk, err := checker.New(env.registry, checker.Options{
		Logger:        logger,
		Metrics:       env.metrics,
		Engine:        engine,
		Calculator:    calc,
		Timeout:       cfg.Checker.Timeout,
		CacheSize:     cfg.Checker.CacheSize,
		CacheTTL:      cfg.Checker.CacheTTL,
		MatrixWorkers: cfg.Checker.MatrixWorkers,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create checker", err)
	}
	env.checker = chk

	return env, nil
}

// auditSink returns the audit logger for migrations: the in-memory log that
// feeds command output, plus the file log when an audit directory is set
func (e *environment) auditSink() (*audit.MemoryLogger, audit.Logger, error) {
	memory := audit.NewMemoryLogger()
	if e.config.Audit.Dir == "" {
		return memory, memory, nil
	}

	file, err := audit.NewFileLogger(audit.FileLoggerConfig{
		BasePath: e.config.Audit.Dir,
		Rotate:   e.config.Audit.MaxSizeMB > 0,
		MaxSize:  e.config.Audit.MaxSizeMB * 1024 * 1024,
		MaxFiles: e.config.Audit.MaxFiles,
		Logger:   e.logger,
	})
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open audit log", err)
	}
	return memory, audit.NewMultiLogger(memory, file), nil
}

// writeMetrics dumps collected metrics in verbose mode
func (e *environment) writeMetrics(w io.Writer) {
	if !e.opts.Verbose || e.gatherer == nil {
		return
	}
	families, err := e.gatherer.Gather()
	if err != nil {
		e.logger.WithError(err).Warn("failed to gather metrics")
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				value = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+strconv.Quote(l.GetValue()))
			}
			fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
}

// parseVersion parses a positional version argument
func parseVersion(name, s string) (version.Version, error) {
	v, err := version.Parse(s)
	if err != nil {
		return version.Version{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid %s version", name), err)
	}
	return v, nil
}
