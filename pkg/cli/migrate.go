package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/lineage/pkg/definition"
	"github.com/platinummonkey/lineage/pkg/hooks"
)

// MigrateOptions holds flags for the migrate command
type MigrateOptions struct {
	StateFile string
	EntityID  string
	Output    string
	Renames   []string
	Drops     []string
	MapStates []string
	Force     bool
}

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate <entity-type> <from> <to>",
		Short: "Migrate the state of one instance between versions",
		Long: `Run one instance's state bag through the migration hook pipeline: audit,
backup, state transformation and validation, then apply. A failed
transformation or apply step restores the original state.

The state file is JSON or YAML. The "state" key holds the instance's
current state name. The transformation renames and drops fields, maps
state names and fills defaults declared by the target definition.

Exits 1 when the versions are incompatible (unless --force) or the
migration does not commit.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.StateFile, "state-file", "f", "", "instance state file (JSON or YAML)")
	cmd.Flags().StringVar(&opts.EntityID, "entity-id", "", "instance identifier for the audit log")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the migrated state to this file")
	cmd.Flags().StringArrayVar(&opts.Renames, "rename", nil, "rename a field, old=new (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Drops, "drop", nil, "drop a field (repeatable)")
	cmd.Flags().StringArrayVar(&opts.MapStates, "map-state", nil, "map a state name, old=new (repeatable)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "migrate even when the versions are incompatible")
	_ = cmd.MarkFlagRequired("state-file")

	return cmd
}

func runMigrate(rootOpts *RootOptions, opts *MigrateOptions, args []string, cmd *cobra.Command) error {
	entityType := args[0]
	from, err := parseVersion("source", args[1])
	if err != nil {
		return err
	}
	to, err := parseVersion("target", args[2])
	if err != nil {
		return err
	}

	state, err := readState(opts.StateFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read state file", err)
	}

	env, err := newEnvironment(rootOpts, cmd)
	if err != nil {
		return err
	}

	check, err := env.checker.CheckCompatibility(cmd.Context(), entityType, from, to)
	if err != nil {
		return WrapExitError(ExitCommandError, "compatibility check failed", err)
	}
	if !check.Success {
		return WrapExitError(ExitFailure, "compatibility check could not run", check.Err)
	}
	if !check.IsCompatible && !opts.Force {
		return NewExitError(ExitFailure, fmt.Sprintf("%s %s -> %s is incompatible; use --force to migrate anyway", entityType, from, to))
	}
	env.out.VerboseLog("Compatibility: %s", check.Level)

	target, _ := env.registry.Lookup(entityType, to)
	fn, err := newStateTransform(opts, target)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid transformation", err)
	}

	memory, sink, err := env.auditSink()
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			env.logger.WithError(err).Warn("failed to close audit log")
		}
	}()

	pipeline := hooks.NewPipeline(hooks.PipelineOptions{Logger: env.logger, Metrics: env.metrics})
	transform, err := hooks.RegisterDefaultHooks(pipeline, sink, env.registry)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register hooks", err)
	}
	transform.Register(from, to, fn)

	runner := hooks.NewRunner(pipeline, hooks.RunnerOptions{Logger: env.logger, Metrics: env.metrics})
	mc := hooks.NewMigrationContext(entityType, opts.EntityID, from, to, state)

	result := runner.RunMigration(cmd.Context(), mc, func(ctx context.Context, mc *hooks.MigrationContext) error {
		if opts.Output == "" {
			return nil
		}
		return writeState(opts.Output, mc.State)
	})

	if err := env.out.Result(newMigrationView(mc, result, memory.Events()), result.Success); err != nil {
		return err
	}
	env.writeMetrics(cmd.ErrOrStderr())

	if !result.Success {
		return WrapExitError(ExitFailure, fmt.Sprintf("migration %s", strings.ToLower(string(result.Status))), result.Err)
	}
	return nil
}

func readState(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	state := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return state, nil
}

func writeState(path string, state map[string]interface{}) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// parsePairs parses old=new arguments
func parsePairs(flag string, values []string) ([][2]string, error) {
	pairs := make([][2]string, 0, len(values))
	for _, value := range values {
		oldName, newName, ok := strings.Cut(value, "=")
		if !ok || oldName == "" || newName == "" {
			return nil, fmt.Errorf("--%s %q: expected old=new", flag, value)
		}
		pairs = append(pairs, [2]string{oldName, newName})
	}
	return pairs, nil
}

// newStateTransform builds the transformation for one migration. Defaults
// come from the target definition's data fields.
func newStateTransform(opts *MigrateOptions, target *definition.Definition) (hooks.TransformFunc, error) {
	renames, err := parsePairs("rename", opts.Renames)
	if err != nil {
		return nil, err
	}
	stateMap, err := parsePairs("map-state", opts.MapStates)
	if err != nil {
		return nil, err
	}
	drops := append([]string(nil), opts.Drops...)

	var defaults []definition.DataField
	if target != nil {
		for _, f := range target.DataFields {
			if f.Default != "" {
				defaults = append(defaults, f)
			}
		}
	}

	return func(ctx context.Context, state map[string]interface{}) error {
		for _, r := range renames {
			value, ok := state[r[0]]
			if !ok {
				continue
			}
			if _, exists := state[r[1]]; exists {
				return fmt.Errorf("cannot rename %s to %s: field already exists", r[0], r[1])
			}
			state[r[1]] = value
			delete(state, r[0])
		}

		for _, name := range drops {
			delete(state, name)
		}

		if current, ok := state[hooks.DefaultStateKey].(string); ok {
			for _, m := range stateMap {
				if current == m[0] {
					state[hooks.DefaultStateKey] = m[1]
					break
				}
			}
		}

		for _, f := range defaults {
			if _, ok := state[f.Name]; !ok {
				state[f.Name] = f.Default
			}
		}
		return nil
	}, nil
}
