package hooks

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/lineage/pkg/async"
	"github.com/platinummonkey/lineage/pkg/observability"
)

// Status is the final outcome of a migration run
type Status string

const (
	// StatusCommitted means the migration was applied
	StatusCommitted Status = "Committed"

	// StatusAborted means a before hook vetoed the migration
	StatusAborted Status = "Aborted"

	// StatusRolledBack means applying the migration failed
	StatusRolledBack Status = "RolledBack"
)

// ExecutionState is a step of the migration state machine
type ExecutionState string

const (
	StateRequested            ExecutionState = "Requested"
	StateBeforeHooksRunning   ExecutionState = "BeforeHooksRunning"
	StateAborted              ExecutionState = "Aborted"
	StateApplying             ExecutionState = "Applying"
	StateAfterHooksRunning    ExecutionState = "AfterHooksRunning"
	StateCommitted            ExecutionState = "Committed"
	StateFailed               ExecutionState = "Failed"
	StateRollbackHooksRunning ExecutionState = "RollbackHooksRunning"
	StateRolledBack           ExecutionState = "RolledBack"
)

// ApplyFunc commits the migration of one instance, for example by switching
// the definition version the hosting runtime uses for it
type ApplyFunc func(ctx context.Context, mc *MigrationContext) error

// MigrationResult reports a migration run
type MigrationResult struct {
	MigrationID      string
	Status           Status
	Success          bool
	Reason           string
	Err              error
	VetoedBy         string
	AfterFailures    []HookFailure
	RollbackFailures []HookFailure
	Transitions      []ExecutionState
	Duration         time.Duration
}

func (r *MigrationResult) enter(state ExecutionState) {
	r.Transitions = append(r.Transitions, state)
}

// RunnerOptions configures a Runner
type RunnerOptions struct {
	Logger  *logrus.Logger
	Metrics *observability.Metrics
}

// Runner orchestrates before hooks, the apply step, and after or rollback
// hooks
type Runner struct {
	pipeline *Pipeline
	logger   *logrus.Logger
	metrics  *observability.Metrics
}

// NewRunner creates a runner over a pipeline
func NewRunner(pipeline *Pipeline, opts RunnerOptions) *Runner {
	if pipeline == nil {
		pipeline = NewPipeline(PipelineOptions{Logger: opts.Logger, Metrics: opts.Metrics})
	}
	return &Runner{
		pipeline: pipeline,
		logger:   observability.OrDefault(opts.Logger),
		metrics:  opts.Metrics,
	}
}

// Pipeline returns the runner's hook pipeline
func (r *Runner) Pipeline() *Pipeline {
	return r.pipeline
}

// RunMigration executes a migration transactionally: a veto, apply error or
// apply panic runs the rollback hooks and reports failure. After-hook
// failures are reported but never undo a committed migration. Runs of the
// same context are serialized.
func (r *Runner) RunMigration(ctx context.Context, mc *MigrationContext, apply ApplyFunc) *MigrationResult {
	mc.runMu.Lock()
	defer mc.runMu.Unlock()

	start := time.Now()
	mc.StartedAt = start
	mc.VetoedBy = ""
	mc.FailureReason = ""

	ctx, span := observability.StartSpan(ctx, "hooks.RunMigration",
		attribute.String("migration_id", mc.MigrationID),
		attribute.String("entity_type", mc.EntityType),
		attribute.String("from", mc.From.String()),
		attribute.String("to", mc.To.String()),
	)

	log := r.logger.WithFields(logrus.Fields{
		"migration_id": mc.MigrationID,
		"entity_type":  mc.EntityType,
		"entity_id":    mc.EntityID,
		"from":         mc.From.String(),
		"to":           mc.To.String(),
	})
	ctx = observability.WithLogger(ctx, log)

	result := &MigrationResult{MigrationID: mc.MigrationID}
	result.enter(StateRequested)

	result.enter(StateBeforeHooksRunning)
	before := r.pipeline.ExecuteBeforeMigrationHooks(ctx, mc)

	if !before.Proceed {
		result.enter(StateAborted)
		result.Status = StatusAborted
		result.VetoedBy = before.VetoedBy
		result.Reason = before.Reason
		result.Err = before.Err

		mc.VetoedBy = before.VetoedBy
		mc.FailureReason = before.Reason
		r.rollback(ctx, mc, result)
	} else {
		result.enter(StateApplying)
		err := async.Recover("apply migration "+mc.MigrationID, func() error {
			if apply == nil {
				return nil
			}
			return apply(ctx, mc)
		})

		if err != nil {
			result.enter(StateFailed)
			result.Status = StatusRolledBack
			result.Reason = fmt.Sprintf("applying migration failed: %v", err)
			result.Err = fmt.Errorf("%w: %w", ErrMigrationFault, err)

			mc.FailureReason = result.Reason
			r.rollback(ctx, mc, result)
		} else {
			result.enter(StateAfterHooksRunning)
			result.AfterFailures = r.pipeline.ExecuteAfterMigrationHooks(ctx, mc)
			result.enter(StateCommitted)
			result.Status = StatusCommitted
			result.Success = true
		}
	}

	result.Duration = time.Since(start)
	r.metrics.RecordMigration(mc.EntityType, string(result.Status), result.Duration)
	observability.EndSpan(span, result.Err)

	entry := observability.WithTraceContext(ctx, log).WithFields(logrus.Fields{
		"status":   string(result.Status),
		"duration": result.Duration,
	})
	if result.Success {
		entry.Info("migration committed")
	} else {
		entry.WithError(result.Err).Warn("migration failed")
	}

	return result
}

func (r *Runner) rollback(ctx context.Context, mc *MigrationContext, result *MigrationResult) {
	result.enter(StateRollbackHooksRunning)
	// Rollback is cleanup and runs even when the caller's context is done
	result.RollbackFailures = r.pipeline.ExecuteRollbackHooks(context.WithoutCancel(ctx), mc)
	result.enter(StateRolledBack)
}
