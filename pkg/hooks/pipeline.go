package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/lineage/pkg/async"
	"github.com/platinummonkey/lineage/pkg/observability"
)

// PipelineOptions configures a Pipeline
type PipelineOptions struct {
	Logger  *logrus.Logger
	Metrics *observability.Metrics
}

// Pipeline holds hooks sorted ascending by priority. Hooks of equal priority
// keep their registration order.
type Pipeline struct {
	mu      sync.RWMutex
	hooks   []Hook
	logger  *logrus.Logger
	metrics *observability.Metrics
}

// NewPipeline creates an empty pipeline
func NewPipeline(opts PipelineOptions) *Pipeline {
	return &Pipeline{
		logger:  observability.OrDefault(opts.Logger),
		metrics: opts.Metrics,
	}
}

// RegisterHook adds a hook, replacing any hook with the same name
func (p *Pipeline) RegisterHook(hook Hook) error {
	if hook == nil || hook.Name() == "" {
		return ErrInvalidHook
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	hooks := make([]Hook, 0, len(p.hooks)+1)
	for _, h := range p.hooks {
		if h.Name() != hook.Name() {
			hooks = append(hooks, h)
		}
	}
	hooks = append(hooks, hook)
	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].Priority() < hooks[j].Priority()
	})
	p.hooks = hooks
	return nil
}

// UnregisterHook removes a hook by name
func (p *Pipeline) UnregisterHook(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, h := range p.hooks {
		if h.Name() == name {
			p.hooks = append(p.hooks[:i:i], p.hooks[i+1:]...)
			return true
		}
	}
	return false
}

// Hooks returns the registered hooks in execution order
func (p *Pipeline) Hooks() []Hook {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Hook(nil), p.hooks...)
}

// BeforeResult is the outcome of the before phase
type BeforeResult struct {
	Proceed  bool
	VetoedBy string
	Reason   string
	Err      error
}

// ExecuteBeforeMigrationHooks runs before hooks in priority order. The first
// hook that returns false, errors or panics stops the phase.
func (p *Pipeline) ExecuteBeforeMigrationHooks(ctx context.Context, mc *MigrationContext) BeforeResult {
	for _, hook := range p.Hooks() {
		if err := ctx.Err(); err != nil {
			return BeforeResult{
				Reason: "migration canceled",
				Err:    fmt.Errorf("%w: %w", ErrMigrationVetoed, err),
			}
		}

		var proceed bool
		err := async.Recover("before hook "+hook.Name(), func() error {
			var err error
			proceed, err = hook.Before(ctx, mc)
			return err
		})
		mc.recordHook(hook.Name(), PhaseBefore)

		if err == nil && proceed {
			continue
		}

		reason := fmt.Sprintf("hook %s rejected the migration", hook.Name())
		if err != nil {
			reason = fmt.Sprintf("hook %s failed: %v", hook.Name(), err)
			p.metrics.RecordHookFailure(hook.Name(), string(PhaseBefore))
		}
		p.log(ctx, mc).WithField("hook", hook.Name()).WithError(err).Warn("migration vetoed")

		vetoErr := fmt.Errorf("%w by %s", ErrMigrationVetoed, hook.Name())
		if err != nil {
			vetoErr = fmt.Errorf("%w by %s: %w", ErrMigrationVetoed, hook.Name(), err)
		}
		return BeforeResult{
			VetoedBy: hook.Name(),
			Reason:   reason,
			Err:      vetoErr,
		}
	}

	return BeforeResult{Proceed: true}
}

// ExecuteAfterMigrationHooks runs every after hook in priority order.
// Failures are logged and collected; they never stop later hooks.
func (p *Pipeline) ExecuteAfterMigrationHooks(ctx context.Context, mc *MigrationContext) []HookFailure {
	var failures []HookFailure
	for _, hook := range p.Hooks() {
		err := async.Recover("after hook "+hook.Name(), func() error {
			return hook.After(ctx, mc)
		})
		mc.recordHook(hook.Name(), PhaseAfter)

		if err != nil {
			failures = append(failures, p.failure(ctx, hook, PhaseAfter, fmt.Errorf("%w: %s: %w", ErrHookFault, hook.Name(), err), mc))
		}
	}
	return failures
}

// ExecuteRollbackHooks runs every rollback hook in reverse priority order.
// Each failure is isolated.
func (p *Pipeline) ExecuteRollbackHooks(ctx context.Context, mc *MigrationContext) []HookFailure {
	hooks := p.Hooks()

	var failures []HookFailure
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		err := async.Recover("rollback hook "+hook.Name(), func() error {
			return hook.Rollback(ctx, mc)
		})
		mc.recordHook(hook.Name(), PhaseRollback)

		if err != nil {
			failures = append(failures, p.failure(ctx, hook, PhaseRollback, fmt.Errorf("%w: %s: %w", ErrRollbackFault, hook.Name(), err), mc))
		}
	}
	return failures
}

func (p *Pipeline) failure(ctx context.Context, hook Hook, phase Phase, err error, mc *MigrationContext) HookFailure {
	p.metrics.RecordHookFailure(hook.Name(), string(phase))
	p.log(ctx, mc).WithFields(logrus.Fields{
		"hook":  hook.Name(),
		"phase": string(phase),
	}).WithError(err).Error("migration hook failed")

	return HookFailure{Hook: hook.Name(), Phase: phase, Err: err}
}

// log prefers the entry the runner put on the context. Pipelines driven
// directly get one built from their own logger.
func (p *Pipeline) log(ctx context.Context, mc *MigrationContext) *logrus.Entry {
	if _, ok := ctx.Value(observability.LoggerKey).(*logrus.Entry); ok {
		return observability.FromContext(ctx, p.logger)
	}
	return observability.FromContext(ctx, p.logger).WithFields(logrus.Fields{
		"migration_id": mc.MigrationID,
		"entity_type":  mc.EntityType,
	})
}
