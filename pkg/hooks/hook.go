package hooks

import (
	"context"
)

// Phase names a hook extension point
type Phase string

const (
	PhaseBefore   Phase = "before"
	PhaseAfter    Phase = "after"
	PhaseRollback Phase = "rollback"
)

// Hook is a priority-ordered extension point around migration execution.
// Lower priorities run first in the before and after phases and last during
// rollback.
type Hook interface {
	Name() string
	Priority() int

	// Before gates the migration: returning false or an error vetoes it
	Before(ctx context.Context, mc *MigrationContext) (bool, error)

	// After runs once the migration is committed; failures are logged only
	After(ctx context.Context, mc *MigrationContext) error

	// Rollback undoes the hook's effects after a veto or fault
	Rollback(ctx context.Context, mc *MigrationContext) error
}

// BaseHook provides common functionality and no-op phases for hooks
type BaseHook struct {
	HookName     string
	HookPriority int
}

func (h *BaseHook) Name() string  { return h.HookName }
func (h *BaseHook) Priority() int { return h.HookPriority }

func (h *BaseHook) Before(ctx context.Context, mc *MigrationContext) (bool, error) {
	return true, nil
}

func (h *BaseHook) After(ctx context.Context, mc *MigrationContext) error {
	return nil
}

func (h *BaseHook) Rollback(ctx context.Context, mc *MigrationContext) error {
	return nil
}

// HookFailure records a failed after or rollback hook
type HookFailure struct {
	Hook  string
	Phase Phase
	Err   error
}
