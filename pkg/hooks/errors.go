package hooks

import "errors"

var (
	// ErrMigrationVetoed is returned when a before hook rejects a migration
	ErrMigrationVetoed = errors.New("migration vetoed")

	// ErrMigrationFault is returned when applying a migration fails
	ErrMigrationFault = errors.New("migration fault")

	// ErrRollbackFault wraps a failure of a single rollback hook
	ErrRollbackFault = errors.New("rollback fault")

	// ErrHookFault wraps a failure of a single after hook
	ErrHookFault = errors.New("hook fault")

	// ErrInvalidHook is returned for nil or unnamed hooks
	ErrInvalidHook = errors.New("invalid migration hook")
)
