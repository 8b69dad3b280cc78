// Package audit records migration lifecycle events for compliance and
// forensics.
//
// # Overview
//
// Every migration run emits a start event, then either a success event or a
// rollback event. Vetoes and faults carry the triggering error. Events are
// written to a Logger; the package ships a file logger (newline-delimited
// JSON with size-based rotation), an in-memory logger for tests and
// diagnostics, and a multi logger that fans out to several sinks.
//
// # Event Types
//
// migration.start: a migration was requested
// migration.success: the migration was applied and committed
// migration.veto: a before hook rejected the migration
// migration.rollback: rollback hooks ran after a veto or a fault
//
// # Usage Example
//
//	logger, err := audit.NewFileLogger(audit.FileLoggerConfig{BasePath: "/var/log/lineage"})
//	if err != nil {
//		return err
//	}
//	defer logger.Close()
//
//	pipeline.RegisterHook(hooks.NewAuditLoggingHook(logger))
//
// # Related Packages
//
//   - pkg/hooks: AuditLoggingHook writes these events
package audit
