// Package hooks runs ordered extension points around the migration of one
// entity instance.
//
// Hooks are sorted ascending by priority. Before hooks gate the migration:
// the first hook that returns false, errors or panics vetoes it. After hooks
// run once the migration is committed and are best-effort. Rollback hooks run
// in reverse priority order after a veto or a failed apply step, and each
// failure is isolated from the others.
//
// Built-in hooks:
//
//	priority   0  audit-logging                   start/success/rollback audit events
//	priority  10  state-backup                    deep copy of the state bag, restored on rollback
//	priority 100  state-transformation            per-version-pair state transforms
//	priority 110  state-compatibility-validation  warns when the transformed state is unknown to the target
//
// Example:
//
//	pipeline := hooks.NewPipeline(hooks.PipelineOptions{Logger: logger})
//	transform, err := hooks.RegisterDefaultHooks(pipeline, auditLog, registry)
//	if err != nil {
//		return err
//	}
//	transform.Register(v1, v2, renameTotalField)
//
//	runner := hooks.NewRunner(pipeline, hooks.RunnerOptions{Logger: logger})
//	result := runner.RunMigration(ctx, hooks.NewMigrationContext("Order", id, v1, v2, state), commit)
//	if !result.Success {
//		log.Printf("migration %s: %s", result.Status, result.Reason)
//	}
package hooks
