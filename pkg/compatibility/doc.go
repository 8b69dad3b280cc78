// Package compatibility decides whether two versions of a state-transition
// definition can coexist, and what it takes to move in-flight instances from
// one to the other.
//
// # Overview
//
// A compatibility check runs a set of named rules against a Context that
// carries the two versions and, when available, both definitions. Each rule
// reports breaking changes and warnings. The Engine runs all rules
// concurrently, isolates rule faults, and folds the findings into a single
// EvaluationResult.
//
// # Compatibility Levels
//
// Levels are ordered from least to most severe:
//
// FullyCompatible: no findings at all.
//
// Compatible: warnings only.
//
// PartiallyCompatible: only Low-impact breaking changes.
//
// RequiresMigration: at least one breaking change above Low impact.
// In-flight instances need a migration before the new version handles them.
//
// Incompatible: a Critical change, more than three High-impact changes, or a
// fault in a Critical-category rule.
//
// # Rule Faults
//
// A rule that returns an error or panics never aborts the evaluation. Its
// RuleResult is marked unsuccessful with Err wrapping ErrRuleFault. Faults in
// Critical rules force Incompatible; any other fault becomes a warning.
//
// # Usage
//
//	registry := compatibility.NewRegistry()
//	rules.RegisterDefaultRules(registry)
//
//	engine := compatibility.NewEngine(registry, compatibility.EngineOptions{Logger: logger})
//	cc := compatibility.NewContext("Order", from, to).WithDefinitions(fromDef, toDef)
//
//	result, err := engine.Evaluate(ctx, cc)
//	if err != nil {
//	    return err
//	}
//	for _, step := range result.MigrationSteps {
//	    fmt.Printf("%d. %s (%s effort)\n", step.Order, step.Description, step.Effort)
//	}
//
// # Migration Steps
//
// Breaking changes are grouped by change type into ordered MigrationSteps.
// Removals are handled before transition and guard changes, and additions
// last. Steps for added states, added triggers and data format changes are
// marked Automated.
//
// # Related Packages
//
//   - pkg/compatibility/rules: built-in rules
//   - pkg/migration: multi-hop migration paths
//   - pkg/checker: facade combining rules and path calculation
package compatibility
