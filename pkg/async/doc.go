// Package async provides panic-safe concurrent execution primitives.
//
// # Overview
//
// Rules and hooks are caller-supplied code. A panic in one of them must not
// take down the compatibility check or migration that invoked it, so every
// call into foreign code goes through Recover, which converts a panic into a
// *PanicError carrying the recovered value and stack trace.
//
// # Key Functions
//
// Recover: run a function and turn a panic into an error
//
//	err := async.Recover("rule state-changes", func() error {
//		return rule.Evaluate(ctx, cc)
//	})
//
// Map: bounded concurrent processing that keeps result order
//
//	results, errs := async.Map(ctx, pairs, 4, "matrix", func(ctx context.Context, p Pair) (*Result, error) {
//		return check(ctx, p)
//	})
//
// # Related Packages
//
//   - pkg/compatibility: isolates rule faults with Recover
//   - pkg/hooks: isolates hook faults with Recover
//   - pkg/checker: fans out matrix and recommendation checks with Map
package async
