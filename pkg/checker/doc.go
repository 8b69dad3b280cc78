// Package checker is the query surface of lineage. It composes the
// compatibility rules engine and the migration path calculator into:
//
//   - CheckCompatibility: rule evaluation for one version pair, plus the
//     optimal migration path when the pair requires migration
//   - AnalyzeCompatibilityMatrix: every ordered pair of registered versions
//   - GetUpgradeRecommendations: graded upgrade targets with alternative paths
//   - ValidateDeploymentCompatibility: whether a new version can roll out next
//     to the versions already running
//   - EvaluateShadow: a trigger's predicted effect under two definitions
//
// Expected conditions such as an unregistered version, a missing path or a
// timeout are reported on the result with a Reason; errors are returned only
// for invalid arguments.
//
// Example:
//
//	c, err := checker.New(registry, checker.Options{
//		Logger:    logger,
//		Timeout:   5 * time.Second,
//		CacheSize: 1024,
//	})
//	if err != nil {
//		return err
//	}
//
//	result, err := c.CheckCompatibility(ctx, "Order", v1, v2)
//	if err != nil {
//		return err
//	}
//	if !result.IsCompatible {
//		fmt.Println(result.Reason)
//	}
package checker
