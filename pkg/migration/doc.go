// Package migration computes multi-hop upgrade paths between versions of an
// entity type.
//
// A Graph holds every registered version as a node and an edge for each
// direct hop an EdgePredicate allows. Edges only point forward, so the graph
// is acyclic. The Calculator enumerates simple paths by depth-first search,
// classifies each hop, and ranks candidates by risk, then cost, then number
// of steps.
//
// Graphs are cached per entity type and built exactly once per cache
// generation. Call Invalidate when the set of versions changes.
//
//	calc := migration.NewCalculator(registry,
//	    migration.WithMaxCandidatePaths(1000),
//	    migration.WithLogger(logger),
//	)
//
//	path, err := calc.CalculateOptimalPath(ctx, "Order", from, to)
//	if err != nil {
//	    return err
//	}
//	if !path.Valid {
//	    log.Printf("cannot migrate: %s", path.Reason)
//	}
package migration
