// Package cli implements the lineage command-line interface.
//
// Every command loads definitions from YAML files into an in-memory
// registry and builds a checker from the configuration (see package config).
//
// # Commands
//
// check: grade compatibility between two versions
//
//	lineage check Order 1.0.0 2.0.0 -d ./definitions
//
// matrix: check every ordered pair of versions
//
//	lineage matrix Order --min-compatible 50
//
// recommend: grade every newer version as an upgrade target
//
//	lineage recommend Order 1.0.0 --verbose
//
// deploy-check: pick a rollout strategy for a new version
//
//	lineage deploy-check Order 1.2.0 --existing 1.0.0,1.1.0
//
// path: plan migration paths
//
//	lineage path Order 1.0.0 3.0.0 --alternatives 3
//
// shadow: compare a trigger's effect under two versions
//
//	lineage shadow Order 1.0.0 2.0.0 --state Pending --trigger pay
//
// migrate: run one instance's state through the migration hooks
//
//	lineage migrate Order 1.0.0 1.1.0 -f order-42.json --rename amount=total -o migrated.json
//
// watch: re-analyze the matrix on config changes
//
//	lineage watch Order --config lineage.yaml
//
// audit: show migration audit events, including rotated files
//
//	lineage audit --entity-type Order --status failure
//
// # Output
//
// --format json wraps every result in {"status": ..., "data": ...}.
// Exit codes: 0 success, 1 negative answer (incompatible, blocked, no path,
// migration not committed), 2 command error.
package cli
