package checker

import (
	"slices"
	"time"

	"github.com/platinummonkey/lineage/pkg/compatibility"
	"github.com/platinummonkey/lineage/pkg/migration"
	"github.com/platinummonkey/lineage/pkg/version"
)

// Stage is a step of one compatibility check
type Stage string

const (
	StageRequested      Stage = "Requested"
	StageContextBuilt   Stage = "ContextBuilt"
	StageRulesEvaluated Stage = "RulesEvaluated"
	StagePathComputed   Stage = "PathComputed"
	StageResultReturned Stage = "ResultReturned"
)

// CheckResult is the outcome of comparing two versions of an entity type.
//
// Success is false when the check could not run (unregistered version,
// timeout); Reason then explains why and Err wraps a sentinel error. A failed
// check is never compatible.
type CheckResult struct {
	EntityType string
	From       version.Version
	To         version.Version

	Success bool
	Reason  string
	Err     error

	IsCompatible    bool
	Level           compatibility.Level
	BreakingChanges []compatibility.BreakingChange
	Warnings        []compatibility.Warning
	MigrationSteps  []compatibility.MigrationStep

	// MigrationPath is set only when the level is RequiresMigration
	MigrationPath *migration.Path

	Evaluation *compatibility.EvaluationResult
	Stages     []Stage
	Cached     bool
	CheckedAt  time.Time
	Duration   time.Duration
}

func (r *CheckResult) enter(stage Stage) {
	r.Stages = append(r.Stages, stage)
}

// HasCritical reports whether any breaking change is Critical
func (r *CheckResult) HasCritical() bool {
	for _, c := range r.BreakingChanges {
		if c.Impact == compatibility.ImpactCritical {
			return true
		}
	}
	return false
}

// clone returns a copy safe to hand to a caller. Slice elements are shared
// and must be treated as read-only; the slices are clipped so appending to
// one copy never writes into another.
func (r *CheckResult) clone() *CheckResult {
	c := *r
	c.Stages = append([]Stage(nil), r.Stages...)
	c.BreakingChanges = slices.Clip(r.BreakingChanges)
	c.Warnings = slices.Clip(r.Warnings)
	c.MigrationSteps = slices.Clip(r.MigrationSteps)
	return &c
}

func newResult(entityType string, from, to version.Version) *CheckResult {
	return &CheckResult{
		EntityType: entityType,
		From:       from,
		To:         to,
		CheckedAt:  time.Now(),
	}
}

// fail marks the result as a check that could not run
func (r *CheckResult) fail(reason string, err error) *CheckResult {
	r.Success = false
	r.IsCompatible = false
	r.Level = compatibility.LevelIncompatible
	r.Reason = reason
	r.Err = err
	return r
}
