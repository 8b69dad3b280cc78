package compatibility

import (
	"fmt"
	"sort"
)

// maxHighImpactChanges is the number of High-impact changes tolerated before
// a version pair is considered incompatible
const maxHighImpactChanges = 3

// ClassifyLevel derives the compatibility level from findings:
//   - nothing found: FullyCompatible
//   - warnings only: Compatible
//   - only Low-impact breaking changes: PartiallyCompatible
//   - any breaking change above Low: RequiresMigration
//   - a Critical change, or more than three High changes: Incompatible
func ClassifyLevel(changes []BreakingChange, warnings int) Level {
	if len(changes) == 0 {
		if warnings == 0 {
			return LevelFullyCompatible
		}
		return LevelCompatible
	}

	high := 0
	allLow := true
	for _, c := range changes {
		switch c.Impact {
		case ImpactCritical:
			return LevelIncompatible
		case ImpactHigh:
			high++
		}
		if c.Impact != ImpactLow {
			allLow = false
		}
	}

	if high > maxHighImpactChanges {
		return LevelIncompatible
	}
	if allLow {
		return LevelPartiallyCompatible
	}
	return LevelRequiresMigration
}

// stepPriority orders migration steps; lower runs first
var stepPriority = map[ChangeType]int{
	ChangeStateRemoved:      0,
	ChangeTriggerRemoved:    1,
	ChangeTransitionChanged: 2,
	ChangeGuardChanged:      3,
	ChangeStateAdded:        4,
	ChangeTriggerAdded:      5,
}

const otherStepPriority = 6

// automatedChanges can be migrated without manual intervention by default
var automatedChanges = map[ChangeType]bool{
	ChangeStateAdded:        true,
	ChangeTriggerAdded:      true,
	ChangeDataFormatChanged: true,
}

func priorityOf(ct ChangeType) int {
	if p, ok := stepPriority[ct]; ok {
		return p
	}
	return otherStepPriority
}

// DeriveMigrationSteps groups breaking changes by type and orders the groups
// StateRemoved, TriggerRemoved, TransitionChanged, GuardChanged, StateAdded,
// TriggerAdded, then everything else by name.
func DeriveMigrationSteps(changes []BreakingChange, complexity Complexity) []MigrationStep {
	if len(changes) == 0 {
		return nil
	}

	groups := make(map[ChangeType][]BreakingChange)
	for _, c := range changes {
		groups[c.ChangeType] = append(groups[c.ChangeType], c)
	}

	types := make([]ChangeType, 0, len(groups))
	for ct := range groups {
		types = append(types, ct)
	}
	sort.Slice(types, func(i, j int) bool {
		pi, pj := priorityOf(types[i]), priorityOf(types[j])
		if pi != pj {
			return pi < pj
		}
		return types[i] < types[j]
	})

	steps := make([]MigrationStep, 0, len(types))
	for i, ct := range types {
		group := groups[ct]
		maxImpact := ImpactLow
		for _, c := range group {
			if c.Impact > maxImpact {
				maxImpact = c.Impact
			}
		}

		steps = append(steps, MigrationStep{
			Order:       i + 1,
			ChangeType:  ct,
			Description: fmt.Sprintf("Handle %d %s change(s)", len(group), ct),
			Changes:     group,
			MaxImpact:   maxImpact,
			Effort:      estimateEffort(maxImpact, len(group), complexity),
			Automated:   automatedChanges[ct],
		})
	}

	return steps
}

func estimateEffort(maxImpact Impact, count int, complexity Complexity) Effort {
	effort := EffortLow
	switch {
	case maxImpact >= ImpactHigh || count > 5:
		effort = EffortHigh
	case maxImpact == ImpactMedium || count > 2:
		effort = EffortMedium
	}

	if complexity == ComplexityComplex && effort < EffortHigh {
		effort++
	}
	return effort
}

func summarize(results []*RuleResult, changes []BreakingChange, warnings []Warning) Summary {
	summary := Summary{
		TotalRules:      len(results),
		BreakingChanges: len(changes),
		Warnings:        len(warnings),
		ByImpact:        make(map[Impact]int),
	}

	for _, r := range results {
		if !r.Success {
			summary.FailedRules++
		}
	}
	for _, c := range changes {
		summary.ByImpact[c.Impact]++
	}

	return summary
}
