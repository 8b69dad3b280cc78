package checker

import (
	"context"
	"fmt"
	"sort"

	"github.com/platinummonkey/lineage/pkg/async"
	"github.com/platinummonkey/lineage/pkg/compatibility"
	"github.com/platinummonkey/lineage/pkg/migration"
	"github.com/platinummonkey/lineage/pkg/version"
)

// Recommendation grades an upgrade target
type Recommendation int

const (
	HighlyRecommended Recommendation = iota
	Recommended
	ConsiderWithCaution
	NotRecommended
)

func (r Recommendation) String() string {
	return []string{"HighlyRecommended", "Recommended", "ConsiderWithCaution", "NotRecommended"}[r]
}

// RiskLevel estimates how risky an upgrade is
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskVeryHigh
)

func (r RiskLevel) String() string {
	return []string{"Low", "Medium", "High", "VeryHigh"}[r]
}

// UpgradeRecommendation describes one candidate upgrade target
type UpgradeRecommendation struct {
	Target         version.Version
	Recommendation Recommendation
	Risk           RiskLevel
	Effort         compatibility.Effort
	Reason         string
	Check          *CheckResult

	// Paths holds up to MaxAlternativePaths routes, best first
	Paths []*migration.Path
}

// GetUpgradeRecommendations grades every registered version above current.
// Results are ordered by recommendation strength, then effort, then version.
func (c *Checker) GetUpgradeRecommendations(ctx context.Context, entityType string, current version.Version) ([]*UpgradeRecommendation, error) {
	if entityType == "" {
		return nil, fmt.Errorf("%w: entity type is required", ErrInvalidArgument)
	}

	var targets []version.Version
	for _, v := range c.registry.Versions(entityType) {
		if current.Less(v) {
			targets = append(targets, v)
		}
	}

	recs, errs := async.Map(ctx, targets, c.workers, "upgrade recommendation",
		func(ctx context.Context, target version.Version) (*UpgradeRecommendation, error) {
			return c.recommend(ctx, entityType, current, target)
		})

	out := make([]*UpgradeRecommendation, 0, len(targets))
	for i, rec := range recs {
		if errs[i] != nil || rec == nil {
			rec = &UpgradeRecommendation{
				Target:         targets[i],
				Recommendation: NotRecommended,
				Risk:           RiskVeryHigh,
				Effort:         compatibility.EffortHigh,
				Reason:         fmt.Sprintf("recommendation failed: %v", errs[i]),
			}
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Recommendation != b.Recommendation {
			return a.Recommendation < b.Recommendation
		}
		if a.Effort != b.Effort {
			return a.Effort < b.Effort
		}
		return a.Target.Less(b.Target)
	})

	return out, nil
}

func (c *Checker) recommend(ctx context.Context, entityType string, current, target version.Version) (*UpgradeRecommendation, error) {
	check, err := c.CheckCompatibility(ctx, entityType, current, target)
	if err != nil {
		return nil, err
	}

	rec := &UpgradeRecommendation{
		Target:         target,
		Check:          check,
		Recommendation: classifyRecommendation(check),
		Risk:           classifyRisk(check, current, target),
	}

	if check.Success {
		paths, err := c.calculator.CalculateAlternativePaths(ctx, entityType, current, target, MaxAlternativePaths)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			if p.Valid {
				rec.Paths = append(rec.Paths, p)
			}
		}
	}
	rec.Effort = estimateEffort(rec, check)

	switch {
	case !check.Success:
		rec.Reason = check.Reason
	case len(rec.Paths) == 0 && rec.Recommendation != NotRecommended:
		rec.Reason = fmt.Sprintf("%s, but no migration path from %s", check.Level, current)
	default:
		rec.Reason = check.Reason
	}

	return rec, nil
}

func classifyRecommendation(check *CheckResult) Recommendation {
	if !check.Success {
		return NotRecommended
	}
	switch check.Level {
	case compatibility.LevelFullyCompatible, compatibility.LevelCompatible:
		return HighlyRecommended
	case compatibility.LevelPartiallyCompatible:
		return Recommended
	case compatibility.LevelRequiresMigration:
		if check.HasCritical() {
			return NotRecommended
		}
		return ConsiderWithCaution
	default:
		return NotRecommended
	}
}

func classifyRisk(check *CheckResult, current, target version.Version) RiskLevel {
	if check.HasCritical() {
		return RiskVeryHigh
	}
	if target.Major > current.Major {
		return RiskHigh
	}
	if len(check.BreakingChanges) > 3 {
		return RiskMedium
	}
	for _, c := range check.BreakingChanges {
		if c.Impact == compatibility.ImpactMedium || c.Impact == compatibility.ImpactHigh {
			return RiskMedium
		}
	}
	return RiskLow
}

// estimateEffort prefers the best path's step effort and falls back to the
// engine's migration steps
func estimateEffort(rec *UpgradeRecommendation, check *CheckResult) compatibility.Effort {
	if !check.Success {
		return compatibility.EffortHigh
	}
	if len(rec.Paths) > 0 {
		return rec.Paths[0].MaxEffort()
	}
	effort := compatibility.EffortLow
	for _, s := range check.MigrationSteps {
		if s.Effort > effort {
			effort = s.Effort
		}
	}
	return effort
}
