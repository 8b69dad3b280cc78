package rules

import (
	"context"
	"fmt"

	"github.com/platinummonkey/lineage/pkg/compatibility"
	"github.com/platinummonkey/lineage/pkg/definition"
)

// VersionSemanticsRule checks the direction and size of a version change
type VersionSemanticsRule struct {
	compatibility.BaseRule
}

// NewVersionSemanticsRule creates a new version semantics rule
func NewVersionSemanticsRule() *VersionSemanticsRule {
	return &VersionSemanticsRule{
		BaseRule: compatibility.BaseRule{
			RuleName:        "version-semantics",
			RuleCategory:    compatibility.CategoryStandard,
			RuleDescription: "Version changes must move forward; major bumps are flagged",
		},
	}
}

// Evaluate checks the version pair
func (r *VersionSemanticsRule) Evaluate(ctx context.Context, cc *compatibility.Context) (*compatibility.RuleResult, error) {
	result := compatibility.NewRuleResult(r)

	switch cmp := cc.To.Compare(cc.From); {
	case cmp < 0:
		result.AddBreakingChange(compatibility.NewBreakingChange(compatibility.ChangeVersionDowngrade).
			WithImpact(compatibility.ImpactHigh).
			WithLocation("version").
			WithDescription(fmt.Sprintf("downgrade from %s to %s", cc.From, cc.To)).
			WithMitigation("migrate instances forward instead, or restore them from a backup taken before the upgrade").
			Build())
	case cmp == 0:
		result.AddWarning(fmt.Sprintf("source and target are the same version %s", cc.From))
	default:
		if cc.To.Major > cc.From.Major {
			result.AddWarning(fmt.Sprintf("major version change %d -> %d", cc.From.Major, cc.To.Major))
		}
	}

	return result, nil
}

// ForwardCompatibilityRule rejects jumps across more than one major version
type ForwardCompatibilityRule struct {
	compatibility.BaseRule
}

// NewForwardCompatibilityRule creates a new forward compatibility rule
func NewForwardCompatibilityRule() *ForwardCompatibilityRule {
	return &ForwardCompatibilityRule{
		BaseRule: compatibility.BaseRule{
			RuleName:        "forward-compatibility",
			RuleCategory:    compatibility.CategoryStandard,
			RuleDescription: "Instances may not skip a major version in one hop",
		},
	}
}

// Evaluate checks the major distance
func (r *ForwardCompatibilityRule) Evaluate(ctx context.Context, cc *compatibility.Context) (*compatibility.RuleResult, error) {
	result := compatibility.NewRuleResult(r)

	if skipped := cc.To.Major - cc.From.Major; skipped > 1 {
		result.AddBreakingChange(compatibility.NewBreakingChange(compatibility.ChangeTransitionChanged).
			WithImpact(compatibility.ImpactHigh).
			WithLocation("version").
			WithDescription(fmt.Sprintf("upgrade from %s to %s skips %d major version(s)", cc.From, cc.To, skipped-1)).
			WithMitigation("migrate through each intermediate major version").
			Build())
	}

	return result, nil
}

// BackwardCompatibilityRule reports when rolling back to the source version
// would be unsafe
type BackwardCompatibilityRule struct {
	compatibility.BaseRule
}

// NewBackwardCompatibilityRule creates a new backward compatibility rule
func NewBackwardCompatibilityRule() *BackwardCompatibilityRule {
	return &BackwardCompatibilityRule{
		BaseRule: compatibility.BaseRule{
			RuleName:        "backward-compatibility",
			RuleCategory:    compatibility.CategoryInformational,
			RuleDescription: "Flags changes that make a rollback unsafe",
		},
	}
}

// Evaluate checks rollback safety
func (r *BackwardCompatibilityRule) Evaluate(ctx context.Context, cc *compatibility.Context) (*compatibility.RuleResult, error) {
	result := compatibility.NewRuleResult(r)

	if cc.To.Major != cc.From.Major {
		result.AddWarning(fmt.Sprintf("rollback from %s to %s crosses a major version and may not be safe", cc.To, cc.From))
	}

	if !cc.HasDefinitions() {
		return result, nil
	}

	removed := definition.Diff(cc.FromDefinition.StateSet(), cc.ToDefinition.StateSet())
	for _, state := range removed {
		result.AddWarning(fmt.Sprintf("instances of %s cannot roll back through removed state %s", cc.EntityType, state))
	}

	return result, nil
}
