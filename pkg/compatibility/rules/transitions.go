package rules

import (
	"context"
	"fmt"

	"github.com/platinummonkey/lineage/pkg/compatibility"
)

// GuardChangesRule detects changed guards on transitions present in both
// versions
type GuardChangesRule struct {
	compatibility.BaseRule
}

// NewGuardChangesRule creates a new guard changes rule
func NewGuardChangesRule() *GuardChangesRule {
	return &GuardChangesRule{
		BaseRule: compatibility.BaseRule{
			RuleName:        "guard-changes",
			RuleCategory:    compatibility.CategoryStandard,
			RuleDescription: "Changed guards may block transitions that used to fire",
		},
	}
}

// Evaluate compares guards per (state, trigger)
func (r *GuardChangesRule) Evaluate(ctx context.Context, cc *compatibility.Context) (*compatibility.RuleResult, error) {
	result := compatibility.NewRuleResult(r)
	if !cc.HasDefinitions() {
		return result, nil
	}

	for _, old := range cc.FromDefinition.Transitions {
		updated, ok := cc.ToDefinition.Transition(old.From, old.Trigger)
		if !ok || updated.Guard == old.Guard {
			continue
		}

		location := fmt.Sprintf("transition:%s/%s", old.From, old.Trigger)
		builder := compatibility.NewBreakingChange(compatibility.ChangeGuardChanged).WithLocation(location)

		if old.Guard == "" {
			builder.WithImpact(compatibility.ImpactLow).
				WithDescription(fmt.Sprintf("guard %s added to %s on %s", updated.Guard, old.Trigger, old.From)).
				WithMitigation("confirm in-flight instances satisfy the new guard")
		} else {
			builder.WithImpact(compatibility.ImpactMedium).
				WithDescription(fmt.Sprintf("guard on %s from %s changed from %q to %q", old.Trigger, old.From, old.Guard, updated.Guard)).
				WithMitigation("re-evaluate pending transitions against the new guard")
		}
		result.AddBreakingChange(builder.Build())
	}

	return result, nil
}

// TransitionChangesRule predicts every (state, trigger) pair under both
// definitions and reports pairs whose outcome differs
type TransitionChangesRule struct {
	compatibility.BaseRule
}

// NewTransitionChangesRule creates a new transition changes rule
func NewTransitionChangesRule() *TransitionChangesRule {
	return &TransitionChangesRule{
		BaseRule: compatibility.BaseRule{
			RuleName:        "transition-changes",
			RuleCategory:    compatibility.CategoryCritical,
			RuleDescription: "A trigger must behave the same way in states that survive the upgrade",
		},
	}
}

// Evaluate compares predicted outcomes
func (r *TransitionChangesRule) Evaluate(ctx context.Context, cc *compatibility.Context) (*compatibility.RuleResult, error) {
	result := compatibility.NewRuleResult(r)
	if !cc.HasDefinitions() {
		return result, nil
	}

	from, to := cc.FromDefinition, cc.ToDefinition
	predictor := cc.TransitionPredictor()

	for _, state := range from.States {
		if !to.HasState(state) {
			continue
		}
		for _, trigger := range from.Triggers {
			// Removed triggers are reported by trigger-changes
			if !to.HasTrigger(trigger) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			before := predictor.Predict(from, state, trigger)
			after := predictor.Predict(to, state, trigger)
			if before.CanFire == after.CanFire && before.TargetState == after.TargetState {
				continue
			}

			result.AddBreakingChange(compatibility.NewBreakingChange(compatibility.ChangeTransitionChanged).
				WithImpact(compatibility.ImpactHigh).
				WithLocation(fmt.Sprintf("transition:%s/%s", state, trigger)).
				WithDescription(fmt.Sprintf("%s in %s: %s -> %s", trigger, state, describe(before.CanFire, before.TargetState), describe(after.CanFire, after.TargetState))).
				WithMitigation("drain or re-route instances that may receive this trigger in this state").
				Build())
		}
	}

	return result, nil
}

func describe(canFire bool, target string) string {
	if !canFire {
		return "not permitted"
	}
	return "moves to " + target
}
