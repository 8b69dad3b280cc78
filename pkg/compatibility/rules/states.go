package rules

import (
	"context"
	"fmt"

	"github.com/platinummonkey/lineage/pkg/compatibility"
	"github.com/platinummonkey/lineage/pkg/definition"
)

// StateChangesRule detects added and removed states
type StateChangesRule struct {
	compatibility.BaseRule
}

// NewStateChangesRule creates a new state changes rule
func NewStateChangesRule() *StateChangesRule {
	return &StateChangesRule{
		BaseRule: compatibility.BaseRule{
			RuleName:        "state-changes",
			RuleCategory:    compatibility.CategoryCritical,
			RuleDescription: "Removing a state strands instances currently in it",
		},
	}
}

// Evaluate compares the state sets
func (r *StateChangesRule) Evaluate(ctx context.Context, cc *compatibility.Context) (*compatibility.RuleResult, error) {
	result := compatibility.NewRuleResult(r)
	if !cc.HasDefinitions() {
		return result, nil
	}

	from, to := cc.FromDefinition, cc.ToDefinition
	removed := definition.Diff(from.StateSet(), to.StateSet())
	added := definition.Diff(to.StateSet(), from.StateSet())

	for _, state := range removed {
		impact := compatibility.ImpactHigh
		reason := ""
		switch {
		case state == from.InitialState:
			impact = compatibility.ImpactCritical
			reason = " (it was the initial state)"
		case len(from.TransitionsFrom(state)) > 0 && len(added) == 0:
			impact = compatibility.ImpactCritical
			reason = " (it had outgoing transitions and no new state replaces it)"
		}

		result.AddBreakingChange(compatibility.NewBreakingChange(compatibility.ChangeStateRemoved).
			WithImpact(impact).
			WithLocation("state:" + state).
			WithDescription(fmt.Sprintf("state %s was removed%s", state, reason)).
			WithMitigation(fmt.Sprintf("move instances out of %s before upgrading, or map it to a new state", state)).
			Build())
	}

	for _, state := range added {
		result.AddBreakingChange(compatibility.NewBreakingChange(compatibility.ChangeStateAdded).
			WithImpact(compatibility.ImpactLow).
			WithLocation("state:" + state).
			WithDescription(fmt.Sprintf("state %s was added", state)).
			Build())
	}

	return result, nil
}

// TriggerChangesRule detects added and removed triggers
type TriggerChangesRule struct {
	compatibility.BaseRule
}

// NewTriggerChangesRule creates a new trigger changes rule
func NewTriggerChangesRule() *TriggerChangesRule {
	return &TriggerChangesRule{
		BaseRule: compatibility.BaseRule{
			RuleName:        "trigger-changes",
			RuleCategory:    compatibility.CategoryStandard,
			RuleDescription: "Removing a trigger breaks callers that still fire it",
		},
	}
}

// Evaluate compares the trigger sets
func (r *TriggerChangesRule) Evaluate(ctx context.Context, cc *compatibility.Context) (*compatibility.RuleResult, error) {
	result := compatibility.NewRuleResult(r)
	if !cc.HasDefinitions() {
		return result, nil
	}

	fromTriggers := cc.FromDefinition.TriggerSet()
	toTriggers := cc.ToDefinition.TriggerSet()

	for _, trigger := range definition.Diff(fromTriggers, toTriggers) {
		result.AddBreakingChange(compatibility.NewBreakingChange(compatibility.ChangeTriggerRemoved).
			WithImpact(compatibility.ImpactHigh).
			WithLocation("trigger:" + trigger).
			WithDescription(fmt.Sprintf("trigger %s was removed", trigger)).
			WithMitigation(fmt.Sprintf("stop firing %s before upgrading", trigger)).
			Build())
	}

	for _, trigger := range definition.Diff(toTriggers, fromTriggers) {
		result.AddBreakingChange(compatibility.NewBreakingChange(compatibility.ChangeTriggerAdded).
			WithImpact(compatibility.ImpactLow).
			WithLocation("trigger:" + trigger).
			WithDescription(fmt.Sprintf("trigger %s was added", trigger)).
			Build())
	}

	return result, nil
}
