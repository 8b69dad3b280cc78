package rules

import (
	"context"
	"fmt"

	"github.com/platinummonkey/lineage/pkg/compatibility"
)

// SerializationRule detects changes to the persisted data format
type SerializationRule struct {
	compatibility.BaseRule
}

// NewSerializationRule creates a new serialization rule
func NewSerializationRule() *SerializationRule {
	return &SerializationRule{
		BaseRule: compatibility.BaseRule{
			RuleName:        "serialization",
			RuleCategory:    compatibility.CategoryStandard,
			RuleDescription: "Persisted state must stay readable after an upgrade",
		},
	}
}

// Evaluate compares data formats and schema versions
func (r *SerializationRule) Evaluate(ctx context.Context, cc *compatibility.Context) (*compatibility.RuleResult, error) {
	result := compatibility.NewRuleResult(r)
	if !cc.HasDefinitions() {
		return result, nil
	}

	from, to := cc.FromDefinition, cc.ToDefinition
	if from.DataFormat != to.DataFormat {
		result.AddBreakingChange(compatibility.NewBreakingChange(compatibility.ChangeDataFormatChanged).
			WithImpact(compatibility.ImpactMedium).
			WithLocation("data_format").
			WithDescription(fmt.Sprintf("data format changed from %q to %q", from.DataFormat, to.DataFormat)).
			WithMitigation("re-encode persisted state during migration").
			Build())
		return result, nil
	}

	if from.SchemaVersion != to.SchemaVersion {
		result.AddWarning(fmt.Sprintf("schema version changed from %q to %q", from.SchemaVersion, to.SchemaVersion))
	}

	return result, nil
}

// StateDataMigrationRule compares the declared data fields
type StateDataMigrationRule struct {
	compatibility.BaseRule
}

// NewStateDataMigrationRule creates a new state data migration rule
func NewStateDataMigrationRule() *StateDataMigrationRule {
	return &StateDataMigrationRule{
		BaseRule: compatibility.BaseRule{
			RuleName:        "state-data-migration",
			RuleCategory:    compatibility.CategoryStandard,
			RuleDescription: "Entity data must be migratable between field layouts",
		},
	}
}

// Evaluate compares data fields
func (r *StateDataMigrationRule) Evaluate(ctx context.Context, cc *compatibility.Context) (*compatibility.RuleResult, error) {
	result := compatibility.NewRuleResult(r)
	if !cc.HasDefinitions() {
		return result, nil
	}

	from, to := cc.FromDefinition, cc.ToDefinition

	for _, old := range from.DataFields {
		updated, ok := to.Field(old.Name)
		if !ok {
			result.AddBreakingChange(compatibility.NewBreakingChange(compatibility.ChangeDataFormatChanged).
				WithImpact(compatibility.ImpactHigh).
				WithLocation("field:" + old.Name).
				WithDescription(fmt.Sprintf("data field %s was removed", old.Name)).
				WithMitigation("copy the value elsewhere or confirm it can be dropped").
				Build())
			continue
		}
		if updated.Type != old.Type {
			result.AddBreakingChange(compatibility.NewBreakingChange(compatibility.ChangeDataFormatChanged).
				WithImpact(compatibility.ImpactMedium).
				WithLocation("field:" + old.Name).
				WithDescription(fmt.Sprintf("data field %s changed type from %s to %s", old.Name, old.Type, updated.Type)).
				WithMitigation("convert stored values with a state transformation").
				Build())
		}
	}

	for _, field := range to.DataFields {
		if _, ok := from.Field(field.Name); ok {
			continue
		}
		if field.Required && field.Default == "" {
			result.AddBreakingChange(compatibility.NewBreakingChange(compatibility.ChangeDataFormatChanged).
				WithImpact(compatibility.ImpactLow).
				WithLocation("field:" + field.Name).
				WithDescription(fmt.Sprintf("required data field %s was added without a default", field.Name)).
				WithMitigation("populate the field during migration").
				Build())
			continue
		}
		result.AddWarning(fmt.Sprintf("data field %s was added", field.Name))
	}

	return result, nil
}
