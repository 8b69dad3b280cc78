package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/lineage/pkg/compatibility"
	"github.com/platinummonkey/lineage/pkg/definition"
	"github.com/platinummonkey/lineage/pkg/observability"
	"github.com/platinummonkey/lineage/pkg/version"
)

func orderDefinition(v string) *definition.Definition {
	return &definition.Definition{
		EntityType:   "Order",
		Version:      version.MustParse(v),
		InitialState: "Pending",
		States:       []string{"Pending", "Paid", "Shipped", "Cancelled"},
		Triggers:     []string{"pay", "ship", "cancel"},
		Transitions: []definition.Transition{
			{From: "Pending", Trigger: "pay", To: "Paid"},
			{From: "Pending", Trigger: "cancel", To: "Cancelled"},
			{From: "Paid", Trigger: "ship", To: "Shipped", Guard: "in_stock"},
		},
		DataFormat:    "json",
		SchemaVersion: "1",
		DataFields: []definition.DataField{
			{Name: "id", Type: "string", Required: true},
			{Name: "total", Type: "decimal"},
		},
	}
}

func contextFor(from, to *definition.Definition) *compatibility.Context {
	return compatibility.NewContext(from.EntityType, from.Version, to.Version).WithDefinitions(from, to)
}

func evaluate(t *testing.T, rule compatibility.Rule, cc *compatibility.Context) *compatibility.RuleResult {
	t.Helper()
	result, err := rule.Evaluate(context.Background(), cc)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)
	return result
}

func changeTypes(result *compatibility.RuleResult) []compatibility.ChangeType {
	var out []compatibility.ChangeType
	for _, c := range result.BreakingChanges {
		out = append(out, c.ChangeType)
	}
	return out
}

func removeState(def *definition.Definition, state string) {
	states := def.States[:0]
	for _, s := range def.States {
		if s != state {
			states = append(states, s)
		}
	}
	def.States = states

	transitions := def.Transitions[:0]
	for _, tr := range def.Transitions {
		if tr.From != state && tr.To != state {
			transitions = append(transitions, tr)
		}
	}
	def.Transitions = transitions
}

func TestRegisterDefaultRules(t *testing.T) {
	registry := compatibility.NewRegistry()
	require.NoError(t, RegisterDefaultRules(registry))

	names := make([]string, 0)
	for _, r := range registry.All() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{
		"version-semantics",
		"forward-compatibility",
		"backward-compatibility",
		"state-changes",
		"trigger-changes",
		"guard-changes",
		"transition-changes",
		"serialization",
		"state-data-migration",
	}, names)

	err := RegisterDefaultRules(registry)
	assert.ErrorIs(t, err, compatibility.ErrDuplicateRule)
}

func TestRules_WithoutDefinitions(t *testing.T) {
	cc := compatibility.NewContext("Order", version.MustParse("1.0.0"), version.MustParse("1.1.0"))

	for _, rule := range DefaultRules() {
		t.Run(rule.Name(), func(t *testing.T) {
			result := evaluate(t, rule, cc)
			assert.Empty(t, result.BreakingChanges)
			assert.Empty(t, result.Warnings)
		})
	}
}

func TestRules_IdenticalDefinitions(t *testing.T) {
	cc := contextFor(orderDefinition("1.0.0"), orderDefinition("1.1.0"))

	for _, rule := range DefaultRules() {
		t.Run(rule.Name(), func(t *testing.T) {
			result := evaluate(t, rule, cc)
			assert.Empty(t, result.BreakingChanges)
			assert.Empty(t, result.Warnings)
		})
	}
}

func TestVersionSemanticsRule(t *testing.T) {
	rule := NewVersionSemanticsRule()

	tests := []struct {
		name         string
		from, to     string
		wantChanges  []compatibility.ChangeType
		wantWarnings int
	}{
		{name: "minor upgrade", from: "1.0.0", to: "1.1.0"},
		{name: "downgrade", from: "1.2.0", to: "1.1.0", wantChanges: []compatibility.ChangeType{compatibility.ChangeVersionDowngrade}},
		{name: "same version", from: "1.0.0", to: "1.0.0", wantWarnings: 1},
		{name: "major upgrade", from: "1.4.0", to: "2.0.0", wantWarnings: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := compatibility.NewContext("Order", version.MustParse(tt.from), version.MustParse(tt.to))
			result := evaluate(t, rule, cc)
			assert.Equal(t, tt.wantChanges, changeTypes(result))
			assert.Len(t, result.Warnings, tt.wantWarnings)
		})
	}
}

func TestForwardCompatibilityRule(t *testing.T) {
	rule := NewForwardCompatibilityRule()

	one := evaluate(t, rule, compatibility.NewContext("Order", version.MustParse("1.0.0"), version.MustParse("2.0.0")))
	assert.Empty(t, one.BreakingChanges)

	two := evaluate(t, rule, compatibility.NewContext("Order", version.MustParse("1.0.0"), version.MustParse("3.0.0")))
	require.Len(t, two.BreakingChanges, 1)
	assert.Equal(t, compatibility.ChangeTransitionChanged, two.BreakingChanges[0].ChangeType)
	assert.Equal(t, compatibility.ImpactHigh, two.BreakingChanges[0].Impact)
	assert.Equal(t, "forward-compatibility", two.BreakingChanges[0].Rule)
}

func TestBackwardCompatibilityRule(t *testing.T) {
	rule := NewBackwardCompatibilityRule()
	assert.Equal(t, compatibility.CategoryInformational, rule.Category())

	from := orderDefinition("1.0.0")
	to := orderDefinition("2.0.0")
	removeState(to, "Cancelled")

	result := evaluate(t, rule, contextFor(from, to))
	assert.Empty(t, result.BreakingChanges)
	assert.Len(t, result.Warnings, 2)
}

func TestStateChangesRule(t *testing.T) {
	rule := NewStateChangesRule()
	assert.Equal(t, compatibility.CategoryCritical, rule.Category())

	t.Run("removed leaf state", func(t *testing.T) {
		to := orderDefinition("1.1.0")
		removeState(to, "Shipped")

		result := evaluate(t, rule, contextFor(orderDefinition("1.0.0"), to))
		require.Len(t, result.BreakingChanges, 1)
		c := result.BreakingChanges[0]
		assert.Equal(t, compatibility.ChangeStateRemoved, c.ChangeType)
		assert.Equal(t, compatibility.ImpactHigh, c.Impact)
		assert.Equal(t, "state:Shipped", c.Location)
	})

	t.Run("removed initial state", func(t *testing.T) {
		to := orderDefinition("2.0.0")
		removeState(to, "Pending")
		to.InitialState = "Paid"

		result := evaluate(t, rule, contextFor(orderDefinition("1.0.0"), to))
		require.Len(t, result.BreakingChanges, 1)
		assert.Equal(t, compatibility.ImpactCritical, result.BreakingChanges[0].Impact)
	})

	t.Run("removed state with outgoing transitions", func(t *testing.T) {
		to := orderDefinition("2.0.0")
		removeState(to, "Paid")

		result := evaluate(t, rule, contextFor(orderDefinition("1.0.0"), to))
		require.Len(t, result.BreakingChanges, 1)
		assert.Equal(t, compatibility.ImpactCritical, result.BreakingChanges[0].Impact)
	})

	t.Run("removed state with a replacement", func(t *testing.T) {
		to := orderDefinition("2.0.0")
		removeState(to, "Paid")
		to.States = append(to.States, "Settled")

		result := evaluate(t, rule, contextFor(orderDefinition("1.0.0"), to))
		assert.Equal(t, []compatibility.ChangeType{
			compatibility.ChangeStateRemoved,
			compatibility.ChangeStateAdded,
		}, changeTypes(result))
		assert.Equal(t, compatibility.ImpactHigh, result.BreakingChanges[0].Impact)
		assert.Equal(t, compatibility.ImpactLow, result.BreakingChanges[1].Impact)
	})
}

func TestTriggerChangesRule(t *testing.T) {
	rule := NewTriggerChangesRule()

	to := orderDefinition("1.1.0")
	to.Triggers = []string{"pay", "ship", "refund"}
	to.Transitions = to.Transitions[:1]

	result := evaluate(t, rule, contextFor(orderDefinition("1.0.0"), to))
	require.Len(t, result.BreakingChanges, 2)
	assert.Equal(t, compatibility.ChangeTriggerRemoved, result.BreakingChanges[0].ChangeType)
	assert.Equal(t, "trigger:cancel", result.BreakingChanges[0].Location)
	assert.Equal(t, compatibility.ImpactHigh, result.BreakingChanges[0].Impact)
	assert.Equal(t, compatibility.ChangeTriggerAdded, result.BreakingChanges[1].ChangeType)
	assert.Equal(t, compatibility.ImpactLow, result.BreakingChanges[1].Impact)
}

func TestGuardChangesRule(t *testing.T) {
	rule := NewGuardChangesRule()

	to := orderDefinition("1.1.0")
	to.Transitions[0].Guard = "payment_authorized"
	to.Transitions[2].Guard = "in_stock_and_paid"

	result := evaluate(t, rule, contextFor(orderDefinition("1.0.0"), to))
	require.Len(t, result.BreakingChanges, 2)

	byLocation := map[string]compatibility.Impact{}
	for _, c := range result.BreakingChanges {
		assert.Equal(t, compatibility.ChangeGuardChanged, c.ChangeType)
		byLocation[c.Location] = c.Impact
	}
	assert.Equal(t, compatibility.ImpactLow, byLocation["transition:Pending/pay"])
	assert.Equal(t, compatibility.ImpactMedium, byLocation["transition:Paid/ship"])
}

func TestTransitionChangesRule(t *testing.T) {
	rule := NewTransitionChangesRule()

	t.Run("redirected transition", func(t *testing.T) {
		to := orderDefinition("1.1.0")
		to.Transitions[1].To = "Paid"

		result := evaluate(t, rule, contextFor(orderDefinition("1.0.0"), to))
		require.Len(t, result.BreakingChanges, 1)
		c := result.BreakingChanges[0]
		assert.Equal(t, compatibility.ChangeTransitionChanged, c.ChangeType)
		assert.Equal(t, compatibility.ImpactHigh, c.Impact)
		assert.Equal(t, "transition:Pending/cancel", c.Location)
	})

	t.Run("newly permitted transition", func(t *testing.T) {
		to := orderDefinition("1.1.0")
		to.Transitions = append(to.Transitions, definition.Transition{From: "Paid", Trigger: "cancel", To: "Cancelled"})

		result := evaluate(t, rule, contextFor(orderDefinition("1.0.0"), to))
		require.Len(t, result.BreakingChanges, 1)
		assert.Equal(t, "transition:Paid/cancel", result.BreakingChanges[0].Location)
	})

	t.Run("removed trigger is skipped", func(t *testing.T) {
		to := orderDefinition("1.1.0")
		to.Triggers = []string{"pay", "ship"}
		to.Transitions = []definition.Transition{to.Transitions[0], to.Transitions[2]}

		result := evaluate(t, rule, contextFor(orderDefinition("1.0.0"), to))
		assert.Empty(t, result.BreakingChanges)
	})

	t.Run("uses the context predictor", func(t *testing.T) {
		cc := contextFor(orderDefinition("1.0.0"), orderDefinition("1.1.0"))
		cc.Predictor = versionedPredictor{blocked: version.MustParse("1.1.0")}

		result := evaluate(t, rule, cc)
		// Every transition of 1.0.0 is blocked under 1.1.0
		assert.Len(t, result.BreakingChanges, 3)
	})
}

// versionedPredictor refuses every trigger for one definition version
type versionedPredictor struct {
	blocked version.Version
}

func (p versionedPredictor) Predict(def *definition.Definition, state, trigger string) definition.Prediction {
	if def.Version.Equal(p.blocked) {
		return definition.Prediction{Reason: "blocked"}
	}
	return definition.TablePredictor{}.Predict(def, state, trigger)
}

func TestSerializationRule(t *testing.T) {
	rule := NewSerializationRule()

	format := orderDefinition("1.1.0")
	format.DataFormat = "protobuf"
	result := evaluate(t, rule, contextFor(orderDefinition("1.0.0"), format))
	require.Len(t, result.BreakingChanges, 1)
	assert.Equal(t, compatibility.ChangeDataFormatChanged, result.BreakingChanges[0].ChangeType)
	assert.Equal(t, compatibility.ImpactMedium, result.BreakingChanges[0].Impact)

	schema := orderDefinition("1.1.0")
	schema.SchemaVersion = "2"
	result = evaluate(t, rule, contextFor(orderDefinition("1.0.0"), schema))
	assert.Empty(t, result.BreakingChanges)
	assert.Len(t, result.Warnings, 1)
}

func TestStateDataMigrationRule(t *testing.T) {
	rule := NewStateDataMigrationRule()

	to := orderDefinition("1.1.0")
	to.DataFields = []definition.DataField{
		{Name: "id", Type: "uuid", Required: true},
		{Name: "customer", Type: "string", Required: true},
		{Name: "currency", Type: "string", Required: true, Default: "USD"},
		{Name: "notes", Type: "string"},
	}

	result := evaluate(t, rule, contextFor(orderDefinition("1.0.0"), to))

	impacts := map[string]compatibility.Impact{}
	for _, c := range result.BreakingChanges {
		assert.Equal(t, compatibility.ChangeDataFormatChanged, c.ChangeType)
		impacts[c.Location] = c.Impact
	}
	assert.Equal(t, map[string]compatibility.Impact{
		"field:id":       compatibility.ImpactMedium,
		"field:total":    compatibility.ImpactHigh,
		"field:customer": compatibility.ImpactLow,
	}, impacts)
	assert.Len(t, result.Warnings, 2)
}

func TestDefaultRules_EngineScenarios(t *testing.T) {
	registry := compatibility.NewRegistry()
	require.NoError(t, RegisterDefaultRules(registry))
	engine := compatibility.NewEngine(registry, compatibility.EngineOptions{Logger: observability.DiscardLogger()})

	t.Run("additive minor release", func(t *testing.T) {
		to := orderDefinition("1.1.0")
		to.States = append(to.States, "Refunded")

		result, err := engine.Evaluate(context.Background(), contextFor(orderDefinition("1.0.0"), to))
		require.NoError(t, err)
		assert.True(t, result.IsCompatible)
		assert.Equal(t, compatibility.LevelPartiallyCompatible, result.Level)
		require.Len(t, result.MigrationSteps, 1)
		assert.True(t, result.MigrationSteps[0].Automated)
	})

	t.Run("removed state requires migration", func(t *testing.T) {
		to := orderDefinition("2.0.0")
		removeState(to, "Cancelled")
		to.Triggers = []string{"pay", "ship"}

		result, err := engine.Evaluate(context.Background(), contextFor(orderDefinition("1.0.0"), to))
		require.NoError(t, err)
		assert.True(t, result.IsCompatible)
		assert.Equal(t, compatibility.LevelRequiresMigration, result.Level)
		assert.True(t, result.RequiresMigration)
		require.NotEmpty(t, result.MigrationSteps)
		assert.Equal(t, compatibility.ChangeStateRemoved, result.MigrationSteps[0].ChangeType)
	})

	t.Run("removed initial state is incompatible", func(t *testing.T) {
		to := orderDefinition("2.0.0")
		removeState(to, "Pending")
		to.InitialState = "Paid"

		result, err := engine.Evaluate(context.Background(), contextFor(orderDefinition("1.0.0"), to))
		require.NoError(t, err)
		assert.False(t, result.IsCompatible)
		assert.Equal(t, compatibility.LevelIncompatible, result.Level)
	})
}
