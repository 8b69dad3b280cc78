package rules

import (
	"github.com/platinummonkey/lineage/pkg/compatibility"
)

// Registry interface for registering rules
type Registry interface {
	Register(rule compatibility.Rule) error
}

// DefaultRules returns a fresh instance of every built-in rule
func DefaultRules() []compatibility.Rule {
	return []compatibility.Rule{
		// Version rules
		NewVersionSemanticsRule(),
		NewForwardCompatibilityRule(),
		NewBackwardCompatibilityRule(),

		// Definition rules
		NewStateChangesRule(),
		NewTriggerChangesRule(),
		NewGuardChangesRule(),
		NewTransitionChangesRule(),

		// Data rules
		NewSerializationRule(),
		NewStateDataMigrationRule(),
	}
}

// RegisterDefaultRules registers all built-in compatibility rules
func RegisterDefaultRules(registry Registry) error {
	for _, rule := range DefaultRules() {
		if err := registry.Register(rule); err != nil {
			return err
		}
	}
	return nil
}
