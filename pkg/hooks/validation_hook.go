package hooks

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/lineage/pkg/definition"
	"github.com/platinummonkey/lineage/pkg/observability"
)

const (
	// ValidationHookPriority runs validation after the transformation, so
	// the state checked is the one the instance will have in the target
	ValidationHookPriority = 110

	// DefaultStateKey is the state bag key holding the current state name
	DefaultStateKey = "state"
)

// StateCompatibilityValidationHook flags instances whose state, as left by
// earlier hooks, does not exist in the target definition. It never blocks a
// migration.
type StateCompatibilityValidationHook struct {
	BaseHook
	registry definition.Registry
	stateKey string
	logger   *logrus.Logger
}

// NewStateCompatibilityValidationHook creates a validation hook. An empty
// stateKey uses DefaultStateKey.
func NewStateCompatibilityValidationHook(registry definition.Registry, stateKey string, logger *logrus.Logger) *StateCompatibilityValidationHook {
	if stateKey == "" {
		stateKey = DefaultStateKey
	}
	return &StateCompatibilityValidationHook{
		BaseHook: BaseHook{HookName: "state-compatibility-validation", HookPriority: ValidationHookPriority},
		registry: registry,
		stateKey: stateKey,
		logger:   observability.OrDefault(logger),
	}
}

func (h *StateCompatibilityValidationHook) Before(ctx context.Context, mc *MigrationContext) (bool, error) {
	current, ok := mc.State[h.stateKey].(string)
	if !ok || current == "" {
		return true, nil
	}

	var warning string
	target, found := h.lookup(mc)
	switch {
	case !found:
		warning = fmt.Sprintf("target definition %s@%s is not registered; state %s was not validated", mc.EntityType, mc.To, current)
	case !target.HasState(current):
		warning = fmt.Sprintf("current state %s does not exist in %s@%s", current, mc.EntityType, mc.To)
	default:
		return true, nil
	}

	mc.AddWarning(warning)
	observability.FromContext(ctx, h.logger).WithFields(logrus.Fields{
		"migration_id": mc.MigrationID,
		"entity_type":  mc.EntityType,
		"entity_id":    mc.EntityID,
		"state":        current,
	}).Warn(warning)

	return true, nil
}

func (h *StateCompatibilityValidationHook) lookup(mc *MigrationContext) (*definition.Definition, bool) {
	if h.registry == nil {
		return nil, false
	}
	return h.registry.Lookup(mc.EntityType, mc.To)
}
