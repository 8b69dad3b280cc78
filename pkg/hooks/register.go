package hooks

import (
	"github.com/platinummonkey/lineage/pkg/audit"
	"github.com/platinummonkey/lineage/pkg/definition"
)

// RegisterDefaultHooks registers the audit, backup, validation and
// transformation hooks. The returned transformation hook accepts transforms
// for specific version pairs.
func RegisterDefaultHooks(pipeline *Pipeline, sink audit.Logger, registry definition.Registry) (*StateTransformationHook, error) {
	transform := NewStateTransformationHook()

	for _, hook := range []Hook{
		NewAuditLoggingHook(sink, pipeline.logger),
		NewStateBackupHook(),
		NewStateCompatibilityValidationHook(registry, "", pipeline.logger),
		transform,
	} {
		if err := pipeline.RegisterHook(hook); err != nil {
			return nil, err
		}
	}
	return transform, nil
}
