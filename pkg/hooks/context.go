package hooks

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/lineage/pkg/version"
)

// Strategy describes how a migration is rolled out to an instance
type Strategy string

const (
	// StrategyImmediate migrates the instance as soon as it is requested
	StrategyImmediate Strategy = "Immediate"

	// StrategyOnActivation migrates the instance the next time it activates
	StrategyOnActivation Strategy = "OnActivation"
)

// MigrationContext carries one instance through a migration. State is the
// live state bag of the instance; hooks read and write it. Metadata is hook
// bookkeeping and is never persisted with the instance.
type MigrationContext struct {
	MigrationID string
	EntityID    string
	EntityType  string
	From        version.Version
	To          version.Version
	Strategy    Strategy

	State    map[string]interface{}
	Metadata map[string]interface{}

	// ExecutedHooks logs every hook phase run, as "name:phase"
	ExecutedHooks []string
	Warnings      []string

	// VetoedBy and FailureReason are set by the runner before rollback hooks run
	VetoedBy      string
	FailureReason string

	StartedAt time.Time

	// runMu keeps runs of the same context from interleaving
	runMu sync.Mutex
}

// NewMigrationContext creates a context with a fresh migration ID
func NewMigrationContext(entityType, entityID string, from, to version.Version, state map[string]interface{}) *MigrationContext {
	if state == nil {
		state = make(map[string]interface{})
	}
	return &MigrationContext{
		MigrationID: uuid.NewString(),
		EntityID:    entityID,
		EntityType:  entityType,
		From:        from,
		To:          to,
		Strategy:    StrategyImmediate,
		State:       state,
		Metadata:    make(map[string]interface{}),
	}
}

// AddWarning records a non-blocking observation
func (mc *MigrationContext) AddWarning(message string) {
	mc.Warnings = append(mc.Warnings, message)
}

func (mc *MigrationContext) recordHook(name string, phase Phase) {
	mc.ExecutedHooks = append(mc.ExecutedHooks, name+":"+string(phase))
}

func (mc *MigrationContext) metadata() map[string]interface{} {
	if mc.Metadata == nil {
		mc.Metadata = make(map[string]interface{})
	}
	return mc.Metadata
}
