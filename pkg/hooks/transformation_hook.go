package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/platinummonkey/lineage/pkg/version"
)

// TransformationHookPriority runs transformations after the backup and before
// state validation
const TransformationHookPriority = 100

// TransformFunc rewrites the state bag of one instance in place
type TransformFunc func(ctx context.Context, state map[string]interface{}) error

type versionPair struct {
	from version.Version
	to   version.Version
}

// StateTransformationHook dispatches to a transform registered for the exact
// (from, to) pair of a migration. A failing transform vetoes the migration,
// which restores the backed up state.
type StateTransformationHook struct {
	BaseHook

	mu         sync.RWMutex
	transforms map[versionPair]TransformFunc
}

// NewStateTransformationHook creates an empty transformation hook
func NewStateTransformationHook() *StateTransformationHook {
	return &StateTransformationHook{
		BaseHook:   BaseHook{HookName: "state-transformation", HookPriority: TransformationHookPriority},
		transforms: make(map[versionPair]TransformFunc),
	}
}

// Register sets the transform for a version pair
func (h *StateTransformationHook) Register(from, to version.Version, fn TransformFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transforms[versionPair{from: from, to: to}] = fn
}

// Has reports whether a transform exists for a version pair
func (h *StateTransformationHook) Has(from, to version.Version) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.transforms[versionPair{from: from, to: to}]
	return ok
}

func (h *StateTransformationHook) Before(ctx context.Context, mc *MigrationContext) (bool, error) {
	h.mu.RLock()
	fn, ok := h.transforms[versionPair{from: mc.From, to: mc.To}]
	h.mu.RUnlock()

	if !ok {
		return true, nil
	}
	if mc.State == nil {
		mc.State = make(map[string]interface{})
	}
	if err := fn(ctx, mc.State); err != nil {
		return false, fmt.Errorf("transform %s -> %s: %w", mc.From, mc.To, err)
	}
	return true, nil
}
