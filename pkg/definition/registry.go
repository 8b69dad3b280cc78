package definition

import (
	"errors"
	"fmt"
	"sync"

	"github.com/platinummonkey/lineage/pkg/version"
)

var (
	// ErrNotFound is returned when a definition is not registered
	ErrNotFound = errors.New("definition not found")

	// ErrAlreadyRegistered is returned when a version is registered twice
	ErrAlreadyRegistered = errors.New("definition already registered")
)

// Registry maps (entity type, version) to a transition definition. It is
// implemented by the hosting runtime.
type Registry interface {
	// Versions returns the known versions of an entity type, ascending
	Versions(entityType string) []version.Version

	// Lookup returns the definition of one version
	Lookup(entityType string, v version.Version) (*Definition, bool)
}

// ChangeFunc is notified when the version set of an entity type changes
type ChangeFunc func(entityType string)

// Notifier is implemented by registries that publish version-set changes
type Notifier interface {
	Subscribe(fn ChangeFunc)
}

// MemoryRegistry is an in-process Registry
type MemoryRegistry struct {
	mu          sync.RWMutex
	definitions map[string]map[version.Version]*Definition
	subscribers []ChangeFunc
}

// NewMemoryRegistry creates an empty registry
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		definitions: make(map[string]map[version.Version]*Definition),
	}
}

// Register adds a definition. Registering an existing (entity type, version)
// fails unless Replace is used.
func (r *MemoryRegistry) Register(def *Definition) error {
	return r.put(def, false)
}

// Replace adds or overwrites a definition
func (r *MemoryRegistry) Replace(def *Definition) error {
	return r.put(def, true)
}

func (r *MemoryRegistry) put(def *Definition, replace bool) error {
	if def == nil {
		return fmt.Errorf("definition cannot be nil")
	}
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	byVersion, ok := r.definitions[def.EntityType]
	if !ok {
		byVersion = make(map[version.Version]*Definition)
		r.definitions[def.EntityType] = byVersion
	}
	key := def.Version.Core()
	if _, exists := byVersion[key]; exists && !replace {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s@%s", ErrAlreadyRegistered, def.EntityType, def.Version)
	}
	byVersion[key] = def.Clone()
	subscribers := append([]ChangeFunc(nil), r.subscribers...)
	r.mu.Unlock()

	for _, fn := range subscribers {
		fn(def.EntityType)
	}
	return nil
}

// Remove deletes a definition
func (r *MemoryRegistry) Remove(entityType string, v version.Version) error {
	r.mu.Lock()
	byVersion, ok := r.definitions[entityType]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s@%s", ErrNotFound, entityType, v)
	}
	if _, ok := byVersion[v.Core()]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s@%s", ErrNotFound, entityType, v)
	}
	delete(byVersion, v.Core())
	subscribers := append([]ChangeFunc(nil), r.subscribers...)
	r.mu.Unlock()

	for _, fn := range subscribers {
		fn(entityType)
	}
	return nil
}

// Versions implements Registry
func (r *MemoryRegistry) Versions(entityType string) []version.Version {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byVersion := r.definitions[entityType]
	out := make([]version.Version, 0, len(byVersion))
	for _, def := range byVersion {
		out = append(out, def.Version)
	}
	version.Sort(out)
	return out
}

// Lookup implements Registry. Versions are matched on their numeric triple.
func (r *MemoryRegistry) Lookup(entityType string, v version.Version) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[entityType][v.Core()]
	return def, ok
}

// EntityTypes lists all registered entity types
func (r *MemoryRegistry) EntityTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]bool, len(r.definitions))
	for et := range r.definitions {
		set[et] = true
	}
	return sortedKeys(set)
}

// Subscribe implements Notifier
func (r *MemoryRegistry) Subscribe(fn ChangeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}
