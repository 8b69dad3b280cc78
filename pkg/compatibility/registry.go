package compatibility

import (
	"fmt"
	"sync"
)

// Registry manages the registered compatibility rules. Rules are returned in
// registration order so aggregated results are deterministic.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
	order []string
}

// NewRegistry creates an empty rule registry
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[string]Rule),
	}
}

// Register adds a rule to the registry
func (r *Registry) Register(rule Rule) error {
	if rule == nil || rule.Name() == "" {
		return ErrInvalidRule
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[rule.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, rule.Name())
	}
	r.rules[rule.Name()] = rule
	r.order = append(r.order, rule.Name())
	return nil
}

// Replace adds a rule or swaps a same-named rule in place
func (r *Registry) Replace(rule Rule) error {
	if rule == nil || rule.Name() == "" {
		return ErrInvalidRule
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[rule.Name()]; !exists {
		r.order = append(r.order, rule.Name())
	}
	r.rules[rule.Name()] = rule
	return nil
}

// Unregister removes a rule by name
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[name]; !exists {
		return false
	}
	delete(r.rules, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get retrieves a rule by name
func (r *Registry) Get(name string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[name]
	return rule, ok
}

// All returns all registered rules in registration order
func (r *Registry) All() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]Rule, 0, len(r.order))
	for _, name := range r.order {
		rules = append(rules, r.rules[name])
	}
	return rules
}

// ByCategory returns rules in a specific category
func (r *Registry) ByCategory(category RuleCategory) []Rule {
	rules := make([]Rule, 0)
	for _, rule := range r.All() {
		if rule.Category() == category {
			rules = append(rules, rule)
		}
	}
	return rules
}

// Len returns the number of registered rules
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
