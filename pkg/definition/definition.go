package definition

import (
	"sort"

	"github.com/platinummonkey/lineage/pkg/version"
)

// Definition is one version of a state-transition definition as published by
// the hosting runtime
type Definition struct {
	EntityType    string            `yaml:"entity_type" json:"entity_type"`
	Version       version.Version   `yaml:"version" json:"version"`
	Description   string            `yaml:"description,omitempty" json:"description,omitempty"`
	InitialState  string            `yaml:"initial_state" json:"initial_state"`
	States        []string          `yaml:"states" json:"states"`
	Triggers      []string          `yaml:"triggers" json:"triggers"`
	Transitions   []Transition      `yaml:"transitions" json:"transitions"`
	DataFormat    string            `yaml:"data_format,omitempty" json:"data_format,omitempty"`
	SchemaVersion string            `yaml:"schema_version,omitempty" json:"schema_version,omitempty"`
	DataFields    []DataField       `yaml:"data_fields,omitempty" json:"data_fields,omitempty"`
	Metadata      map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Transition moves an entity from one state to another when a trigger fires
// and its guard (if any) permits it
type Transition struct {
	From    string `yaml:"from" json:"from"`
	Trigger string `yaml:"trigger" json:"trigger"`
	To      string `yaml:"to" json:"to"`
	Guard   string `yaml:"guard,omitempty" json:"guard,omitempty"`
}

// DataField describes one field of the entity's persisted state data
type DataField struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type" json:"type"`
	Required bool   `yaml:"required,omitempty" json:"required,omitempty"`
	Default  string `yaml:"default,omitempty" json:"default,omitempty"`
}

// HasState reports whether the definition declares the state
func (d *Definition) HasState(state string) bool {
	for _, s := range d.States {
		if s == state {
			return true
		}
	}
	return false
}

// HasTrigger reports whether the definition declares the trigger
func (d *Definition) HasTrigger(trigger string) bool {
	for _, t := range d.Triggers {
		if t == trigger {
			return true
		}
	}
	return false
}

// StateSet returns the declared states as a set
func (d *Definition) StateSet() map[string]bool {
	set := make(map[string]bool, len(d.States))
	for _, s := range d.States {
		set[s] = true
	}
	return set
}

// TriggerSet returns the declared triggers as a set
func (d *Definition) TriggerSet() map[string]bool {
	set := make(map[string]bool, len(d.Triggers))
	for _, t := range d.Triggers {
		set[t] = true
	}
	return set
}

// TransitionsFrom returns the transitions leaving a state
func (d *Definition) TransitionsFrom(state string) []Transition {
	var out []Transition
	for _, t := range d.Transitions {
		if t.From == state {
			out = append(out, t)
		}
	}
	return out
}

// Transition looks up the transition for a (state, trigger) pair
func (d *Definition) Transition(state, trigger string) (Transition, bool) {
	for _, t := range d.Transitions {
		if t.From == state && t.Trigger == trigger {
			return t, true
		}
	}
	return Transition{}, false
}

// Field looks up a data field by name
func (d *Definition) Field(name string) (DataField, bool) {
	for _, f := range d.DataFields {
		if f.Name == name {
			return f, true
		}
	}
	return DataField{}, false
}

// Size is a rough measure of definition complexity
func (d *Definition) Size() int {
	return len(d.States) + len(d.Triggers) + len(d.Transitions) + len(d.DataFields)
}

// Validate checks the definition is internally consistent
func (d *Definition) Validate() error {
	if d.EntityType == "" {
		return &ValidationError{Field: "entity_type", Message: "must not be empty"}
	}
	if d.Version.IsZero() {
		return &ValidationError{Field: "version", Message: "must be set"}
	}

	states := d.StateSet()
	if d.InitialState != "" && !states[d.InitialState] {
		return &ValidationError{Field: "initial_state", Message: "unknown state " + d.InitialState}
	}

	triggers := d.TriggerSet()
	for _, t := range d.Transitions {
		if !states[t.From] {
			return &ValidationError{Field: "transitions", Message: "unknown source state " + t.From}
		}
		if !states[t.To] {
			return &ValidationError{Field: "transitions", Message: "unknown target state " + t.To}
		}
		if !triggers[t.Trigger] {
			return &ValidationError{Field: "transitions", Message: "unknown trigger " + t.Trigger}
		}
	}

	return nil
}

// Clone returns a deep copy of the definition
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	c := *d
	c.States = append([]string(nil), d.States...)
	c.Triggers = append([]string(nil), d.Triggers...)
	c.Transitions = append([]Transition(nil), d.Transitions...)
	c.DataFields = append([]DataField(nil), d.DataFields...)
	if d.Metadata != nil {
		c.Metadata = make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// ValidationError describes an invalid definition
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid definition: " + e.Field + ": " + e.Message
}

// sortedKeys returns the keys of a set in lexical order
func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Diff lists names present in a but not in b, sorted
func Diff(a, b map[string]bool) []string {
	out := make(map[string]bool)
	for k := range a {
		if !b[k] {
			out[k] = true
		}
	}
	return sortedKeys(out)
}
