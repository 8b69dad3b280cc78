package compatibility

import (
	"sync"

	"github.com/platinummonkey/lineage/pkg/definition"
	"github.com/platinummonkey/lineage/pkg/version"
)

// Context is everything a rule may inspect about a (from, to) comparison.
// Rules read it concurrently and must not modify it.
type Context struct {
	EntityType     string
	From           version.Version
	To             version.Version
	Complexity     Complexity
	FromDefinition *definition.Definition
	ToDefinition   *definition.Definition
	Predictor      definition.Predictor

	mu         sync.RWMutex
	properties map[string]interface{}
}

// NewContext creates a context for comparing two versions of an entity type
func NewContext(entityType string, from, to version.Version) *Context {
	return &Context{
		EntityType: entityType,
		From:       from,
		To:         to,
		properties: make(map[string]interface{}),
	}
}

// WithDefinitions attaches both definitions and derives the complexity hint
func (c *Context) WithDefinitions(from, to *definition.Definition) *Context {
	c.FromDefinition = from
	c.ToDefinition = to
	c.Complexity = EstimateComplexity(from, to)
	return c
}

// HasDefinitions reports whether both definitions are available
func (c *Context) HasDefinitions() bool {
	return c.FromDefinition != nil && c.ToDefinition != nil
}

// TransitionPredictor returns the configured predictor or the table default
func (c *Context) TransitionPredictor() definition.Predictor {
	if c.Predictor != nil {
		return c.Predictor
	}
	return definition.TablePredictor{}
}

// Set stores a property. Call before evaluation starts.
func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.properties == nil {
		c.properties = make(map[string]interface{})
	}
	c.properties[key] = value
}

// Get retrieves a property
func (c *Context) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.properties[key]
	return v, ok
}

// GetString retrieves a string property
func (c *Context) GetString(key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)
	return s
}

// GetBool retrieves a boolean property
func (c *Context) GetBool(key string) bool {
	v, _ := c.Get(key)
	b, _ := v.(bool)
	return b
}

// EstimateComplexity derives a complexity hint from definition sizes
func EstimateComplexity(from, to *definition.Definition) Complexity {
	size := 0
	for _, d := range []*definition.Definition{from, to} {
		if d != nil && d.Size() > size {
			size = d.Size()
		}
	}

	switch {
	case size > 40:
		return ComplexityComplex
	case size > 12:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}
