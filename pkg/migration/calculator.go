package migration

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/lineage/pkg/observability"
	"github.com/platinummonkey/lineage/pkg/version"
)

// DefaultMaxCandidatePaths caps path enumeration per calculation
const DefaultMaxCandidatePaths = 10000

// VersionSource lists the known versions of an entity type
type VersionSource interface {
	Versions(entityType string) []version.Version
}

// Option configures a Calculator
type Option func(*Calculator)

// WithPredicate sets the default edge predicate
func WithPredicate(p EdgePredicate) Option {
	return func(c *Calculator) {
		if p != nil {
			c.predicate = p
		}
	}
}

// WithEntityPredicate sets the edge predicate for one entity type
func WithEntityPredicate(entityType string, p EdgePredicate) Option {
	return func(c *Calculator) {
		if p != nil {
			c.entityPredicates[entityType] = p
		}
	}
}

// WithMaxCandidatePaths caps the number of enumerated paths
func WithMaxCandidatePaths(n int) Option {
	return func(c *Calculator) {
		if n > 0 {
			c.maxCandidates = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Calculator) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Calculator) {
		c.metrics = m
	}
}

// graphEntry is built exactly once per cache generation
type graphEntry struct {
	once  sync.Once
	graph *Graph
}

// Calculator computes migration paths over cached version graphs
type Calculator struct {
	source        VersionSource
	maxCandidates int
	logger        *logrus.Logger
	metrics       *observability.Metrics

	mu               sync.RWMutex
	predicate        EdgePredicate
	entityPredicates map[string]EdgePredicate

	graphs sync.Map // entity type -> *graphEntry
}

// NewCalculator creates a path calculator
func NewCalculator(source VersionSource, opts ...Option) *Calculator {
	c := &Calculator{
		source:           source,
		maxCandidates:    DefaultMaxCandidatePaths,
		predicate:        DefaultPredicate,
		entityPredicates: make(map[string]EdgePredicate),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = observability.OrDefault(c.logger)
	return c
}

// SetEntityPredicate replaces the predicate of one entity type and drops its
// cached graph. A nil predicate restores the default.
func (c *Calculator) SetEntityPredicate(entityType string, p EdgePredicate) {
	c.mu.Lock()
	if p == nil {
		delete(c.entityPredicates, entityType)
	} else {
		c.entityPredicates[entityType] = p
	}
	c.mu.Unlock()

	c.Invalidate(entityType)
}

func (c *Calculator) predicateFor(entityType string) EdgePredicate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.entityPredicates[entityType]; ok {
		return p
	}
	return c.predicate
}

// Graph returns the cached graph of an entity type, building it on first use.
// Concurrent first callers share a single build.
func (c *Calculator) Graph(entityType string) *Graph {
	v, loaded := c.graphs.LoadOrStore(entityType, &graphEntry{})
	entry := v.(*graphEntry)
	c.metrics.RecordCacheLookup("graph", loaded)

	entry.once.Do(func() {
		var versions []version.Version
		if c.source != nil {
			versions = c.source.Versions(entityType)
		}
		entry.graph = BuildGraph(entityType, versions, c.predicateFor(entityType))
		c.metrics.RecordGraphBuild(entityType)

		c.logger.WithFields(logrus.Fields{
			"entity_type": entityType,
			"nodes":       len(entry.graph.nodes),
			"edges":       entry.graph.EdgeCount(),
		}).Debug("built version graph")
	})

	return entry.graph
}

// Invalidate drops the cached graph of an entity type
func (c *Calculator) Invalidate(entityType string) {
	c.graphs.Delete(entityType)
}

// ClearCache drops every cached graph
func (c *Calculator) ClearCache() {
	c.graphs.Range(func(key, _ interface{}) bool {
		c.graphs.Delete(key)
		return true
	})
}

// CalculateOptimalPath returns the lowest-risk, then cheapest, then shortest
// path. Missing versions or routes produce a path with Valid false; an error
// is returned only for invalid arguments or a canceled context.
func (c *Calculator) CalculateOptimalPath(ctx context.Context, entityType string, from, to version.Version) (*Path, error) {
	paths, sentinel, err := c.candidates(ctx, entityType, from, to)
	if err != nil {
		return nil, err
	}
	if sentinel != nil {
		return sentinel, nil
	}

	best := paths[0]
	c.logger.WithFields(logrus.Fields{
		"entity_type": entityType,
		"from":        from.String(),
		"to":          to.String(),
		"candidates":  len(paths),
		"steps":       len(best.Steps),
		"cost":        best.TotalCost,
		"risk":        best.TotalRisk.String(),
	}).Debug("selected migration path")

	return best, nil
}

// CalculateAlternativePaths returns up to n paths under the same ordering as
// CalculateOptimalPath. When no path exists the single sentinel is returned.
func (c *Calculator) CalculateAlternativePaths(ctx context.Context, entityType string, from, to version.Version, n int) ([]*Path, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive", ErrInvalidArgument)
	}

	paths, sentinel, err := c.candidates(ctx, entityType, from, to)
	if err != nil {
		return nil, err
	}
	if sentinel != nil {
		return []*Path{sentinel}, nil
	}

	if len(paths) > n {
		paths = paths[:n]
	}
	return paths, nil
}

// candidates enumerates and ranks every path, or returns a sentinel
func (c *Calculator) candidates(ctx context.Context, entityType string, from, to version.Version) ([]*Path, *Path, error) {
	if entityType == "" {
		return nil, nil, fmt.Errorf("%w: entity type is required", ErrInvalidArgument)
	}

	ctx, span := observability.StartSpan(ctx, "migration.CalculatePath")
	defer span.End()

	paths, sentinel, err := c.enumerate(ctx, entityType, from, to)
	c.metrics.RecordPathCalculation(entityType, err == nil && sentinel == nil)
	return paths, sentinel, err
}

func (c *Calculator) enumerate(ctx context.Context, entityType string, from, to version.Version) ([]*Path, *Path, error) {
	if from.Equal(to) {
		return nil, noPath(entityType, from, to, "source and target versions are identical"), nil
	}

	graph := c.Graph(entityType)
	if _, ok := graph.Node(from); !ok {
		return nil, noPath(entityType, from, to, fmt.Sprintf("version %s of %s is not registered", from, entityType)), nil
	}
	if _, ok := graph.Node(to); !ok {
		return nil, noPath(entityType, from, to, fmt.Sprintf("version %s of %s is not registered", to, entityType)), nil
	}
	if to.Less(from) {
		return nil, noPath(entityType, from, to, "migration paths only move to newer versions"), nil
	}

	chains, truncated, err := graph.SimplePaths(ctx, from, to, c.maxCandidates)
	if err != nil {
		return nil, nil, err
	}
	if truncated {
		c.logger.WithFields(logrus.Fields{
			"entity_type": entityType,
			"from":        from.String(),
			"to":          to.String(),
			"limit":       c.maxCandidates,
		}).Warn("migration path enumeration hit the candidate limit")
	}
	if len(chains) == 0 {
		return nil, noPath(entityType, from, to, fmt.Sprintf("no allowed route from %s to %s", from, to)), nil
	}

	paths := make([]*Path, 0, len(chains))
	for _, chain := range chains {
		paths = append(paths, newPath(entityType, chain))
	}
	rankPaths(paths)

	return paths, nil, nil
}
