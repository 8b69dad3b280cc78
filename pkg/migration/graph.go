package migration

import (
	"context"

	"github.com/platinummonkey/lineage/pkg/version"
)

// Edge is an allowed direct hop
type Edge struct {
	From version.Version
	To   version.Version
	Cost int
}

// Graph is the directed version graph of one entity type. Edges always point
// from a lower version to a higher one. A Graph is immutable once built.
type Graph struct {
	entityType string
	nodes      []version.Version
	index      map[version.Version]version.Version // core -> registered version
	edges      map[version.Version][]Edge
	edgeCount  int
}

// BuildGraph creates a graph over versions with edges where predicate holds
func BuildGraph(entityType string, versions []version.Version, predicate EdgePredicate) *Graph {
	if predicate == nil {
		predicate = DefaultPredicate
	}

	nodes := append([]version.Version(nil), versions...)
	version.Sort(nodes)

	g := &Graph{
		entityType: entityType,
		index:      make(map[version.Version]version.Version, len(nodes)),
		edges:      make(map[version.Version][]Edge, len(nodes)),
	}
	for _, v := range nodes {
		if _, dup := g.index[v.Core()]; dup {
			continue
		}
		g.index[v.Core()] = v
		g.nodes = append(g.nodes, v)
	}

	for i, from := range g.nodes {
		for _, to := range g.nodes[i+1:] {
			if !predicate(from, to) {
				continue
			}
			g.edges[from.Core()] = append(g.edges[from.Core()], Edge{From: from, To: to, Cost: EdgeCost(from, to)})
			g.edgeCount++
		}
	}

	return g
}

// EntityType returns the entity type the graph was built for
func (g *Graph) EntityType() string {
	return g.entityType
}

// Nodes returns the versions in ascending order
func (g *Graph) Nodes() []version.Version {
	return append([]version.Version(nil), g.nodes...)
}

// Node returns the registered version matching v's numeric triple
func (g *Graph) Node(v version.Version) (version.Version, bool) {
	n, ok := g.index[v.Core()]
	return n, ok
}

// Edges returns the hops leaving a version, ordered by target version
func (g *Graph) Edges(from version.Version) []Edge {
	return append([]Edge(nil), g.edges[from.Core()]...)
}

// HasEdge reports whether a direct hop exists
func (g *Graph) HasEdge(from, to version.Version) bool {
	for _, e := range g.edges[from.Core()] {
		if e.To.Equal(to) {
			return true
		}
	}
	return false
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return g.edgeCount
}

// SimplePaths enumerates simple paths from one version to another by
// depth-first search, stopping after limit paths. A non-positive limit means
// no limit. truncated reports whether the limit stopped the search.
func (g *Graph) SimplePaths(ctx context.Context, from, to version.Version, limit int) (paths [][]Edge, truncated bool, err error) {
	start, ok := g.Node(from)
	if !ok {
		return nil, false, nil
	}
	target, ok := g.Node(to)
	if !ok {
		return nil, false, nil
	}

	visited := make(map[version.Version]bool)
	var stack []Edge

	var visit func(version.Version) bool
	visit = func(v version.Version) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		if v.Equal(target) {
			paths = append(paths, append([]Edge(nil), stack...))
			if limit > 0 && len(paths) >= limit {
				truncated = true
				return false
			}
			return true
		}

		visited[v.Core()] = true
		defer func() { visited[v.Core()] = false }()

		for _, e := range g.edges[v.Core()] {
			if visited[e.To.Core()] {
				continue
			}
			stack = append(stack, e)
			cont := visit(e.To)
			stack = stack[:len(stack)-1]
			if !cont {
				return false
			}
		}
		return true
	}

	if start.Equal(target) {
		return nil, false, nil
	}
	visit(start)
	if err != nil {
		return nil, false, err
	}
	return paths, truncated, nil
}
