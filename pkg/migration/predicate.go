package migration

import (
	"fmt"

	"github.com/platinummonkey/lineage/pkg/version"
)

// EdgePredicate decides whether a direct hop from one version to a later one
// is allowed
type EdgePredicate func(from, to version.Version) bool

// DefaultPredicate allows hops within a major version and across exactly one
// major increment
func DefaultPredicate(from, to version.Version) bool {
	return to.Major == from.Major || to.Major == from.Major+1
}

// Matrix is an explicit allow-list of direct hops
type Matrix struct {
	allowed map[version.Version]map[version.Version]bool
}

// NewMatrix creates an empty matrix
func NewMatrix() *Matrix {
	return &Matrix{allowed: make(map[version.Version]map[version.Version]bool)}
}

// ParseMatrix builds a matrix from a map of source version to target versions
func ParseMatrix(edges map[string][]string) (*Matrix, error) {
	m := NewMatrix()
	for fromStr, targets := range edges {
		from, err := version.Parse(fromStr)
		if err != nil {
			return nil, fmt.Errorf("matrix source %q: %w", fromStr, err)
		}
		for _, toStr := range targets {
			to, err := version.Parse(toStr)
			if err != nil {
				return nil, fmt.Errorf("matrix target %q: %w", toStr, err)
			}
			m.Allow(from, to)
		}
	}
	return m, nil
}

// Allow permits a direct hop
func (m *Matrix) Allow(from, to version.Version) {
	targets, ok := m.allowed[from.Core()]
	if !ok {
		targets = make(map[version.Version]bool)
		m.allowed[from.Core()] = targets
	}
	targets[to.Core()] = true
}

// Allowed reports whether a direct hop is permitted
func (m *Matrix) Allowed(from, to version.Version) bool {
	return m.allowed[from.Core()][to.Core()]
}

// Len returns the number of allowed hops
func (m *Matrix) Len() int {
	n := 0
	for _, targets := range m.allowed {
		n += len(targets)
	}
	return n
}

// MatrixPredicate adapts a matrix into an EdgePredicate
func MatrixPredicate(m *Matrix) EdgePredicate {
	return func(from, to version.Version) bool {
		return m != nil && m.Allowed(from, to)
	}
}
