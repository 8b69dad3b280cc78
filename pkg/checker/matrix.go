package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/lineage/pkg/async"
	"github.com/platinummonkey/lineage/pkg/version"
)

// MatrixEntry is the check of one ordered version pair
type MatrixEntry struct {
	From   version.Version
	To     version.Version
	Result *CheckResult
}

// Matrix holds a check for every ordered pair (from < to) of the registered
// versions of an entity type
type Matrix struct {
	EntityType string
	Versions   []version.Version
	Entries    []MatrixEntry
	Duration   time.Duration

	index map[[2]version.Version]int
}

// TotalPairs returns the number of checked pairs
func (m *Matrix) TotalPairs() int {
	return len(m.Entries)
}

// CompatiblePairs returns the number of pairs that were checked successfully
// and found compatible
func (m *Matrix) CompatiblePairs() int {
	n := 0
	for _, e := range m.Entries {
		if e.Result.Success && e.Result.IsCompatible {
			n++
		}
	}
	return n
}

// CompatiblePercentage returns the share of compatible pairs in percent. A
// matrix without pairs is fully compatible.
func (m *Matrix) CompatiblePercentage() float64 {
	total := m.TotalPairs()
	if total == 0 {
		return 100
	}
	return float64(m.CompatiblePairs()) * 100 / float64(total)
}

// Lookup returns the check of one pair
func (m *Matrix) Lookup(from, to version.Version) (*CheckResult, bool) {
	i, ok := m.index[[2]version.Version{from.Core(), to.Core()}]
	if !ok {
		return nil, false
	}
	return m.Entries[i].Result, true
}

// AnalyzeCompatibilityMatrix checks every ordered pair of registered versions
// with bounded concurrency. The number of checks grows quadratically with the
// number of versions.
func (c *Checker) AnalyzeCompatibilityMatrix(ctx context.Context, entityType string) (*Matrix, error) {
	if entityType == "" {
		return nil, fmt.Errorf("%w: entity type is required", ErrInvalidArgument)
	}
	start := time.Now()

	versions := c.registry.Versions(entityType)
	var pairs []MatrixEntry
	for i := range versions {
		for j := i + 1; j < len(versions); j++ {
			if versions[i].Less(versions[j]) {
				pairs = append(pairs, MatrixEntry{From: versions[i], To: versions[j]})
			}
		}
	}

	results, errs := async.Map(ctx, pairs, c.workers, "compatibility matrix",
		func(ctx context.Context, pair MatrixEntry) (*CheckResult, error) {
			return c.CheckCompatibility(ctx, entityType, pair.From, pair.To)
		})

	m := &Matrix{
		EntityType: entityType,
		Versions:   versions,
		Entries:    pairs,
		index:      make(map[[2]version.Version]int, len(pairs)),
	}
	for i := range m.Entries {
		result := results[i]
		if errs[i] != nil || result == nil {
			result = newResult(entityType, pairs[i].From, pairs[i].To).
				fail(fmt.Sprintf("compatibility check failed: %v", errs[i]), errs[i])
		}
		m.Entries[i].Result = result
		m.index[[2]version.Version{pairs[i].From.Core(), pairs[i].To.Core()}] = i
	}
	m.Duration = time.Since(start)

	return m, nil
}
