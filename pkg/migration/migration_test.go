package migration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/lineage/pkg/compatibility"
	"github.com/platinummonkey/lineage/pkg/observability"
	"github.com/platinummonkey/lineage/pkg/version"
)

// staticSource serves a fixed version list and counts lookups
type staticSource struct {
	versions map[string][]version.Version
	calls    atomic.Int32
}

func newSource(entityType string, versions ...string) *staticSource {
	vs, err := version.ParseAll(versions)
	if err != nil {
		panic(err)
	}
	return &staticSource{versions: map[string][]version.Version{entityType: vs}}
}

func (s *staticSource) Versions(entityType string) []version.Version {
	s.calls.Add(1)
	return s.versions[entityType]
}

func v(s string) version.Version { return version.MustParse(s) }

func newTestCalculator(source VersionSource, opts ...Option) *Calculator {
	opts = append([]Option{WithLogger(observability.DiscardLogger())}, opts...)
	return NewCalculator(source, opts...)
}

func assertContiguous(t *testing.T, p *Path) {
	t.Helper()
	require.True(t, p.Valid, p.Reason)
	require.NotEmpty(t, p.Steps)
	assert.True(t, p.Steps[0].From.Equal(p.From), "first step starts at path origin")
	assert.True(t, p.Steps[len(p.Steps)-1].To.Equal(p.To), "last step ends at path target")
	for i := 0; i+1 < len(p.Steps); i++ {
		assert.True(t, p.Steps[i].To.Equal(p.Steps[i+1].From), "step %d is contiguous", i)
	}
}

func TestEdgeCost(t *testing.T) {
	tests := []struct {
		from, to string
		want     int
	}{
		{"1.0.0", "1.1.0", 10},
		{"1.1.0", "2.0.0", 100},
		{"1.0.0", "2.0.0", 100},
		{"1.0.0", "1.0.3", 3},
		{"1.0.0", "1.2.0", 20},
		{"1.0.0", "1.0.6", 6 + 30},
		{"1.0.0", "2.3.4", 100 + 30 + 4 + 40},
		{"1.0.0", "3.0.0", 200},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, EdgeCost(v(tt.from), v(tt.to)))
		})
	}
}

func TestDefaultPredicate(t *testing.T) {
	assert.True(t, DefaultPredicate(v("1.0.0"), v("1.5.0")))
	assert.True(t, DefaultPredicate(v("1.0.0"), v("2.3.0")))
	assert.False(t, DefaultPredicate(v("1.0.0"), v("3.0.0")))
}

func TestMatrix(t *testing.T) {
	m, err := ParseMatrix(map[string][]string{
		"1.0.0": {"1.1.0"},
		"1.1.0": {"2.0.0"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	pred := MatrixPredicate(m)
	assert.True(t, pred(v("1.0.0"), v("1.1.0")))
	assert.True(t, pred(v("1.1.0-rc.1"), v("2.0.0")), "matrix matches on the numeric triple")
	assert.False(t, pred(v("1.0.0"), v("2.0.0")))

	_, err = ParseMatrix(map[string][]string{"one": {"1.0.0"}})
	assert.ErrorIs(t, err, version.ErrInvalidFormat)

	assert.False(t, MatrixPredicate(nil)(v("1.0.0"), v("1.1.0")))
}

func TestBuildGraph(t *testing.T) {
	g := BuildGraph("Order", []version.Version{v("2.0.0"), v("1.0.0"), v("3.0.0"), v("1.1.0")}, nil)

	assert.Equal(t, []version.Version{v("1.0.0"), v("1.1.0"), v("2.0.0"), v("3.0.0")}, g.Nodes())
	assert.True(t, g.HasEdge(v("1.0.0"), v("1.1.0")))
	assert.True(t, g.HasEdge(v("1.0.0"), v("2.0.0")))
	assert.False(t, g.HasEdge(v("1.0.0"), v("3.0.0")))
	assert.False(t, g.HasEdge(v("1.1.0"), v("1.0.0")), "edges only point forward")
	assert.Equal(t, 4, g.EdgeCount())

	edges := g.Edges(v("1.1.0"))
	require.Len(t, edges, 1)
	assert.Equal(t, 100, edges[0].Cost)
}

func TestCalculateOptimalPath_TwoHopWhenDirectForbidden(t *testing.T) {
	source := newSource("Order", "1.0.0", "1.1.0", "2.0.0")
	m := NewMatrix()
	m.Allow(v("1.0.0"), v("1.1.0"))
	m.Allow(v("1.1.0"), v("2.0.0"))
	calc := newTestCalculator(source, WithPredicate(MatrixPredicate(m)))

	path, err := calc.CalculateOptimalPath(context.Background(), "Order", v("1.0.0"), v("2.0.0"))
	require.NoError(t, err)
	assertContiguous(t, path)

	require.Len(t, path.Steps, 2)
	assert.Equal(t, 10, path.Steps[0].Cost)
	assert.Equal(t, 100, path.Steps[1].Cost)
	assert.Equal(t, 110, path.TotalCost)
	assert.False(t, path.IsDirect)
	assert.Equal(t, RiskHigh, path.TotalRisk)
	assert.Equal(t, StepMinorUpgrade, path.Steps[0].Type)
	assert.Equal(t, StepMajorUpgrade, path.Steps[1].Type)
	assert.Equal(t, []version.Version{v("1.0.0"), v("1.1.0"), v("2.0.0")}, path.Versions())
}

func TestCalculateOptimalPath_PrefersLowerRiskOverCost(t *testing.T) {
	// The direct hop skips three minors (Medium risk, cost 30); chains of
	// smaller hops are Low risk at the same total cost
	source := newSource("Order", "1.0.0", "1.1.0", "1.2.0", "1.3.0")
	calc := newTestCalculator(source)

	path, err := calc.CalculateOptimalPath(context.Background(), "Order", v("1.0.0"), v("1.3.0"))
	require.NoError(t, err)
	assertContiguous(t, path)

	assert.Equal(t, RiskLow, path.TotalRisk)
	for _, step := range path.Steps {
		assert.LessOrEqual(t, step.To.Minor-step.From.Minor, 2)
	}
}

func TestCalculateOptimalPath_StepCountBreaksCostTies(t *testing.T) {
	source := newSource("Order", "1.0.0", "1.0.1", "1.0.2")
	calc := newTestCalculator(source)

	path, err := calc.CalculateOptimalPath(context.Background(), "Order", v("1.0.0"), v("1.0.2"))
	require.NoError(t, err)
	assertContiguous(t, path)

	// Direct: cost 2, one step. Chain: cost 2, two steps. Step count decides.
	assert.True(t, path.IsDirect)
	assert.Equal(t, StepPatchUpgrade, path.Steps[0].Type)
}

func TestCalculateOptimalPath_CostBreaksRiskTies(t *testing.T) {
	source := newSource("Order", "1.0.0", "1.0.3", "1.0.6")
	calc := newTestCalculator(source)

	path, err := calc.CalculateOptimalPath(context.Background(), "Order", v("1.0.0"), v("1.0.6"))
	require.NoError(t, err)
	assertContiguous(t, path)

	// The direct hop pays the oversized-hop penalty (36); two hops cost 6
	assert.Len(t, path.Steps, 2)
	assert.Equal(t, 6, path.TotalCost)
}

func TestCalculateOptimalPath_Sentinels(t *testing.T) {
	source := newSource("Order", "1.0.0", "1.1.0", "3.0.0")
	calc := newTestCalculator(source)
	ctx := context.Background()

	tests := []struct {
		name     string
		from, to string
	}{
		{"identical", "1.0.0", "1.0.0"},
		{"unknown source", "0.9.0", "1.1.0"},
		{"unknown target", "1.0.0", "1.2.0"},
		{"downgrade", "1.1.0", "1.0.0"},
		{"no route", "1.0.0", "3.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := calc.CalculateOptimalPath(ctx, "Order", v(tt.from), v(tt.to))
			require.NoError(t, err)
			assert.False(t, path.Valid)
			assert.NotEmpty(t, path.Reason)
			assert.ErrorIs(t, path.Err, ErrPathNotFound)
			assert.Empty(t, path.Steps)
		})
	}
}

func TestCalculateOptimalPath_InvalidArgument(t *testing.T) {
	calc := newTestCalculator(newSource("Order", "1.0.0"))

	_, err := calc.CalculateOptimalPath(context.Background(), "", v("1.0.0"), v("1.1.0"))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = calc.CalculateAlternativePaths(context.Background(), "Order", v("1.0.0"), v("1.1.0"), 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCalculateAlternativePaths(t *testing.T) {
	source := newSource("Order", "1.0.0", "1.1.0", "1.2.0", "2.0.0")
	calc := newTestCalculator(source)

	paths, err := calc.CalculateAlternativePaths(context.Background(), "Order", v("1.0.0"), v("2.0.0"), 3)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	for i, p := range paths {
		assertContiguous(t, p)
		if i > 0 {
			assert.False(t, lessPath(p, paths[i-1]), "paths are ranked best first")
		}
	}

	optimal, err := calc.CalculateOptimalPath(context.Background(), "Order", v("1.0.0"), v("2.0.0"))
	require.NoError(t, err)
	assert.Equal(t, optimal.Versions(), paths[0].Versions())

	none, err := calc.CalculateAlternativePaths(context.Background(), "Order", v("2.0.0"), v("2.0.0"), 3)
	require.NoError(t, err)
	require.Len(t, none, 1)
	assert.False(t, none[0].Valid)
}

func TestCalculator_MaxCandidatePaths(t *testing.T) {
	versions := []string{"1.0.0"}
	for i := 1; i <= 12; i++ {
		versions = append(versions, version.New(1, i, 0).String())
	}
	source := newSource("Order", versions...)
	calc := newTestCalculator(source, WithMaxCandidatePaths(50))

	paths, err := calc.CalculateAlternativePaths(context.Background(), "Order", v("1.0.0"), v("1.12.0"), 1000)
	require.NoError(t, err)
	assert.Len(t, paths, 50)
}

func TestCalculator_CanceledContext(t *testing.T) {
	calc := newTestCalculator(newSource("Order", "1.0.0", "1.1.0"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := calc.CalculateOptimalPath(ctx, "Order", v("1.0.0"), v("1.1.0"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStepClassification(t *testing.T) {
	major := classifyStep("Order", Edge{From: v("1.4.0"), To: v("2.0.0"), Cost: 100})
	assert.Equal(t, StepMajorUpgrade, major.Type)
	assert.Equal(t, RiskHigh, major.Risk)
	assert.Equal(t, compatibility.EffortHigh, major.Effort)
	assert.NotEmpty(t, major.RequiredActions)
	assert.NotEmpty(t, major.ValidationChecklist)
	assert.Equal(t, majorStepDuration, major.EstimatedDuration)

	bigMinor := classifyStep("Order", Edge{From: v("1.0.0"), To: v("1.3.0")})
	assert.Equal(t, RiskMedium, bigMinor.Risk)
	assert.Equal(t, 3*minorStepDuration, bigMinor.EstimatedDuration)

	minor := classifyStep("Order", Edge{From: v("1.0.0"), To: v("1.2.0")})
	assert.Equal(t, RiskLow, minor.Risk)

	patch := classifyStep("Order", Edge{From: v("1.0.0"), To: v("1.0.2")})
	assert.Equal(t, StepPatchUpgrade, patch.Type)
	assert.Equal(t, compatibility.EffortLow, patch.Effort)
	assert.Equal(t, 2*patchStepDuration, patch.EstimatedDuration)
}

func TestGraphCache(t *testing.T) {
	source := newSource("Order", "1.0.0", "1.1.0")
	calc := newTestCalculator(source)

	var wg sync.WaitGroup
	graphs := make([]*Graph, 16)
	for i := range graphs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			graphs[i] = calc.Graph("Order")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), source.calls.Load(), "concurrent first access builds once")
	for _, g := range graphs {
		assert.Same(t, graphs[0], g)
	}

	source.versions["Order"] = append(source.versions["Order"], v("1.2.0"))
	assert.Len(t, calc.Graph("Order").Nodes(), 2, "cached graph is reused until invalidated")

	calc.Invalidate("Order")
	assert.Len(t, calc.Graph("Order").Nodes(), 3)
	assert.Equal(t, int32(2), source.calls.Load())

	calc.ClearCache()
	calc.Graph("Order")
	assert.Equal(t, int32(3), source.calls.Load())
}

func TestSetEntityPredicate(t *testing.T) {
	source := newSource("Order", "1.0.0", "1.1.0", "2.0.0")
	calc := newTestCalculator(source)
	ctx := context.Background()

	direct, err := calc.CalculateOptimalPath(ctx, "Order", v("1.0.0"), v("2.0.0"))
	require.NoError(t, err)
	assert.True(t, direct.IsDirect)

	m := NewMatrix()
	m.Allow(v("1.0.0"), v("1.1.0"))
	calc.SetEntityPredicate("Order", MatrixPredicate(m))

	blocked, err := calc.CalculateOptimalPath(ctx, "Order", v("1.0.0"), v("2.0.0"))
	require.NoError(t, err)
	assert.False(t, blocked.Valid)

	calc.SetEntityPredicate("Order", nil)
	restored, err := calc.CalculateOptimalPath(ctx, "Order", v("1.0.0"), v("2.0.0"))
	require.NoError(t, err)
	assert.True(t, restored.Valid)
}
