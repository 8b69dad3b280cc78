package migration

import (
	"fmt"
	"sort"
	"time"

	"github.com/platinummonkey/lineage/pkg/compatibility"
	"github.com/platinummonkey/lineage/pkg/version"
)

// StepType classifies a hop by its most significant version change
type StepType string

const (
	StepPatchUpgrade StepType = "PatchUpgrade"
	StepMinorUpgrade StepType = "MinorUpgrade"
	StepMajorUpgrade StepType = "MajorUpgrade"
)

// Risk is the risk of a step or path. Higher is riskier.
type Risk int

const (
	RiskLow Risk = iota
	RiskMedium
	RiskHigh
)

func (r Risk) String() string {
	return []string{"Low", "Medium", "High"}[r]
}

const (
	majorStepDuration = 4 * time.Hour
	minorStepDuration = time.Hour
	patchStepDuration = 15 * time.Minute

	// minorSkipRisk is the minor delta above which a hop is Medium risk
	minorSkipRisk = 2
)

// Step is one hop of a migration path
type Step struct {
	From                version.Version
	To                  version.Version
	Type                StepType
	Effort              compatibility.Effort
	Risk                Risk
	Cost                int
	RequiredActions     []string
	ValidationChecklist []string
	EstimatedDuration   time.Duration
}

// Path is an ordered chain of steps. Paths that could not be computed are
// returned with Valid false and a Reason; Err then wraps ErrPathNotFound.
type Path struct {
	EntityType        string
	From              version.Version
	To                version.Version
	Steps             []Step
	TotalCost         int
	TotalRisk         Risk
	IsDirect          bool
	EstimatedDuration time.Duration
	Valid             bool
	Reason            string
	Err               error
}

// MaxEffort returns the highest step effort
func (p *Path) MaxEffort() compatibility.Effort {
	effort := compatibility.EffortLow
	for _, s := range p.Steps {
		if s.Effort > effort {
			effort = s.Effort
		}
	}
	return effort
}

// Versions returns the versions visited, including both ends
func (p *Path) Versions() []version.Version {
	if len(p.Steps) == 0 {
		return nil
	}
	out := []version.Version{p.Steps[0].From}
	for _, s := range p.Steps {
		out = append(out, s.To)
	}
	return out
}

func (p *Path) String() string {
	if !p.Valid {
		return fmt.Sprintf("no path from %s to %s: %s", p.From, p.To, p.Reason)
	}
	s := p.From.String()
	for _, step := range p.Steps {
		s += " -> " + step.To.String()
	}
	return s
}

// noPath creates a sentinel path
func noPath(entityType string, from, to version.Version, reason string) *Path {
	return &Path{
		EntityType: entityType,
		From:       from,
		To:         to,
		Reason:     reason,
		Err:        fmt.Errorf("%w: %s", ErrPathNotFound, reason),
	}
}

// newPath builds a path from a chain of edges
func newPath(entityType string, edges []Edge) *Path {
	p := &Path{
		EntityType: entityType,
		From:       edges[0].From,
		To:         edges[len(edges)-1].To,
		Steps:      make([]Step, 0, len(edges)),
		IsDirect:   len(edges) == 1,
		Valid:      true,
	}

	for _, e := range edges {
		step := classifyStep(entityType, e)
		p.Steps = append(p.Steps, step)
		p.TotalCost += step.Cost
		p.EstimatedDuration += step.EstimatedDuration
		if step.Risk > p.TotalRisk {
			p.TotalRisk = step.Risk
		}
	}

	return p
}

// classifyStep derives type, risk, effort, actions and duration for a hop
func classifyStep(entityType string, e Edge) Step {
	step := Step{
		From: e.From,
		To:   e.To,
		Cost: e.Cost,
	}

	switch {
	case e.To.Major > e.From.Major:
		delta := e.To.Major - e.From.Major
		step.Type = StepMajorUpgrade
		step.Risk = RiskHigh
		step.Effort = compatibility.EffortHigh
		step.EstimatedDuration = time.Duration(delta) * majorStepDuration
		step.RequiredActions = []string{
			fmt.Sprintf("Back up state of every in-flight %s instance", entityType),
			fmt.Sprintf("Review breaking changes between %s and %s", e.From, e.To),
			"Register state transformations for instances in changed states",
			fmt.Sprintf("Drain instances from states removed in %s", e.To),
		}
		step.ValidationChecklist = []string{
			fmt.Sprintf("Every in-flight instance is in a state defined by %s", e.To),
			fmt.Sprintf("Persisted state deserializes under %s", e.To),
			fmt.Sprintf("Rollback to %s verified on a copy of production state", e.From),
		}

	case e.To.Minor > e.From.Minor:
		delta := e.To.Minor - e.From.Minor
		step.Type = StepMinorUpgrade
		step.Effort = compatibility.EffortMedium
		if delta > minorSkipRisk {
			step.Risk = RiskMedium
		}
		step.EstimatedDuration = time.Duration(delta) * minorStepDuration
		step.RequiredActions = []string{
			fmt.Sprintf("Review states and triggers introduced in %s", e.To),
			"Confirm guards on existing transitions are unchanged or still satisfied",
		}
		step.ValidationChecklist = []string{
			"Existing transitions fire with the same outcome",
			"New triggers are wired to their callers",
		}

	default:
		delta := e.To.Patch - e.From.Patch
		if delta < 1 {
			delta = 1
		}
		step.Type = StepPatchUpgrade
		step.EstimatedDuration = time.Duration(delta) * patchStepDuration
		step.RequiredActions = []string{
			fmt.Sprintf("Deploy %s", e.To),
		}
		step.ValidationChecklist = []string{
			"Smoke test the primary transition flow",
		}
	}

	return step
}

// lessPath orders paths by risk, then cost, then number of steps
func lessPath(a, b *Path) bool {
	if a.TotalRisk != b.TotalRisk {
		return a.TotalRisk < b.TotalRisk
	}
	if a.TotalCost != b.TotalCost {
		return a.TotalCost < b.TotalCost
	}
	return len(a.Steps) < len(b.Steps)
}

// rankPaths sorts candidates best first; ties keep discovery order
func rankPaths(paths []*Path) {
	sort.SliceStable(paths, func(i, j int) bool { return lessPath(paths[i], paths[j]) })
}
