package compatibility

import (
	"time"
)

// ChangeType classifies a breaking change
type ChangeType string

const (
	ChangeStateAdded        ChangeType = "StateAdded"
	ChangeStateRemoved      ChangeType = "StateRemoved"
	ChangeTriggerAdded      ChangeType = "TriggerAdded"
	ChangeTriggerRemoved    ChangeType = "TriggerRemoved"
	ChangeTransitionChanged ChangeType = "TransitionChanged"
	ChangeGuardChanged      ChangeType = "GuardChanged"
	ChangeDataFormatChanged ChangeType = "DataFormatChanged"
	ChangeVersionDowngrade  ChangeType = "VersionDowngrade"
)

// Impact indicates how badly a change can affect in-flight instances
type Impact int

const (
	ImpactLow Impact = iota
	ImpactMedium
	ImpactHigh
	ImpactCritical
)

func (i Impact) String() string {
	return []string{"Low", "Medium", "High", "Critical"}[i]
}

// Level summarizes the severity of differences between two versions.
// Higher values are more severe.
type Level int

const (
	LevelFullyCompatible Level = iota
	LevelCompatible
	LevelPartiallyCompatible
	LevelRequiresMigration
	LevelIncompatible
)

func (l Level) String() string {
	return []string{
		"FullyCompatible", "Compatible", "PartiallyCompatible",
		"RequiresMigration", "Incompatible",
	}[l]
}

// RuleCategory controls how a rule's fault is treated
type RuleCategory int

const (
	// CategoryCritical rules force incompatibility when they fault
	CategoryCritical RuleCategory = iota
	CategoryStandard
	CategoryInformational
)

func (c RuleCategory) String() string {
	return []string{"Critical", "Standard", "Informational"}[c]
}

// Complexity is a hint about the size of the definitions being compared
type Complexity int

const (
	ComplexitySimple Complexity = iota
	ComplexityModerate
	ComplexityComplex
)

func (c Complexity) String() string {
	return []string{"Simple", "Moderate", "Complex"}[c]
}

// Effort estimates the work needed for a migration step
type Effort int

const (
	EffortLow Effort = iota
	EffortMedium
	EffortHigh
)

func (e Effort) String() string {
	return []string{"Low", "Medium", "High"}[e]
}

// BreakingChange is a detected difference that could misbehave if naively
// applied to an in-flight instance
type BreakingChange struct {
	Rule        string
	ChangeType  ChangeType
	Impact      Impact
	Location    string
	Description string
	Mitigation  string
}

// Warning is a non-breaking observation
type Warning struct {
	Rule    string
	Message string
}

// RuleResult is the outcome of one rule. Success reports whether the rule ran
// without a fault; findings are reported separately.
type RuleResult struct {
	RuleName        string
	Category        RuleCategory
	Success         bool
	BreakingChanges []BreakingChange
	Warnings        []Warning
	Err             error
	Duration        time.Duration
}

// NewRuleResult creates an empty successful result for a rule
func NewRuleResult(rule Rule) *RuleResult {
	return &RuleResult{
		RuleName: rule.Name(),
		Category: rule.Category(),
		Success:  true,
	}
}

// AddBreakingChange records a breaking change attributed to this rule
func (r *RuleResult) AddBreakingChange(change BreakingChange) {
	if change.Rule == "" {
		change.Rule = r.RuleName
	}
	r.BreakingChanges = append(r.BreakingChanges, change)
}

// AddWarning records a warning attributed to this rule
func (r *RuleResult) AddWarning(message string) {
	r.Warnings = append(r.Warnings, Warning{Rule: r.RuleName, Message: message})
}

// MigrationStep groups the breaking changes of one type into a unit of work
type MigrationStep struct {
	Order       int
	ChangeType  ChangeType
	Description string
	Changes     []BreakingChange
	MaxImpact   Impact
	Effort      Effort
	Automated   bool
}

// EvaluationResult contains the aggregated outcome of all rules
type EvaluationResult struct {
	IsCompatible      bool
	Level             Level
	RequiresMigration bool
	BreakingChanges   []BreakingChange
	Warnings          []Warning
	RuleResults       []*RuleResult
	MigrationSteps    []MigrationStep
	Summary           Summary
	Duration          time.Duration
}

// Summary provides an overview of findings
type Summary struct {
	TotalRules      int
	FailedRules     int
	BreakingChanges int
	Warnings        int
	ByImpact        map[Impact]int
}
