package compatibility

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/lineage/pkg/async"
	"github.com/platinummonkey/lineage/pkg/observability"
)

// EngineOptions configures an Engine
type EngineOptions struct {
	Logger  *logrus.Logger
	Metrics *observability.Metrics

	// MaxConcurrency bounds the number of rules evaluated at once; zero means
	// one goroutine per rule
	MaxConcurrency int
}

// Engine evaluates every registered rule against a context and aggregates
// the outcome
type Engine struct {
	registry *Registry
	logger   *logrus.Logger
	metrics  *observability.Metrics
	limit    int
	stats    statsCollector
}

// NewEngine creates an engine over a rule registry
func NewEngine(registry *Registry, opts EngineOptions) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Engine{
		registry: registry,
		logger:   observability.OrDefault(opts.Logger),
		metrics:  opts.Metrics,
		limit:    opts.MaxConcurrency,
	}
}

// Registry returns the engine's rule registry
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Evaluate runs all rules concurrently. A rule that errors or panics is
// isolated: its result is marked unsuccessful, and the fault either forces
// incompatibility (critical rules) or becomes a warning.
func (e *Engine) Evaluate(ctx context.Context, cc *Context) (*EvaluationResult, error) {
	if cc == nil {
		return nil, ErrInvalidContext
	}

	start := time.Now()
	rules := e.registry.All()
	results := make([]*RuleResult, len(rules))

	eg, egCtx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		eg.SetLimit(e.limit)
	}
	for i, rule := range rules {
		i, rule := i, rule
		eg.Go(func() error {
			results[i] = e.evaluateRule(egCtx, rule, cc)
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := e.aggregate(cc, results)
	result.Duration = time.Since(start)

	e.logger.WithFields(logrus.Fields{
		"entity_type":      cc.EntityType,
		"from":             cc.From.String(),
		"to":               cc.To.String(),
		"level":            result.Level.String(),
		"breaking_changes": len(result.BreakingChanges),
		"duration":         result.Duration,
	}).Debug("compatibility evaluation complete")

	return result, nil
}

func (e *Engine) evaluateRule(ctx context.Context, rule Rule, cc *Context) *RuleResult {
	start := time.Now()

	var result *RuleResult
	err := async.Recover("rule "+rule.Name(), func() error {
		r, err := rule.Evaluate(ctx, cc)
		result = r
		return err
	})
	if err == nil && result == nil {
		err = fmt.Errorf("rule returned no result")
	}

	if err != nil {
		result = NewRuleResult(rule)
		result.Success = false
		result.BreakingChanges = nil
		result.Warnings = nil
		result.Err = fmt.Errorf("%w: %s: %w", ErrRuleFault, rule.Name(), err)

		e.logger.WithFields(logrus.Fields{
			"rule":        rule.Name(),
			"category":    rule.Category().String(),
			"entity_type": cc.EntityType,
		}).WithError(err).Warn("compatibility rule faulted")
	}

	result.RuleName = rule.Name()
	result.Category = rule.Category()
	result.Duration = time.Since(start)

	status := "success"
	if !result.Success {
		status = "fault"
	}
	e.metrics.RecordRuleEvaluation(rule.Name(), status, result.Duration)
	e.stats.record(result)

	return result
}

// aggregate folds rule results in registration order
func (e *Engine) aggregate(cc *Context, results []*RuleResult) *EvaluationResult {
	var changes []BreakingChange
	var warnings []Warning
	criticalFault := false

	for _, r := range results {
		changes = append(changes, r.BreakingChanges...)
		warnings = append(warnings, r.Warnings...)

		if r.Success {
			continue
		}
		if r.Category == CategoryCritical {
			criticalFault = true
		}
		warnings = append(warnings, Warning{
			Rule:    r.RuleName,
			Message: fmt.Sprintf("rule %s could not be evaluated: %v", r.RuleName, r.Err),
		})
	}

	for _, c := range changes {
		e.metrics.RecordBreakingChange(string(c.ChangeType), c.Impact.String())
	}

	level := ClassifyLevel(changes, len(warnings))
	if criticalFault {
		level = LevelIncompatible
	}

	result := &EvaluationResult{
		IsCompatible:      level != LevelIncompatible,
		Level:             level,
		RequiresMigration: level == LevelRequiresMigration,
		BreakingChanges:   changes,
		Warnings:          warnings,
		RuleResults:       results,
		Summary:           summarize(results, changes, warnings),
	}
	if level >= LevelPartiallyCompatible {
		result.MigrationSteps = DeriveMigrationSteps(changes, cc.Complexity)
	}
	return result
}

// Statistics returns per-rule execution counters sorted by rule name
func (e *Engine) Statistics() []RuleStats {
	return e.stats.snapshot()
}

// ResetStatistics clears the execution counters
func (e *Engine) ResetStatistics() {
	e.stats.reset()
}
