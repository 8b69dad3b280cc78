package checker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/lineage/pkg/compatibility"
	"github.com/platinummonkey/lineage/pkg/compatibility/rules"
	"github.com/platinummonkey/lineage/pkg/definition"
	"github.com/platinummonkey/lineage/pkg/migration"
	"github.com/platinummonkey/lineage/pkg/observability"
	"github.com/platinummonkey/lineage/pkg/version"
)

const resultCacheName = "check_result"

// Checker composes the rules engine and the path calculator into
// compatibility checks, matrices, upgrade recommendations and deployment
// validation
type Checker struct {
	registry   definition.Registry
	engine     *compatibility.Engine
	calculator *migration.Calculator
	predictor  definition.Predictor
	logger     *logrus.Logger
	metrics    *observability.Metrics
	timeout    time.Duration
	workers    int

	flight singleflight.Group

	cacheMu    sync.Mutex
	cache      *lru.LRU[string, *CheckResult]
	generation atomic.Uint64
}

// New creates a checker over a definition registry. A registry that
// implements definition.Notifier invalidates the checker on every change.
func New(registry definition.Registry, opts Options) (*Checker, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: registry is required", ErrInvalidArgument)
	}
	logger := observability.OrDefault(opts.Logger)

	engine := opts.Engine
	if engine == nil {
		ruleRegistry := compatibility.NewRegistry()
		if err := rules.RegisterDefaultRules(ruleRegistry); err != nil {
			return nil, fmt.Errorf("failed to register default rules: %w", err)
		}
		engine = compatibility.NewEngine(ruleRegistry, compatibility.EngineOptions{
			Logger:  logger,
			Metrics: opts.Metrics,
		})
	}

	calculator := opts.Calculator
	if calculator == nil {
		calculator = migration.NewCalculator(registry,
			migration.WithLogger(logger),
			migration.WithMetrics(opts.Metrics),
		)
	}

	workers := opts.MatrixWorkers
	if workers <= 0 {
		workers = DefaultMatrixWorkers
	}

	c := &Checker{
		registry:   registry,
		engine:     engine,
		calculator: calculator,
		predictor:  opts.Predictor,
		logger:     logger,
		metrics:    opts.Metrics,
		timeout:    opts.Timeout,
		workers:    workers,
	}
	if opts.CacheSize > 0 {
		c.cache = lru.NewLRU[string, *CheckResult](opts.CacheSize, nil, opts.CacheTTL)
	}

	if notifier, ok := registry.(definition.Notifier); ok {
		notifier.Subscribe(c.Invalidate)
	}

	return c, nil
}

// Engine returns the rules engine
func (c *Checker) Engine() *compatibility.Engine {
	return c.engine
}

// Calculator returns the path calculator
func (c *Checker) Calculator() *migration.Calculator {
	return c.calculator
}

// CheckCompatibility compares two versions of an entity type. Unregistered
// versions and timeouts are reported on the result; the error is only set
// for invalid arguments.
//
// Identical concurrent checks share one evaluation. Each caller stops waiting
// when its own context is done.
func (c *Checker) CheckCompatibility(ctx context.Context, entityType string, from, to version.Version) (*CheckResult, error) {
	if entityType == "" {
		return nil, fmt.Errorf("%w: entity type is required", ErrInvalidArgument)
	}

	key := cacheKey(entityType, from, to)
	if result, ok := c.cached(key); ok {
		return result, nil
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// The shared evaluation must not die with the first caller
	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		return c.check(shared, key, entityType, from, to), nil
	})

	select {
	case res := <-ch:
		return res.Val.(*CheckResult).clone(), nil
	case <-ctx.Done():
		return c.abandoned(ctx, entityType, from, to), nil
	}
}

// check runs one evaluation, records it and caches a completed result
func (c *Checker) check(ctx context.Context, key, entityType string, from, to version.Version) *CheckResult {
	start := time.Now()
	generation := c.generation.Load()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := observability.StartSpan(ctx, "checker.CheckCompatibility",
		attribute.String("entity_type", entityType),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	)

	result := c.evaluate(ctx, entityType, from, to)
	result.enter(StageResultReturned)
	result.Duration = time.Since(start)

	level := "Failed"
	var spanErr error
	if result.Success {
		level = result.Level.String()
		c.store(key, generation, result)
	} else {
		spanErr = result.Err
	}
	c.metrics.RecordCheck(entityType, level, result.Duration)
	span.SetAttributes(attribute.String("level", level))
	observability.EndSpan(span, spanErr)

	c.logger.WithFields(logrus.Fields{
		"entity_type": entityType,
		"from":        from.String(),
		"to":          to.String(),
		"level":       level,
		"duration":    result.Duration,
	}).Debug("compatibility check completed")

	return result
}

func (c *Checker) evaluate(ctx context.Context, entityType string, from, to version.Version) *CheckResult {
	result := newResult(entityType, from, to)
	result.enter(StageRequested)

	fromDef, ok := c.registry.Lookup(entityType, from)
	if !ok {
		return result.fail(
			fmt.Sprintf("version %s of %s is not registered", from, entityType),
			fmt.Errorf("%w: %s@%s", ErrVersionNotFound, entityType, from),
		)
	}
	toDef, ok := c.registry.Lookup(entityType, to)
	if !ok {
		return result.fail(
			fmt.Sprintf("version %s of %s is not registered", to, entityType),
			fmt.Errorf("%w: %s@%s", ErrVersionNotFound, entityType, to),
		)
	}

	cc := compatibility.NewContext(entityType, from, to).WithDefinitions(fromDef, toDef)
	cc.Predictor = c.predictor
	result.enter(StageContextBuilt)

	eval, err := c.engine.Evaluate(ctx, cc)
	if err != nil {
		return c.interrupted(result, err)
	}
	result.enter(StageRulesEvaluated)

	result.Success = true
	result.Evaluation = eval
	result.IsCompatible = eval.IsCompatible
	result.Level = eval.Level
	result.BreakingChanges = eval.BreakingChanges
	result.Warnings = append([]compatibility.Warning(nil), eval.Warnings...)
	result.MigrationSteps = eval.MigrationSteps
	result.Reason = fmt.Sprintf("%s: %d breaking change(s), %d warning(s)",
		eval.Level, len(eval.BreakingChanges), len(eval.Warnings))

	switch eval.Level {
	case compatibility.LevelIncompatible:
		result.Err = fmt.Errorf("%w: %s %s -> %s", ErrIncompatible, entityType, from, to)

	case compatibility.LevelRequiresMigration:
		path, err := c.calculator.CalculateOptimalPath(ctx, entityType, from, to)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return c.interrupted(result, err)
			}
			result.Warnings = append(result.Warnings, compatibility.Warning{
				Rule:    "migration-path",
				Message: fmt.Sprintf("migration path could not be calculated: %v", err),
			})
			break
		}
		result.MigrationPath = path
		result.enter(StagePathComputed)
		if !path.Valid {
			result.Warnings = append(result.Warnings, compatibility.Warning{
				Rule:    "migration-path",
				Message: path.Reason,
			})
		}
	}

	return result
}

// interrupted converts an evaluation that did not complete into a failed result
func (c *Checker) interrupted(result *CheckResult, err error) *CheckResult {
	if errors.Is(err, context.DeadlineExceeded) {
		return result.fail(
			fmt.Sprintf("compatibility check exceeded its timeout of %s", c.timeout),
			fmt.Errorf("%w: %w", ErrTimeout, err),
		)
	}
	return result.fail(fmt.Sprintf("compatibility check did not complete: %v", err), err)
}

// abandoned reports a caller that stopped waiting for a shared evaluation
func (c *Checker) abandoned(ctx context.Context, entityType string, from, to version.Version) *CheckResult {
	result := c.interrupted(newResult(entityType, from, to), ctx.Err())
	c.metrics.RecordCheck(entityType, "Failed", 0)
	c.logger.WithFields(logrus.Fields{
		"entity_type": entityType,
		"from":        from.String(),
		"to":          to.String(),
	}).WithError(result.Err).Warn("compatibility check abandoned")
	return result
}

func cacheKey(entityType string, from, to version.Version) string {
	return entityType + "|" + from.String() + "|" + to.String()
}

func (c *Checker) cached(key string) (*CheckResult, bool) {
	if c.cache == nil {
		return nil, false
	}
	result, ok := c.cache.Get(key)
	c.metrics.RecordCacheLookup(resultCacheName, ok)
	if !ok {
		return nil, false
	}

	out := result.clone()
	out.Cached = true
	return out, true
}

// store caches a result unless the cache was invalidated while it was computed
func (c *Checker) store(key string, generation uint64, result *CheckResult) {
	if c.cache == nil {
		return
	}
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	if c.generation.Load() != generation {
		return
	}
	c.cache.Add(key, result.clone())
}

// Invalidate drops the cached graph and check results of one entity type.
// It is called automatically when a notifying registry changes.
func (c *Checker) Invalidate(entityType string) {
	c.calculator.Invalidate(entityType)
	if c.cache == nil {
		return
	}

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.generation.Add(1)

	prefix := entityType + "|"
	for _, key := range c.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Remove(key)
		}
	}
}

// ClearCache drops every cached graph and check result
func (c *Checker) ClearCache() {
	c.calculator.ClearCache()
	if c.cache == nil {
		return
	}

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.generation.Add(1)
	c.cache.Purge()
}
