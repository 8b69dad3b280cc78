package checker

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/lineage/pkg/definition"
	"github.com/platinummonkey/lineage/pkg/observability"
	"github.com/platinummonkey/lineage/pkg/version"
)

// ShadowResult compares what a trigger would do under the current and a
// target definition
type ShadowResult struct {
	EntityType string
	Current    version.Version
	Target     version.Version
	State      string
	Trigger    string

	Success bool
	Reason  string
	Err     error

	CurrentOutcome definition.Prediction
	TargetOutcome  definition.Prediction

	// Diverges is true when fireability or the resulting state differ
	Diverges bool
}

// EvaluateShadow predicts the effect of a trigger fired in state under both
// definitions without changing anything
func (c *Checker) EvaluateShadow(ctx context.Context, entityType string, current, target version.Version, state, trigger string) (*ShadowResult, error) {
	if entityType == "" || trigger == "" {
		return nil, fmt.Errorf("%w: entity type and trigger are required", ErrInvalidArgument)
	}

	_, span := observability.StartSpan(ctx, "checker.EvaluateShadow",
		attribute.String("entity_type", entityType),
		attribute.String("current", current.String()),
		attribute.String("target", target.String()),
		attribute.String("trigger", trigger),
	)

	result := &ShadowResult{
		EntityType: entityType,
		Current:    current,
		Target:     target,
		State:      state,
		Trigger:    trigger,
	}

	currentDef, ok := c.registry.Lookup(entityType, current)
	if !ok {
		result.Reason = fmt.Sprintf("version %s of %s is not registered", current, entityType)
		result.Err = fmt.Errorf("%w: %s@%s", ErrVersionNotFound, entityType, current)
		observability.EndSpan(span, result.Err)
		return result, nil
	}
	targetDef, ok := c.registry.Lookup(entityType, target)
	if !ok {
		result.Reason = fmt.Sprintf("version %s of %s is not registered", target, entityType)
		result.Err = fmt.Errorf("%w: %s@%s", ErrVersionNotFound, entityType, target)
		observability.EndSpan(span, result.Err)
		return result, nil
	}

	predictor := c.predictor
	if predictor == nil {
		predictor = definition.TablePredictor{}
	}
	result.CurrentOutcome = predictor.Predict(currentDef, state, trigger)
	result.TargetOutcome = predictor.Predict(targetDef, state, trigger)
	result.Success = true
	result.Diverges = result.CurrentOutcome.CanFire != result.TargetOutcome.CanFire ||
		(result.CurrentOutcome.CanFire && result.CurrentOutcome.TargetState != result.TargetOutcome.TargetState)

	switch {
	case !result.Diverges:
		result.Reason = "outcome is unchanged"
	case result.CurrentOutcome.CanFire && !result.TargetOutcome.CanFire:
		result.Reason = fmt.Sprintf("%s would no longer fire in %s: %s", trigger, state, result.TargetOutcome.Reason)
	case !result.CurrentOutcome.CanFire:
		result.Reason = fmt.Sprintf("%s would newly fire in %s, landing in %s", trigger, state, result.TargetOutcome.TargetState)
	default:
		result.Reason = fmt.Sprintf("%s would land in %s instead of %s", trigger, result.TargetOutcome.TargetState, result.CurrentOutcome.TargetState)
	}

	span.SetAttributes(attribute.Bool("diverges", result.Diverges))
	observability.EndSpan(span, nil)
	return result, nil
}
