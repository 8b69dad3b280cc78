package checker

import (
	"context"
	"fmt"

	"github.com/platinummonkey/lineage/pkg/async"
	"github.com/platinummonkey/lineage/pkg/compatibility"
	"github.com/platinummonkey/lineage/pkg/version"
)

// Severity grades a deployment issue
type Severity string

const (
	SeverityError   Severity = "Error"
	SeverityWarning Severity = "Warning"
)

// Direction tells which way a deployment check compared versions
type Direction string

const (
	// DirectionForward checks that instances on an existing version can move
	// to the new version
	DirectionForward Direction = "forward"

	// DirectionBackward checks that instances on a newer existing version can
	// coexist with the new version
	DirectionBackward Direction = "backward"
)

// DeploymentStrategy is the rollout a deployment calls for
type DeploymentStrategy string

const (
	StrategyDirectUpgrade     DeploymentStrategy = "DirectUpgrade"
	StrategyRollingUpgrade    DeploymentStrategy = "RollingUpgrade"
	StrategyRequiresMigration DeploymentStrategy = "RequiresMigration"
	StrategyBlocked           DeploymentStrategy = "Blocked"
)

// DeploymentIssue is one finding of a deployment validation
type DeploymentIssue struct {
	Severity  Severity
	Blocking  bool
	Direction Direction
	Version   version.Version
	Level     compatibility.Level
	Message   string
}

// DeploymentResult reports whether a new version can be deployed next to
// existing ones
type DeploymentResult struct {
	EntityType string
	NewVersion version.Version
	CanDeploy  bool
	Strategy   DeploymentStrategy
	Issues     []DeploymentIssue
	Checks     []*CheckResult
}

// Errors returns the error issues
func (r *DeploymentResult) Errors() []DeploymentIssue {
	return r.filter(SeverityError)
}

// Warnings returns the warning issues
func (r *DeploymentResult) Warnings() []DeploymentIssue {
	return r.filter(SeverityWarning)
}

func (r *DeploymentResult) filter(severity Severity) []DeploymentIssue {
	var out []DeploymentIssue
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			out = append(out, issue)
		}
	}
	return out
}

// ValidateDeploymentCompatibility checks a new version against the versions
// already running. Every existing version is checked forward (existing ->
// new): an incompatible or failed check blocks the deployment. For existing
// versions below the new one a required migration is a non-blocking error
// and partial compatibility a warning; above it those levels are expected of
// any downgrade and not reported. Existing versions above the new one are
// also checked backward (new -> existing); incompatibility there is only a
// warning.
func (c *Checker) ValidateDeploymentCompatibility(ctx context.Context, entityType string, newVersion version.Version, existing []version.Version) (*DeploymentResult, error) {
	if entityType == "" {
		return nil, fmt.Errorf("%w: entity type is required", ErrInvalidArgument)
	}

	result := &DeploymentResult{EntityType: entityType, NewVersion: newVersion}

	if _, ok := c.registry.Lookup(entityType, newVersion); !ok {
		result.Issues = append(result.Issues, DeploymentIssue{
			Severity:  SeverityError,
			Blocking:  true,
			Direction: DirectionForward,
			Version:   newVersion,
			Level:     compatibility.LevelIncompatible,
			Message:   fmt.Sprintf("version %s of %s is not registered", newVersion, entityType),
		})
	}

	var jobs []deploymentCheck
	for _, v := range existing {
		if v.Equal(newVersion) {
			continue
		}
		jobs = append(jobs, deploymentCheck{existing: v, direction: DirectionForward})
		if newVersion.Less(v) {
			jobs = append(jobs, deploymentCheck{existing: v, direction: DirectionBackward})
		}
	}

	checks, errs := async.Map(ctx, jobs, c.workers, "deployment validation",
		func(ctx context.Context, job deploymentCheck) (*CheckResult, error) {
			from, to := job.pair(newVersion)
			return c.CheckCompatibility(ctx, entityType, from, to)
		})

	for i, job := range jobs {
		check := checks[i]
		if errs[i] != nil || check == nil {
			from, to := job.pair(newVersion)
			check = newResult(entityType, from, to).
				fail(fmt.Sprintf("compatibility check failed: %v", errs[i]), errs[i])
		}
		result.Checks = append(result.Checks, check)

		if issue, ok := deploymentIssue(job, newVersion, check); ok {
			result.Issues = append(result.Issues, issue)
		}
	}

	result.Strategy, result.CanDeploy = deploymentStrategy(result.Issues)
	return result, nil
}

// deploymentCheck is one directed check between an existing version and the
// new one
type deploymentCheck struct {
	existing  version.Version
	direction Direction
}

func (d deploymentCheck) pair(newVersion version.Version) (from, to version.Version) {
	if d.direction == DirectionBackward {
		return newVersion, d.existing
	}
	return d.existing, newVersion
}

func deploymentIssue(job deploymentCheck, newVersion version.Version, check *CheckResult) (DeploymentIssue, bool) {
	existing := job.existing
	issue := DeploymentIssue{Version: existing, Level: check.Level, Direction: job.direction}

	if job.direction == DirectionBackward {
		if check.Success && check.IsCompatible {
			return issue, false
		}
		issue.Severity = SeverityWarning
		issue.Message = fmt.Sprintf("%s is not backward compatible with %s: %s", newVersion, existing, check.Reason)
		return issue, true
	}

	downgrade := newVersion.Less(existing)
	switch {
	case !check.Success || check.Level == compatibility.LevelIncompatible:
		issue.Severity = SeverityError
		issue.Blocking = true
		issue.Message = fmt.Sprintf("instances on %s cannot move to %s: %s", existing, newVersion, check.Reason)
	case downgrade:
		return issue, false
	case check.Level == compatibility.LevelRequiresMigration:
		issue.Severity = SeverityError
		issue.Message = fmt.Sprintf("instances on %s require migration to %s", existing, newVersion)
	case check.Level == compatibility.LevelPartiallyCompatible:
		issue.Severity = SeverityWarning
		issue.Message = fmt.Sprintf("%s is only partially compatible with %s", newVersion, existing)
	default:
		return issue, false
	}
	return issue, true
}

func deploymentStrategy(issues []DeploymentIssue) (DeploymentStrategy, bool) {
	var blocking, errs, warnings bool
	for _, issue := range issues {
		switch {
		case issue.Blocking:
			blocking = true
		case issue.Severity == SeverityError:
			errs = true
		default:
			warnings = true
		}
	}

	switch {
	case blocking:
		return StrategyBlocked, false
	case errs:
		return StrategyRequiresMigration, true
	case warnings:
		return StrategyRollingUpgrade, true
	default:
		return StrategyDirectUpgrade, true
	}
}
