package checker

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/lineage/pkg/compatibility"
	"github.com/platinummonkey/lineage/pkg/definition"
	"github.com/platinummonkey/lineage/pkg/migration"
	"github.com/platinummonkey/lineage/pkg/observability"
)

const (
	// DefaultMatrixWorkers bounds concurrent checks during matrix analysis
	DefaultMatrixWorkers = 4

	// MaxAlternativePaths is the number of paths attached to a recommendation
	MaxAlternativePaths = 3
)

// Options configures a Checker
type Options struct {
	Logger  *logrus.Logger
	Metrics *observability.Metrics

	// Engine evaluates rules; nil builds one with the default rules
	Engine *compatibility.Engine

	// Calculator computes migration paths; nil builds one over the registry
	Calculator *migration.Calculator

	// Predictor answers shadow evaluations and transition rules; nil uses
	// the definition transition table
	Predictor definition.Predictor

	// Timeout bounds a single check; zero disables it
	Timeout time.Duration

	// CacheSize is the number of check results kept; zero disables caching
	CacheSize int

	// CacheTTL expires cached results; zero keeps them until invalidated
	CacheTTL time.Duration

	// MatrixWorkers bounds concurrent checks during matrix analysis and
	// recommendations
	MatrixWorkers int
}
