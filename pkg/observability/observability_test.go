package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLogger("debug", "json", &buf)
		require.NoError(t, err)

		logger.WithField("entity_type", "Order").Debug("graph built")

		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "graph built", line["msg"])
		assert.Equal(t, "Order", line["entity_type"])
		assert.Equal(t, "debug", line["level"])
	})

	t.Run("text respects level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLogger("warn", "text", &buf)
		require.NoError(t, err)

		logger.Info("hidden")
		assert.Empty(t, buf.String())

		logger.Warn("shown")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := NewLogger("loud", "json", nil)
		assert.Error(t, err)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := NewLogger("info", "xml", nil)
		assert.Error(t, err)
	})
}

func TestConfigure(t *testing.T) {
	logger := DiscardLogger()
	require.NoError(t, Configure(logger, "error", "json"))
	assert.Equal(t, logrus.ErrorLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	assert.Error(t, Configure(logger, "info", "xml"))
	assert.Equal(t, logrus.ErrorLevel, logger.GetLevel())
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, logrus.StandardLogger(), OrDefault(nil))

	l := DiscardLogger()
	assert.Same(t, l, OrDefault(l))
}

func TestContextLogger(t *testing.T) {
	entry := logrus.NewEntry(DiscardLogger()).WithField("migration_id", "abc")
	ctx := WithLogger(context.Background(), entry)

	got := FromContext(ctx, nil)
	assert.Equal(t, "abc", got.Data["migration_id"])

	discard := DiscardLogger()
	fallback := FromContext(context.Background(), discard)
	assert.Same(t, discard, fallback.Logger)
	assert.Empty(t, fallback.Data)
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.RecordRuleEvaluation("state-changes", "success", time.Millisecond)
	m.RecordRuleEvaluation("state-changes", "success", time.Millisecond)
	m.RecordRuleEvaluation("state-changes", "fault", time.Millisecond)
	m.RecordBreakingChange("StateRemoved", "Critical")
	m.RecordCheck("Order", "FullyCompatible", time.Millisecond)
	m.RecordCacheLookup("results", true)
	m.RecordCacheLookup("results", false)
	m.RecordPathCalculation("Order", true)
	m.RecordGraphBuild("Order")
	m.RecordMigration("Order", "committed", time.Second)
	m.RecordHookFailure("audit", "after")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RuleEvaluationsTotal.WithLabelValues("state-changes", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleEvaluationsTotal.WithLabelValues("state-changes", "fault")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakingChangesTotal.WithLabelValues("StateRemoved", "Critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("results", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GraphBuildsTotal.WithLabelValues("Order")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MigrationRunsTotal.WithLabelValues("Order", "committed")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRuleEvaluation("r", "success", time.Millisecond)
		m.RecordBreakingChange("StateRemoved", "High")
		m.RecordCheck("Order", "Compatible", time.Millisecond)
		m.RecordCacheLookup("results", true)
		m.RecordPathCalculation("Order", false)
		m.RecordGraphBuild("Order")
		m.RecordMigration("Order", "rolled_back", time.Millisecond)
		m.RecordHookFailure("backup", "rollback")
	})
}

func TestSpans(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test.span")
	require.NotNil(t, span)

	entry := WithTraceContext(ctx, logrus.NewEntry(DiscardLogger()))
	assert.NotContains(t, entry.Data, "trace_id", "noop provider does not record")

	assert.NotPanics(t, func() { EndSpan(span, errors.New("failed")) })
}
