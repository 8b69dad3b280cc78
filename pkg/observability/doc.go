// Package observability provides logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// Components in this module take a *logrus.Logger and an optional *Metrics.
// Neither is required: a nil logger falls back to logrus.StandardLogger and a
// nil *Metrics records nothing, so the engine can be embedded without any
// observability wiring.
//
// # Logging
//
//	logger, err := observability.NewLogger("debug", "json", os.Stderr)
//	logger.WithFields(logrus.Fields{"entity_type": "Order"}).Info("graph built")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordRuleEvaluation("state-changes", "success", 120*time.Microsecond)
//
// # Tracing
//
// Spans are emitted through the global OpenTelemetry tracer provider. Exporter
// setup is the host application's concern.
//
//	ctx, span := observability.StartSpan(ctx, "checker.CheckCompatibility",
//		attribute.String("entity_type", entityType))
//	defer span.End()
//
// # Related Packages
//
//   - pkg/config: Observability configuration
package observability
