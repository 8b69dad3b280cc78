package hooks

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/lineage/pkg/audit"
	"github.com/platinummonkey/lineage/pkg/observability"
)

const (
	// AuditHookPriority runs the audit hook before every other built-in
	AuditHookPriority = 0

	auditStartedKey = "audit.started_at"
)

// AuditLoggingHook writes start, success and rollback events to an audit log
type AuditLoggingHook struct {
	BaseHook
	sink   audit.Logger
	logger *logrus.Logger
}

// NewAuditLoggingHook creates an audit hook; a nil sink discards events
func NewAuditLoggingHook(sink audit.Logger, logger *logrus.Logger) *AuditLoggingHook {
	if sink == nil {
		sink = audit.NoOp()
	}
	return &AuditLoggingHook{
		BaseHook: BaseHook{HookName: "audit-logging", HookPriority: AuditHookPriority},
		sink:     sink,
		logger:   observability.OrDefault(logger),
	}
}

func (h *AuditLoggingHook) Before(ctx context.Context, mc *MigrationContext) (bool, error) {
	mc.metadata()[auditStartedKey] = time.Now()
	h.write(ctx, h.event(mc, audit.EventTypeMigrationStart, audit.EventStatusStarted))
	return true, nil
}

func (h *AuditLoggingHook) After(ctx context.Context, mc *MigrationContext) error {
	event := h.event(mc, audit.EventTypeMigrationSuccess, audit.EventStatusSuccess).WithDuration(h.elapsed(mc))
	event.Message = "migration committed"
	if len(mc.Warnings) > 0 {
		event.Metadata["warnings"] = append([]string(nil), mc.Warnings...)
	}
	h.write(ctx, event)
	return nil
}

func (h *AuditLoggingHook) Rollback(ctx context.Context, mc *MigrationContext) error {
	if mc.VetoedBy != "" {
		veto := h.event(mc, audit.EventTypeMigrationVeto, audit.EventStatusFailure)
		veto.Hook = mc.VetoedBy
		veto.Message = mc.FailureReason
		h.write(ctx, veto)
	}

	event := h.event(mc, audit.EventTypeMigrationRollback, audit.EventStatusFailure).WithDuration(h.elapsed(mc))
	event.Message = mc.FailureReason
	event.Hook = mc.VetoedBy
	h.write(ctx, event)
	return nil
}

func (h *AuditLoggingHook) event(mc *MigrationContext, eventType audit.EventType, status audit.EventStatus) *audit.Event {
	event := audit.NewEvent(eventType, status)
	event.MigrationID = mc.MigrationID
	event.EntityID = mc.EntityID
	event.EntityType = mc.EntityType
	event.FromVersion = mc.From.String()
	event.ToVersion = mc.To.String()
	event.Strategy = string(mc.Strategy)
	return event
}

func (h *AuditLoggingHook) elapsed(mc *MigrationContext) time.Duration {
	if started, ok := mc.metadata()[auditStartedKey].(time.Time); ok {
		return time.Since(started)
	}
	return 0
}

// write never fails the migration; a broken audit sink is logged
func (h *AuditLoggingHook) write(ctx context.Context, event *audit.Event) {
	if err := h.sink.Log(ctx, event); err != nil {
		h.logger.WithFields(logrus.Fields{
			"migration_id": event.MigrationID,
			"event_type":   string(event.EventType),
		}).WithError(err).Error("failed to write audit event")
	}
}
