package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/upskeel/lms/internal/events"
	"github.com/upskeel/lms/internal/notifications"
	"github.com/upskeel/lms/pkg/logger"
)

// NotificationSender hands a notification to the delivery pipeline.
type NotificationSender interface {
	Dispatch(ctx context.Context, n notifications.Notification) error
}

// recordAudit logs the supplied entry while tolerating audit failures.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.Log(ctx, entry); err != nil {
		logger.WithModule("audit").Warn("failed to record audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}

// publishEvent emits evt after commit. Failures are logged only.
func publishEvent(publisher events.Publisher, ctx context.Context, evt events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, evt); err != nil {
		logger.WithModule("events").Warn("failed to publish event", zap.String("type", evt.Type), zap.String("key", evt.Key), zap.Error(err))
	}
}
