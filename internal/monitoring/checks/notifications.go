package checks

import (
	"context"

	"github.com/upskeel/lms/internal/monitoring"
)

// QueueChecker reports whether the notification dispatcher can accept work.
type QueueChecker interface {
	Check(ctx context.Context) error
}

// Notifications returns a readiness probe for the outbound email queue.
// A saturated queue degrades rather than fails readiness.
func Notifications(queue QueueChecker) monitoring.Check {
	return monitoring.NewCheck("notifications", func(ctx context.Context) monitoring.ProbeResult {
		if queue == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "notifications disabled"}
		}
		if err := queue.Check(ctx); err != nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: err.Error()}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	})
}
