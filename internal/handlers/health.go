package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/upskeel/lms/internal/monitoring"
)

// HealthHandler renders liveness and readiness reports.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

// NewHealthHandler constructs a HealthHandler. A nil manager reports every endpoint as disabled.
func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

// GET /health
func (h *HealthHandler) Overall(c *gin.Context) {
	if h.manager == nil {
		disabledHealth(c)
		return
	}
	ctx := requestContext(c)
	writeHealthReport(c, monitoring.MergeReports(h.manager.EvaluateLiveness(ctx), h.manager.EvaluateReadiness(ctx)))
}

// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	if h.manager == nil {
		disabledHealth(c)
		return
	}
	writeHealthReport(c, h.manager.EvaluateLiveness(requestContext(c)))
}

// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.manager == nil {
		disabledHealth(c)
		return
	}
	writeHealthReport(c, h.manager.EvaluateReadiness(requestContext(c)))
}

func disabledHealth(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}

// writeHealthReport answers 503 only when a probe is down; degraded dependencies keep the instance in rotation.
func writeHealthReport(c *gin.Context, report monitoring.HealthReport) {
	status := http.StatusOK
	if report.Status == monitoring.StatusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
