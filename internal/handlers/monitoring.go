package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/upskeel/lms/internal/app"
	"github.com/upskeel/lms/internal/monitoring"
	"github.com/upskeel/lms/pkg/response"
)

// MonitoringHandler surfaces maintenance job summaries for administrators.
type MonitoringHandler struct {
	module *monitoring.Module
	cfg    *app.Config
}

// NewMonitoringHandler constructs a monitoring handler. Returns nil when monitoring is disabled.
func NewMonitoringHandler(module *monitoring.Module, cfg *app.Config) *MonitoringHandler {
	if module == nil || cfg == nil {
		return nil
	}
	return &MonitoringHandler{module: module, cfg: cfg}
}

// GET /api/monitoring/summary
func (h *MonitoringHandler) Summary(c *gin.Context) {
	endpoint := strings.TrimSpace(h.cfg.Monitoring.Metrics.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}

	jobs := []monitoring.JobSummary{}
	if snapshot := h.module.Jobs().Snapshot(); len(snapshot) > 0 {
		jobs = snapshot
	}

	response.Success(c, http.StatusOK, gin.H{
		"jobs": jobs,
		"maintenance": gin.H{
			"enabled": h.cfg.Maintenance.Enabled,
		},
		"metrics": gin.H{
			"enabled":  h.cfg.Monitoring.Metrics.Enabled,
			"endpoint": endpoint,
		},
	})
}
