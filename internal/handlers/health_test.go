package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upskeel/lms/internal/app"
	"github.com/upskeel/lms/internal/handlers/testutil"
	"github.com/upskeel/lms/internal/monitoring"
)

type healthPayload struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Checks  []struct {
		Component string `json:"component"`
		Status    string `json:"status"`
	} `json:"checks"`
}

func TestHealthEndpoints(t *testing.T) {
	env := testutil.NewEnv(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/api/health", "/api/health/ready"} {
		w := env.Request(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusOK, w.Code, path)
	}

	w := env.Request(http.MethodGet, "/health/ready", nil, "")
	var report healthPayload
	testutil.DecodeInto(t, w.Body.Bytes(), &report)
	require.True(t, report.Success)
	require.Equal(t, "up", report.Status)
	require.Len(t, report.Checks, 1)
	require.Equal(t, "database", report.Checks[0].Component)
}

func TestHealthEndpoints_StatusCodes(t *testing.T) {
	env := testutil.NewEnv(t)

	env.Monitoring.Health().RegisterReadiness(monitoring.NewCheck("slow-cache", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "slow"}
	}))
	degraded := env.Request(http.MethodGet, "/health/ready", nil, "")
	require.Equal(t, http.StatusOK, degraded.Code, degraded.Body.String())
	require.Contains(t, degraded.Body.String(), `"status":"degraded"`)

	env.Monitoring.Health().RegisterReadiness(monitoring.NewCheck("broker", func(context.Context) monitoring.ProbeResult {
		return monitoring.ResultFromError("broker", errors.New("connection refused"), 0)
	}))
	down := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, down.Code, down.Body.String())

	live := env.Request(http.MethodGet, "/health/live", nil, "")
	require.Equal(t, http.StatusOK, live.Code)
}

func TestHealthEndpoints_Disabled(t *testing.T) {
	env := testutil.NewEnv(t, func(cfg *app.Config) {
		cfg.Monitoring.Health.Enabled = false
	})

	w := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "disabled")
}

func TestMetricsEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Monitoring.Jobs().Record("token_cleanup", "success", "", 0)

	env.Request(http.MethodGet, "/api/courses", nil, "")

	w := env.Request(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.True(t, strings.Contains(body, "lms_api_latency_seconds"), "api latency histogram missing")
	require.Contains(t, body, `lms_maintenance_runs_total{job="token_cleanup",result="success"} 1`)
}

func TestMonitoringSummaryRequiresAdmin(t *testing.T) {
	env := testutil.NewEnv(t)
	_, adminToken := env.CreateAdmin()
	_, studentToken := env.CreateUser("Student")
	env.Monitoring.Jobs().Record("audit_cleanup", "failure", "boom", 0)

	anonymous := env.Request(http.MethodGet, "/api/monitoring/summary", nil, "")
	require.Equal(t, http.StatusUnauthorized, anonymous.Code)

	denied := env.Request(http.MethodGet, "/api/monitoring/summary", nil, studentToken)
	require.Equal(t, http.StatusForbidden, denied.Code)

	w := env.Request(http.MethodGet, "/api/monitoring/summary", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary struct {
		Jobs []struct {
			Job                 string `json:"job"`
			LastStatus          string `json:"lastStatus"`
			ConsecutiveFailures int    `json:"consecutiveFailures"`
		} `json:"jobs"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &summary)
	require.Len(t, summary.Jobs, 1)
	require.Equal(t, "audit_cleanup", summary.Jobs[0].Job)
	require.Equal(t, 1, summary.Jobs[0].ConsecutiveFailures)
}
