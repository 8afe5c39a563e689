package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upskeel/lms/internal/app"
	"github.com/upskeel/lms/internal/database"
	"github.com/upskeel/lms/internal/models"
)

func testConfig(t *testing.T) *app.Config {
	t.Helper()
	return &app.Config{
		Server: app.ServerConfig{Port: 0},
		Database: app.DatabaseConfig{
			Driver:       "sqlite",
			DSN:          database.MemoryDSN(t.Name()),
			MaxOpenConns: 1,
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{Secret: "bootstrap-test-secret", TTL: time.Hour},
		},
		Email: app.EmailConfig{FrontendURL: "https://lms.test"},
		Seed: app.SeedConfig{Admin: app.AdminSeedConfig{
			Email:    "root@example.com",
			Password: "Admin123!",
		}},
		Monitoring: app.MonitoringConfig{
			Metrics: app.MetricsConfig{Enabled: true, Endpoint: "/metrics"},
			Health:  app.HealthConfig{Enabled: true, Timeout: time.Second},
		},
	}
}

func TestBootstrapRuntimeServesRequests(t *testing.T) {
	cfg := testConfig(t)
	_, err := app.ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), zap.NewNop()) })

	require.NotNil(t, stack.Router)
	require.NotNil(t, stack.Services)
	require.Nil(t, stack.Redis)

	var admin models.User
	require.NoError(t, stack.DB.Preload("Roles").First(&admin, "email = ?", "root@example.com").Error)
	require.Equal(t, "System Admin", admin.FullName)
	require.True(t, admin.IsApproved)

	ready := httptest.NewRecorder()
	stack.Router.ServeHTTP(ready, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	require.Equal(t, http.StatusOK, ready.Code, ready.Body.String())

	body, err := json.Marshal(map[string]string{"email": "root@example.com", "password": "Admin123!"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	login := httptest.NewRecorder()
	stack.Router.ServeHTTP(login, req)
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())
}

func TestBootstrapRuntimeRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"
	cfg.Database.DSN = ""

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "open database")
}

func TestLoadApplicationConfig(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")

	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  port: 9191\n"), 0o600))

	fromDir, err := loadApplicationConfig(dir)
	require.NoError(t, err)
	require.Equal(t, 9191, fromDir.Server.Port)

	fromFile, err := loadApplicationConfig(file)
	require.NoError(t, err)
	require.Equal(t, 9191, fromFile.Server.Port)
}
