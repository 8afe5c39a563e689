package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/upskeel/lms/internal/api"
	"github.com/upskeel/lms/internal/app"
	iauth "github.com/upskeel/lms/internal/auth"
	"github.com/upskeel/lms/internal/database"
	sharedtestutil "github.com/upskeel/lms/internal/database/testutil"
	"github.com/upskeel/lms/internal/events"
	"github.com/upskeel/lms/internal/middleware"
	"github.com/upskeel/lms/internal/models"
	"github.com/upskeel/lms/internal/monitoring"
	"github.com/upskeel/lms/internal/monitoring/checks"
	"github.com/upskeel/lms/internal/notifications"
	"github.com/upskeel/lms/pkg/response"
)

// DefaultPassword satisfies the password policy and is used by the helper constructors.
const DefaultPassword = "Secret123!"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T          *testing.T
	DB         *gorm.DB
	Router     *gin.Engine
	JWT        *iauth.JWTService
	Config     *app.Config
	Services   *app.Services
	Monitoring *monitoring.Module
	Notifier   *Outbox
	Events     *events.Recorder
}

// EnvOption adjusts the configuration before the router is built.
type EnvOption func(*app.Config)

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret:   "test-suite-super-secret-key-32-bytes!!",
				Issuer:   "lms-test",
				Audience: "lms-test-clients",
				TTL:      time.Hour,
			},
		},
		Email: app.EmailConfig{
			APIBaseURL:  "https://api.lms.test",
			FrontendURL: "https://lms.test",
		},
		Monitoring: app.MonitoringConfig{
			Metrics: app.MetricsConfig{Enabled: true, Endpoint: "/metrics"},
			Health:  app.HealthConfig{Enabled: true},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	outbox := &Outbox{}
	recorder := &events.Recorder{}
	svc, err := app.NewServices(db, jwtSvc, cfg, app.ServiceDeps{Notifier: outbox, Events: recorder})
	require.NoError(t, err)

	mon, err := monitoring.NewModule(monitoring.Options{})
	require.NoError(t, err)
	mon.Health().RegisterReadiness(checks.Database(db, time.Second))

	router, err := api.NewRouter(cfg, jwtSvc, svc, api.RouterOptions{
		RateStore:  middleware.NewMemoryRateStore(),
		Monitoring: mon,
	})
	require.NoError(t, err)

	return &Env{
		T:          t,
		DB:         db,
		Router:     router,
		JWT:        jwtSvc,
		Config:     cfg,
		Services:   svc,
		Monitoring: mon,
		Notifier:   outbox,
		Events:     recorder,
	}
}

// Outbox records notifications instead of sending them.
type Outbox struct {
	mu   sync.Mutex
	sent []notifications.Notification
}

// Dispatch stores n.
func (o *Outbox) Dispatch(_ context.Context, n notifications.Notification) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, n)
	return nil
}

// Sent returns a copy of every recorded notification.
func (o *Outbox) Sent() []notifications.Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]notifications.Notification, len(o.sent))
	copy(out, o.sent)
	return out
}

// LastTo returns the most recent notification of kind addressed to recipient.
func (o *Outbox) LastTo(t *testing.T, recipient string, kind notifications.Kind) notifications.Notification {
	t.Helper()
	sent := o.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].Kind == kind && strings.EqualFold(sent[i].Recipient, recipient) {
			return sent[i]
		}
	}
	t.Fatalf("no %s notification sent to %s", kind, recipient)
	return notifications.Notification{}
}

// LinkParams extracts userId and token from the link embedded in a notification body.
func LinkParams(t *testing.T, n notifications.Notification) (string, string) {
	t.Helper()
	idx := strings.Index(n.Body, "https://")
	require.GreaterOrEqual(t, idx, 0, "notification body carries no link: %q", n.Body)
	link := strings.Fields(n.Body[idx:])[0]
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	return parsed.Query().Get("userId"), parsed.Query().Get("token")
}

// RegisterResult mirrors the registration response payload.
type RegisterResult struct {
	Message          string `json:"message"`
	UserID           string `json:"userId"`
	RequiresApproval bool   `json:"requiresApproval"`
}

// Register calls POST /api/auth/register and requires success.
func (e *Env) Register(email, fullName, role string) RegisterResult {
	e.T.Helper()

	payload := map[string]string{
		"email":    email,
		"fullName": fullName,
		"password": DefaultPassword,
		"role":     role,
	}
	w := e.Request(http.MethodPost, "/api/auth/register", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	var result RegisterResult
	DecodeInto(e.T, DecodeResponse(e.T, w).Data, &result)
	require.NotEmpty(e.T, result.UserID)
	return result
}

// UniqueEmail returns a fresh address with the given prefix.
func UniqueEmail(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8] + "@example.com"
}

// CreateUser registers a user with role and, for instructors, approves the
// account directly in the database. It returns the identity and a bearer token.
func (e *Env) CreateUser(role string) (*models.User, string) {
	e.T.Helper()

	email := UniqueEmail(strings.ToLower(role))
	result := e.Register(email, "Test "+role, role)
	if result.RequiresApproval {
		require.NoError(e.T, e.DB.Model(&models.User{}).Where("id = ?", result.UserID).Update("is_approved", true).Error)
	}

	var user models.User
	require.NoError(e.T, e.DB.Preload("Roles").First(&user, "id = ?", result.UserID).Error)
	return &user, e.Login(email, DefaultPassword).Token
}

// CreateAdmin seeds an administrator the way the server does at start-up.
func (e *Env) CreateAdmin() (*models.User, string) {
	e.T.Helper()

	email := UniqueEmail("admin")
	_, err := database.SeedAdmin(e.DB, database.AdminSeed{Email: email, Password: DefaultPassword})
	require.NoError(e.T, err)

	var user models.User
	require.NoError(e.T, e.DB.Preload("Roles").First(&user, "email = ?", email).Error)
	return &user, e.Login(email, DefaultPassword).Token
}

// LoginResult mirrors the login response payload.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login authenticates and returns the issued token.
func (e *Env) Login(email, password string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Token)
	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// RequireError asserts an error envelope with the given status and code.
func RequireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	require.Equal(t, code, resp.Error.Code)
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
// A json.RawMessage body is sent verbatim.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	switch v := body.(type) {
	case nil:
		buf = bytes.NewBuffer(nil)
	case json.RawMessage:
		buf = bytes.NewBuffer(v)
	default:
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
