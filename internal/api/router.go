package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/upskeel/lms/internal/app"
	iauth "github.com/upskeel/lms/internal/auth"
	"github.com/upskeel/lms/internal/middleware"
	"github.com/upskeel/lms/internal/monitoring"
)

// RouterOptions carries optional collaborators for the HTTP surface.
type RouterOptions struct {
	// RateStore backs the global rate limiter. Nil disables rate limiting.
	RateStore middleware.RateStore
	// Monitoring provides health probes, job summaries and the metrics registry.
	Monitoring *monitoring.Module
}

// NewRouter builds the Gin engine, wires middleware and registers every route under /api.
func NewRouter(cfg *app.Config, jwt *iauth.JWTService, svc *app.Services, opts RouterOptions) (*gin.Engine, error) {
	if cfg == nil {
		return nil, errors.New("config must be provided")
	}
	if jwt == nil {
		return nil, errors.New("jwt service must be provided")
	}
	if svc == nil {
		return nil, errors.New("services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins...))
	r.Use(middleware.RateLimit(opts.RateStore, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))

	registerHealthRoutes(r, cfg, opts.Monitoring)
	registerMetricsRoute(r, cfg, opts.Monitoring)

	api := r.Group("/api")
	requireAuth := middleware.Auth(jwt)

	if err := registerAuthRoutes(api, svc, requireAuth); err != nil {
		return nil, err
	}
	if err := registerInstructorRequestRoutes(api, svc, requireAuth); err != nil {
		return nil, err
	}
	if err := registerCourseRoutes(api, svc, requireAuth); err != nil {
		return nil, err
	}
	if err := registerEnrollmentRoutes(api, svc, requireAuth); err != nil {
		return nil, err
	}
	if err := registerAuditRoutes(api, svc, requireAuth); err != nil {
		return nil, err
	}
	registerMonitoringRoutes(api, cfg, opts.Monitoring, requireAuth)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func registerMetricsRoute(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	if !cfg.Monitoring.Metrics.Enabled {
		return
	}
	endpoint := strings.TrimSpace(cfg.Monitoring.Metrics.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	if mon != nil {
		r.GET(endpoint, gin.WrapH(mon.Handler()))
		return
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}
