package api

import (
	"github.com/gin-gonic/gin"

	"github.com/upskeel/lms/internal/app"
	"github.com/upskeel/lms/internal/handlers"
	"github.com/upskeel/lms/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	var manager *monitoring.HealthManager
	if cfg.Monitoring.Health.Enabled && mon != nil {
		manager = mon.Health()
	}
	handler := handlers.NewHealthHandler(manager)

	registerHealthEndpoints(r, handler)
	registerHealthEndpoints(r.Group("/api"), handler)
}

func registerHealthEndpoints(router gin.IRouter, handler *handlers.HealthHandler) {
	router.GET("/health", handler.Overall)
	router.GET("/health/live", handler.Live)
	router.GET("/health/ready", handler.Ready)
}
