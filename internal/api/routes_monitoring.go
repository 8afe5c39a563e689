package api

import (
	"github.com/gin-gonic/gin"

	"github.com/upskeel/lms/internal/app"
	"github.com/upskeel/lms/internal/handlers"
	"github.com/upskeel/lms/internal/middleware"
	"github.com/upskeel/lms/internal/monitoring"
	"github.com/upskeel/lms/internal/roles"
)

func registerMonitoringRoutes(api *gin.RouterGroup, cfg *app.Config, mon *monitoring.Module, requireAuth gin.HandlerFunc) {
	handler := handlers.NewMonitoringHandler(mon, cfg)
	if handler == nil {
		return
	}

	group := api.Group("/monitoring", requireAuth)
	group.GET("/summary", middleware.RequireCapability(roles.AdminOnly), handler.Summary)
}
