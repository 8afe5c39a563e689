package api

import (
	"github.com/gin-gonic/gin"

	"github.com/upskeel/lms/internal/app"
	"github.com/upskeel/lms/internal/handlers"
	"github.com/upskeel/lms/internal/middleware"
	"github.com/upskeel/lms/internal/roles"
)

func registerAuditRoutes(api *gin.RouterGroup, svc *app.Services, requireAuth gin.HandlerFunc) error {
	handler, err := handlers.NewAuditHandler(svc.Audit)
	if err != nil {
		return err
	}
	api.GET("/audit", requireAuth, middleware.RequireCapability(roles.AdminOnly), handler.List)
	return nil
}
