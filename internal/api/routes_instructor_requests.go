package api

import (
	"github.com/gin-gonic/gin"

	"github.com/upskeel/lms/internal/app"
	"github.com/upskeel/lms/internal/handlers"
	"github.com/upskeel/lms/internal/middleware"
	"github.com/upskeel/lms/internal/roles"
)

func registerInstructorRequestRoutes(api *gin.RouterGroup, svc *app.Services, requireAuth gin.HandlerFunc) error {
	handler, err := handlers.NewInstructorRequestHandler(svc.Approvals)
	if err != nil {
		return err
	}

	requests := api.Group("/instructor-requests", requireAuth, middleware.RequireCapability(roles.AdminOnly))
	{
		requests.GET("", handler.List)
		requests.PATCH("/:id/approve", handler.Approve)
		requests.PATCH("/:id/reject", handler.Reject)
	}
	return nil
}
