package api

import (
	"github.com/gin-gonic/gin"

	"github.com/upskeel/lms/internal/app"
	"github.com/upskeel/lms/internal/handlers"
	"github.com/upskeel/lms/internal/middleware"
	"github.com/upskeel/lms/internal/roles"
)

func registerCourseRoutes(api *gin.RouterGroup, svc *app.Services, requireAuth gin.HandlerFunc) error {
	handler, err := handlers.NewCourseHandler(svc.Courses)
	if err != nil {
		return err
	}

	courses := api.Group("/courses")
	{
		courses.GET("", handler.ListPublished)
		courses.GET("/draft", requireAuth, middleware.RequireCapability(roles.AdminOnly), handler.ListDrafts)
		courses.GET("/my", requireAuth, middleware.RequireCapability(roles.InstructorOnly), handler.ListMine)
		courses.GET("/my-drafts", requireAuth, middleware.RequireCapability(roles.InstructorOnly), handler.ListMyDrafts)
		courses.GET("/:id", handler.Get)

		courses.POST("", requireAuth, middleware.RequireCapability(roles.Staff), handler.Create)
		courses.PUT("/publish/:id", requireAuth, middleware.RequireCapability(roles.AdminOnly), handler.Publish)
		courses.PUT("/reassign", requireAuth, middleware.RequireCapability(roles.AdminOnly), handler.Reassign)
		courses.PUT("/update/:id", requireAuth, middleware.RequireCapability(roles.Staff), handler.Update)
		courses.DELETE("/:id", requireAuth, middleware.RequireCapability(roles.AdminOnly), handler.Delete)
	}
	return nil
}
