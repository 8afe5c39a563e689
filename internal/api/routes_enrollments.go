package api

import (
	"github.com/gin-gonic/gin"

	"github.com/upskeel/lms/internal/app"
	"github.com/upskeel/lms/internal/handlers"
	"github.com/upskeel/lms/internal/middleware"
	"github.com/upskeel/lms/internal/roles"
)

func registerEnrollmentRoutes(api *gin.RouterGroup, svc *app.Services, requireAuth gin.HandlerFunc) error {
	handler, err := handlers.NewEnrollmentHandler(svc.Enrollments)
	if err != nil {
		return err
	}

	enrollments := api.Group("/enrollments", requireAuth)
	{
		enrollments.POST("/enroll/:courseId", middleware.RequireCapability(roles.StudentOnly), handler.Enroll)
		enrollments.GET("/myenrollments", middleware.RequireCapability(roles.StudentOnly), handler.ListMine)
		enrollments.GET("/course/:courseId", middleware.RequireCapability(roles.InstructorOnly), handler.ListForCourse)
		enrollments.GET("/all", middleware.RequireCapability(roles.AdminOnly), handler.ListAll)
	}
	return nil
}
