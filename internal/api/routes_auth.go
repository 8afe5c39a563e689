package api

import (
	"github.com/gin-gonic/gin"

	"github.com/upskeel/lms/internal/app"
	"github.com/upskeel/lms/internal/handlers"
	"github.com/upskeel/lms/internal/middleware"
	"github.com/upskeel/lms/internal/roles"
)

func registerAuthRoutes(api *gin.RouterGroup, svc *app.Services, requireAuth gin.HandlerFunc) error {
	handler, err := handlers.NewAuthHandler(svc.Auth, svc.Registration)
	if err != nil {
		return err
	}

	auth := api.Group("/auth")
	{
		auth.POST("/register", handler.Register)
		auth.GET("/confirm-email", handler.ConfirmEmail)
		auth.POST("/login", handler.Login)
		auth.POST("/forgot-password", handler.ForgotPassword)
		auth.POST("/reset-password", handler.ResetPassword)
		auth.POST("/resend-confirmation", handler.ResendConfirmation)

		auth.GET("/me", requireAuth, middleware.RequireCapability(roles.Authenticated), handler.Me)
		auth.GET("/users", requireAuth, middleware.RequireCapability(roles.AdminOnly), handler.ListUsers)
	}
	return nil
}
