package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/upskeel/lms/internal/models"
	"github.com/upskeel/lms/internal/services"
	appErrors "github.com/upskeel/lms/pkg/errors"
	"github.com/upskeel/lms/pkg/response"
)

// AuthHandler manages registration, login and the token based account flows.
type AuthHandler struct {
	auth         *services.AuthService
	registration *services.RegistrationService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *services.AuthService, registration *services.RegistrationService) (*AuthHandler, error) {
	if auth == nil || registration == nil {
		return nil, errors.New("auth handler: auth and registration services are required")
	}
	return &AuthHandler{auth: auth, registration: registration}, nil
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	FullName string `json:"fullName" validate:"required,notblank,max=200"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,notblank"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	UserID      string `json:"userId" validate:"required,notblank"`
	Token       string `json:"token" validate:"required,notblank"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type meResponse struct {
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

type userResponse struct {
	ID         string   `json:"id"`
	FullName   string   `json:"fullName"`
	Email      string   `json:"email"`
	IsApproved bool     `json:"isApproved"`
	Roles      []string `json:"roles"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	meta := requestMeta(c)
	result, err := h.registration.Register(requestContext(c), services.RegistrationInput{
		Email:     req.Email,
		FullName:  strings.TrimSpace(req.FullName),
		Password:  req.Password,
		Role:      req.Role,
		BaseURL:   meta.BaseURL,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message":          "Registration successful",
		"userId":           result.UserID,
		"requiresApproval": result.RequiresApproval,
	})
}

// GET /api/auth/confirm-email?userId=&token=
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	token := strings.TrimSpace(c.Query("token"))
	if userID == "" || token == "" {
		response.Error(c, services.ErrInvalidUser)
		return
	}

	if err := h.auth.ConfirmEmail(requestContext(c), userID, token, requestMeta(c)); err != nil {
		fail(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Email confirmed successfully")
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.Login(requestContext(c), req.Email, req.Password, requestMeta(c))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, loginResponse{Token: result.Token, ExpiresAt: result.ExpiresAt})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	user, err := h.auth.Me(requestContext(c), actor.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, meResponse{
		FullName: user.FullName,
		Email:    user.Email,
		Roles:    nonNilRoles(user),
	})
}

// GET /api/auth/users
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.auth.ListUsers(requestContext(c))
	if err != nil {
		fail(c, err)
		return
	}

	payload := make([]userResponse, 0, len(users))
	for i := range users {
		payload = append(payload, userResponse{
			ID:         users[i].ID,
			FullName:   users[i].FullName,
			Email:      users[i].Email,
			IsApproved: users[i].IsApproved,
			Roles:      nonNilRoles(&users[i]),
		})
	}
	response.Success(c, http.StatusOK, payload)
}

// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ForgotPassword(requestContext(c), req.Email, requestMeta(c)); err != nil {
		fail(c, err)
		return
	}

	response.Message(c, http.StatusOK, "If the address is registered, a password reset link has been sent")
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.auth.ResetPassword(requestContext(c), strings.TrimSpace(req.UserID), strings.TrimSpace(req.Token), req.NewPassword, requestMeta(c))
	if err != nil {
		fail(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Password reset successfully")
}

// POST /api/auth/resend-confirmation
func (h *AuthHandler) ResendConfirmation(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ResendConfirmation(requestContext(c), req.Email, requestMeta(c)); err != nil {
		fail(c, err)
		return
	}

	response.Message(c, http.StatusOK, "If the account exists and is unconfirmed, a new confirmation link has been sent")
}

func nonNilRoles(user *models.User) []string {
	names := user.RoleNames()
	if names == nil {
		return []string{}
	}
	return names
}
