package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/upskeel/lms/internal/models"
	"github.com/upskeel/lms/internal/services"
	appErrors "github.com/upskeel/lms/pkg/errors"
	"github.com/upskeel/lms/pkg/response"
)

// InstructorRequestHandler exposes the admin side of the instructor approval workflow.
type InstructorRequestHandler struct {
	approvals *services.ApprovalService
}

// NewInstructorRequestHandler constructs an InstructorRequestHandler.
func NewInstructorRequestHandler(approvals *services.ApprovalService) (*InstructorRequestHandler, error) {
	if approvals == nil {
		return nil, errors.New("instructor request handler: approval service is required")
	}
	return &InstructorRequestHandler{approvals: approvals}, nil
}

// GET /api/instructor-requests?status=
func (h *InstructorRequestHandler) List(c *gin.Context) {
	status, ok := parseApprovalStatus(c.Query("status"))
	if !ok {
		response.Error(c, appErrors.ErrValidation.WithMessage("status must be Pending, Approved or Rejected"))
		return
	}

	requests, err := h.approvals.ListRequests(requestContext(c), services.ApprovalFilter{Status: status})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, requests)
}

// PATCH /api/instructor-requests/:id/approve
func (h *InstructorRequestHandler) Approve(c *gin.Context) {
	h.decide(c, models.ApprovalApproved, "Request approved!")
}

// PATCH /api/instructor-requests/:id/reject
func (h *InstructorRequestHandler) Reject(c *gin.Context) {
	h.decide(c, models.ApprovalRejected, "Request rejected!")
}

func (h *InstructorRequestHandler) decide(c *gin.Context, outcome models.ApprovalStatus, message string) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	_, err := h.approvals.Decide(requestContext(c), services.DecisionInput{
		RequestID:  c.Param("id"),
		Outcome:    outcome,
		ReviewerID: actor.UserID,
		Reviewer:   actor.Email,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Message(c, http.StatusOK, message)
}

func parseApprovalStatus(raw string) (models.ApprovalStatus, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", true
	}
	for _, status := range []models.ApprovalStatus{models.ApprovalPending, models.ApprovalApproved, models.ApprovalRejected} {
		if strings.EqualFold(raw, string(status)) {
			return status, true
		}
	}
	return "", false
}
