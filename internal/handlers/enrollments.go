package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/upskeel/lms/internal/services"
	appErrors "github.com/upskeel/lms/pkg/errors"
	"github.com/upskeel/lms/pkg/response"
)

// EnrollmentHandler serves student enrollments and the instructor/admin rosters.
type EnrollmentHandler struct {
	enrollments *services.EnrollmentService
}

// NewEnrollmentHandler constructs an EnrollmentHandler.
func NewEnrollmentHandler(enrollments *services.EnrollmentService) (*EnrollmentHandler, error) {
	if enrollments == nil {
		return nil, errors.New("enrollment handler: enrollment service is required")
	}
	return &EnrollmentHandler{enrollments: enrollments}, nil
}

// POST /api/enrollments/enroll/:courseId
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	courseID, err := services.ParseCourseID(c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	enrollment, err := h.enrollments.Enroll(requestContext(c), actor, courseID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, enrollment)
}

// GET /api/enrollments/myenrollments
func (h *EnrollmentHandler) ListMine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	enrollments, err := h.enrollments.ListForStudent(requestContext(c), actor.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, enrollments)
}

// GET /api/enrollments/course/:courseId
func (h *EnrollmentHandler) ListForCourse(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	courseID, err := services.ParseCourseID(c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	enrollments, err := h.enrollments.ListForCourse(requestContext(c), actor.UserID, courseID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, enrollments)
}

// GET /api/enrollments/all
func (h *EnrollmentHandler) ListAll(c *gin.Context) {
	enrollments, err := h.enrollments.ListAll(requestContext(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, enrollments)
}
