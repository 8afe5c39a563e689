package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/upskeel/lms/internal/services"
	appErrors "github.com/upskeel/lms/pkg/errors"
	"github.com/upskeel/lms/pkg/response"
)

// CourseHandler serves the course catalogue and its management endpoints.
type CourseHandler struct {
	courses *services.CourseService
}

// NewCourseHandler constructs a CourseHandler.
func NewCourseHandler(courses *services.CourseService) (*CourseHandler, error) {
	if courses == nil {
		return nil, errors.New("course handler: course service is required")
	}
	return &CourseHandler{courses: courses}, nil
}

type courseRequest struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=4000"`
	IsDraft     bool   `json:"isDraft"`
}

type reassignRequest struct {
	CourseID     flexibleID `json:"courseId" validate:"required"`
	InstructorID string     `json:"instructorId" validate:"required,notblank"`
}

type reassignResponse struct {
	services.ReassignResult
	Message string `json:"message"`
}

// flexibleID accepts an identifier sent either as a JSON string or a JSON number.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

// GET /api/courses
func (h *CourseHandler) ListPublished(c *gin.Context) {
	courses, err := h.courses.ListPublished(requestContext(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, courses)
}

// GET /api/courses/draft
func (h *CourseHandler) ListDrafts(c *gin.Context) {
	courses, err := h.courses.ListDrafts(requestContext(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, courses)
}

// GET /api/courses/my
func (h *CourseHandler) ListMine(c *gin.Context) {
	h.listOwned(c, false)
}

// GET /api/courses/my-drafts
func (h *CourseHandler) ListMyDrafts(c *gin.Context) {
	h.listOwned(c, true)
}

func (h *CourseHandler) listOwned(c *gin.Context, draftsOnly bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	courses, err := h.courses.ListByInstructor(requestContext(c), actor.UserID, draftsOnly)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, courses)
}

// GET /api/courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	id, err := services.ParseCourseID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.courses.Get(requestContext(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, course)
}

// POST /api/courses
func (h *CourseHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req courseRequest
	if !bindAndValidate(c, &req) {
		return
	}

	course, err := h.courses.Create(requestContext(c), actor, services.CourseInput{
		Title:       req.Title,
		Description: req.Description,
		IsDraft:     req.IsDraft,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, course)
}

// PUT /api/courses/publish/:id
func (h *CourseHandler) Publish(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := services.ParseCourseID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.courses.Publish(requestContext(c), actor, id); err != nil {
		fail(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Course published successfully")
}

// PUT /api/courses/reassign
func (h *CourseHandler) Reassign(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req reassignRequest
	if !bindAndValidate(c, &req) {
		return
	}
	id, err := services.ParseCourseID(string(req.CourseID))
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.courses.Reassign(requestContext(c), actor, id, req.InstructorID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, reassignResponse{
		ReassignResult: *result,
		Message:        "Instructor reassigned successfully",
	})
}

// PUT /api/courses/update/:id
func (h *CourseHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := services.ParseCourseID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	var req courseRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.courses.Update(requestContext(c), actor, id, services.CourseInput{
		Title:       req.Title,
		Description: req.Description,
	}); err != nil {
		fail(c, err)
		return
	}
	response.NoContent(c)
}

// DELETE /api/courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := services.ParseCourseID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.courses.Delete(requestContext(c), actor, id); err != nil {
		fail(c, err)
		return
	}
	response.NoContent(c)
}
