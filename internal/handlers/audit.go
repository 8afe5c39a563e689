package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/upskeel/lms/internal/services"
	appErrors "github.com/upskeel/lms/pkg/errors"
	"github.com/upskeel/lms/pkg/response"
)

type AuditHandler struct {
	svc *services.AuditService
}

func NewAuditHandler(svc *services.AuditService) (*AuditHandler, error) {
	if svc == nil {
		return nil, errors.New("audit handler: audit service is required")
	}
	return &AuditHandler{svc: svc}, nil
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	if page <= 0 {
		page = 1
	}
	per := parseIntQuery(c, "per_page", 50)
	if per <= 0 || per > 200 {
		per = 50
	}

	filters := services.AuditFilters{
		UserID:   strings.TrimSpace(c.Query("user_id")),
		Action:   strings.TrimSpace(c.Query("action")),
		Result:   strings.TrimSpace(c.Query("result")),
		Resource: strings.TrimSpace(c.Query("resource")),
	}

	var ok bool
	if filters.Since, ok = parseTimeQuery(c, "since"); !ok {
		return
	}
	if filters.Until, ok = parseTimeQuery(c, "until"); !ok {
		return
	}

	logs, total, err := h.svc.List(requestContext(c), services.AuditListOptions{Page: page, PageSize: per, Filters: filters})
	if err != nil {
		fail(c, err)
		return
	}

	totalPages := int((total + int64(per) - 1) / int64(per))
	response.SuccessWithMeta(c, http.StatusOK, logs, &response.Meta{Page: page, PerPage: per, Total: int(total), TotalPages: totalPages})
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		response.Error(c, appErrors.ErrValidation.WithMessage(key+" must be an RFC3339 timestamp"))
		return nil, false
	}
	return &t, true
}
