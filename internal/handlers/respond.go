package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/upskeel/lms/pkg/errors"
	"github.com/upskeel/lms/pkg/response"
)

// fail renders err and attaches unexpected failures to the gin context so the
// access log carries the cause while the client only sees a generic message.
func fail(c *gin.Context, err error) {
	if appErr := appErrors.FromError(err); appErr.StatusCode >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.Error(c, err)
}
