package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/upskeel/lms/internal/roles"
	"github.com/upskeel/lms/pkg/errors"
	"github.com/upskeel/lms/pkg/logger"
	"github.com/upskeel/lms/pkg/metrics"
	"github.com/upskeel/lms/pkg/response"
)

// RequireCapability allows the request through only when the authenticated
// role claims satisfy capability. It must run after Auth.
func RequireCapability(capability roles.Capability) gin.HandlerFunc {
	requirement := string(capability)
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			metrics.AccessChecks.WithLabelValues(requirement, "deny").Inc()
			unauthorized(c)
			return
		}

		if !capability.Allows(claims.Roles) {
			metrics.AccessChecks.WithLabelValues(requirement, "deny").Inc()
			logger.WithModule("access").Debug("capability denied",
				zap.String("user_id", claims.UserID),
				zap.String("requirement", requirement),
				zap.Strings("roles", claims.Roles),
				zap.String("path", c.FullPath()),
			)
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		metrics.AccessChecks.WithLabelValues(requirement, "allow").Inc()
		c.Next()
	}
}
