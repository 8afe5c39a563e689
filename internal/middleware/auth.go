package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/upskeel/lms/internal/auth"
	"github.com/upskeel/lms/pkg/errors"
	"github.com/upskeel/lms/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
	CtxEmailKey  = "userEmail"
	CtxRolesKey  = "userRoles"
)

// Auth enforces bearer token authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c)
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			unauthorized(c)
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxEmailKey, claims.Email)
		c.Set(CtxRolesKey, claims.Roles)
		c.Next()
	}
}

// ClaimsFromContext returns the validated claims placed by Auth.
func ClaimsFromContext(c *gin.Context) (*iauth.Claims, bool) {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*iauth.Claims)
	return claims, ok && claims != nil
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Error(c, errors.ErrUnauthorized)
	c.Abort()
}
