package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/upskeel/lms/internal/middleware"
	"github.com/upskeel/lms/internal/services"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// actorFromContext converts the verified token claims into a service actor.
func actorFromContext(c *gin.Context) (services.Actor, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		return services.Actor{}, false
	}
	return services.Actor{
		UserID: claims.UserID,
		Email:  claims.Email,
		Roles:  claims.Roles,
	}, true
}

func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		BaseURL:   requestBaseURL(c),
	}
}

// requestBaseURL reconstructs scheme://host for the current request, honouring
// X-Forwarded-Proto and X-Forwarded-Host from a fronting proxy.
func requestBaseURL(c *gin.Context) string {
	req := c.Request
	if req == nil {
		return ""
	}

	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	if proto := firstHeaderValue(req.Header.Get("X-Forwarded-Proto")); proto != "" {
		scheme = strings.ToLower(proto)
	}

	host := req.Host
	if forwarded := firstHeaderValue(req.Header.Get("X-Forwarded-Host")); forwarded != "" {
		host = forwarded
	}
	if host == "" {
		return ""
	}
	return scheme + "://" + host
}

func firstHeaderValue(value string) string {
	if idx := strings.Index(value, ","); idx >= 0 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}
