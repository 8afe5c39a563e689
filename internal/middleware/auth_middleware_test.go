package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/upskeel/lms/internal/auth"
	"github.com/upskeel/lms/internal/roles"
	"github.com/upskeel/lms/pkg/response"
)

func newJWT(t *testing.T) *iauth.JWTService {
	t.Helper()
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)
	return jwtSvc
}

func issue(t *testing.T, jwtSvc *iauth.JWTService, userID string, roleNames ...string) string {
	t.Helper()
	token, _, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: userID,
		Email:  userID + "@lms.test",
		Roles:  roleNames,
	})
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newJWT(t)
	token := issue(t, jwtSvc, "user-123", "Student")

	r := gin.New()
	r.GET("/secure", Auth(jwtSvc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(CtxUserIDKey),
			"email":   c.GetString(CtxEmailKey),
		})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "user-123", payload["user_id"])
	require.Equal(t, "user-123@lms.test", payload["email"])
}

func TestAuthRejectsForeignSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newJWT(t)

	other, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "other", Issuer: "test-suite"})
	require.NoError(t, err)
	forged := issue(t, other, "user-1", "Admin")

	r := gin.New()
	r.GET("/secure", Auth(jwtSvc), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireCapability(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newJWT(t)

	r := gin.New()
	r.GET("/admin", Auth(jwtSvc), RequireCapability(roles.AdminOnly), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/staff", Auth(jwtSvc), RequireCapability(roles.Staff), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/any", Auth(jwtSvc), RequireCapability(roles.Authenticated), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/unguarded", RequireCapability(roles.Authenticated), func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		path  string
		roles []string
		want  int
	}{
		{"/admin", []string{"Admin"}, http.StatusOK},
		{"/admin", []string{"Instructor"}, http.StatusForbidden},
		{"/staff", []string{"Instructor"}, http.StatusOK},
		{"/staff", []string{"Student"}, http.StatusForbidden},
		{"/any", nil, http.StatusOK},
		{"/unguarded", []string{"Admin"}, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Header.Set("Authorization", "Bearer "+issue(t, jwtSvc, "user-1", tc.roles...))
		r.ServeHTTP(w, req)
		require.Equal(t, tc.want, w.Code, "%s as %v", tc.path, tc.roles)

		if tc.want == http.StatusForbidden {
			var payload response.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
			require.Equal(t, "FORBIDDEN", payload.Error.Code)
		}
	}
}
