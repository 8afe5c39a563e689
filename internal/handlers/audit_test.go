package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upskeel/lms/internal/handlers/testutil"
)

func TestAuditHandler_ListsRecordedActions(t *testing.T) {
	env := testutil.NewEnv(t)
	_, adminToken := env.CreateAdmin()
	_, studentToken := env.CreateUser("Student")

	failed := env.Request(http.MethodPost, "/api/auth/login", map[string]string{"email": "ghost@example.com", "password": "Nope123!"}, "")
	require.Equal(t, http.StatusUnauthorized, failed.Code)

	denied := env.Request(http.MethodGet, "/api/audit", nil, studentToken)
	testutil.RequireError(t, denied, http.StatusForbidden, "FORBIDDEN")

	w := env.Request(http.MethodGet, "/api/audit?action=auth.login&result=failure&per_page=10", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	require.Equal(t, 1, resp.Meta.Page)
	require.Equal(t, 10, resp.Meta.PerPage)
	require.Equal(t, 1, resp.Meta.Total)

	var logs []struct {
		Action string `json:"action"`
		Actor  string `json:"actor"`
		Result string `json:"result"`
	}
	testutil.DecodeInto(t, resp.Data, &logs)
	require.Len(t, logs, 1)
	require.Equal(t, "ghost@example.com", logs[0].Actor)

	all := env.Request(http.MethodGet, "/api/audit", nil, adminToken)
	require.Equal(t, http.StatusOK, all.Code)
	require.Greater(t, testutil.DecodeResponse(t, all).Meta.Total, 1)

	badSince := env.Request(http.MethodGet, "/api/audit?since=yesterday", nil, adminToken)
	testutil.RequireError(t, badSince, http.StatusBadRequest, "VALIDATION_ERROR")
}
