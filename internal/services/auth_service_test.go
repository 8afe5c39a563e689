package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/upskeel/lms/internal/models"
	"github.com/upskeel/lms/internal/notifications"
	apperrors "github.com/upskeel/lms/pkg/errors"
)

func TestLoginIssuesTokenWithRoles(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	registered := s.register(t, "student@example.com", "Student")

	result, err := s.auth.Login(ctx, "STUDENT@example.com", "Secret123!", RequestMeta{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.NotNil(t, result.User.LastLoginAt)

	claims, err := s.jwt.ValidateAccessToken(result.Token)
	require.NoError(t, err)
	require.Equal(t, registered.UserID, claims.UserID)
	require.Equal(t, registered.UserID, claims.Subject)
	require.Equal(t, []string{"Student"}, claims.Roles)
	require.WithinDuration(t, result.ExpiresAt, claims.ExpiresAt.Time, time.Second)
}

func TestLoginRejectsBadCredentialsUniformly(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.register(t, "student@example.com", "Student")

	_, wrongPassword := s.auth.Login(ctx, "student@example.com", "Wrong123!", RequestMeta{})
	require.ErrorIs(t, wrongPassword, apperrors.ErrInvalidCredentials)

	_, unknown := s.auth.Login(ctx, "nobody@example.com", "Secret123!", RequestMeta{})
	require.ErrorIs(t, unknown, apperrors.ErrInvalidCredentials)

	require.Equal(t, wrongPassword.Error(), unknown.Error())

	var failures int64
	require.NoError(t, s.db.Model(&models.AuditLog{}).Where("action = ? AND result = ?", "auth.login", AuditFailure).Count(&failures).Error)
	require.Equal(t, int64(2), failures)
}

func TestLoginGatesUnapprovedInstructor(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	registered := s.register(t, "a@b.com", "Instructor")

	_, err := s.auth.Login(ctx, "a@b.com", "Secret123!", RequestMeta{})
	require.ErrorIs(t, err, ErrInstructorNotApproved)
	appErr := apperrors.FromError(err)
	require.Equal(t, 401, appErr.StatusCode)
	require.Equal(t, "Instructor accounts require admin approval!", appErr.Message)

	_, err = s.auth.Login(ctx, "a@b.com", "Wrong123!", RequestMeta{})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = s.approvals.Decide(ctx, DecisionInput{RequestID: s.pendingRequestID(t, registered.UserID), Outcome: models.ApprovalApproved})
	require.NoError(t, err)

	result, err := s.auth.Login(ctx, "a@b.com", "Secret123!", RequestMeta{})
	require.NoError(t, err)
	claims, err := s.jwt.ValidateAccessToken(result.Token)
	require.NoError(t, err)
	require.True(t, claims.HasRole("Instructor"))
}

func TestLoginRequireConfirmedEmail(t *testing.T) {
	s := newTestStack(t, withAuthOptions(WithRequireConfirmedEmail(true)))
	ctx := context.Background()
	registered := s.register(t, "student@example.com", "Student")

	_, err := s.auth.Login(ctx, "student@example.com", "Secret123!", RequestMeta{})
	require.ErrorIs(t, err, ErrEmailNotConfirmed)

	userID, token := tokenFromLink(t, registered.ConfirmationLink)
	require.NoError(t, s.auth.ConfirmEmail(ctx, userID, token, RequestMeta{}))

	_, err = s.auth.Login(ctx, "student@example.com", "Secret123!", RequestMeta{})
	require.NoError(t, err)
}

func TestMe(t *testing.T) {
	s := newTestStack(t)
	registered := s.register(t, "student@example.com", "Student")

	user, err := s.auth.Me(context.Background(), registered.UserID)
	require.NoError(t, err)
	require.Equal(t, "student@example.com", user.Email)

	_, err = s.auth.Me(context.Background(), "missing")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestForgotAndResetPassword(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	registered := s.register(t, "student@example.com", "Student")

	require.NoError(t, s.auth.ForgotPassword(ctx, "student@example.com", RequestMeta{}))
	note := s.notifier.last(t)
	require.Equal(t, notifications.KindPasswordReset, note.Kind)
	require.Equal(t, "Reset your LMS password", note.Subject)

	link := strings.TrimPrefix(note.Body, "Click here to reset: ")
	require.True(t, strings.HasPrefix(link, "https://lms.test/reset-password?"))
	userID, token := tokenFromLink(t, link)
	require.Equal(t, registered.UserID, userID)

	require.NoError(t, s.auth.ResetPassword(ctx, userID, token, "Changed123!", RequestMeta{}))
	require.ErrorIs(t, s.auth.ResetPassword(ctx, userID, token, "Changed456!", RequestMeta{}), ErrInvalidToken)

	_, err := s.auth.Login(ctx, "student@example.com", "Secret123!", RequestMeta{})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = s.auth.Login(ctx, "student@example.com", "Changed123!", RequestMeta{})
	require.NoError(t, err)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	s := newTestStack(t)
	sentBefore := s.notifier.count()
	require.NoError(t, s.auth.ForgotPassword(context.Background(), "nobody@example.com", RequestMeta{}))
	require.Equal(t, sentBefore, s.notifier.count())

	revealing := newTestStack(t, withAuthOptions(WithRevealUnknownEmail(true)))
	err := revealing.auth.ForgotPassword(context.Background(), "nobody@example.com", RequestMeta{})
	require.ErrorIs(t, err, ErrUnknownEmail)
}

func TestResendConfirmation(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	registered := s.register(t, "student@example.com", "Student")
	original := s.notifier.count()

	require.NoError(t, s.auth.ResendConfirmation(ctx, "nobody@example.com", RequestMeta{}))
	require.Equal(t, original, s.notifier.count())

	require.NoError(t, s.auth.ResendConfirmation(ctx, "student@example.com", RequestMeta{BaseURL: "http://ignored"}))
	require.Equal(t, original+1, s.notifier.count())

	_, staleToken := tokenFromLink(t, registered.ConfirmationLink)
	require.ErrorIs(t, s.credentials.ConfirmEmail(ctx, registered.UserID, staleToken), ErrInvalidToken)

	link := strings.TrimPrefix(s.notifier.last(t).Body, "Click here to confirm: ")
	userID, token := tokenFromLink(t, link)
	require.NoError(t, s.auth.ConfirmEmail(ctx, userID, token, RequestMeta{}))

	require.NoError(t, s.auth.ResendConfirmation(ctx, "student@example.com", RequestMeta{}))
	require.Equal(t, original+1, s.notifier.count(), "confirmed identities get no further links")
}
