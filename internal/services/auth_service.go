package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/upskeel/lms/internal/auth"
	"github.com/upskeel/lms/internal/models"
	"github.com/upskeel/lms/internal/notifications"
	"github.com/upskeel/lms/internal/roles"
	apperrors "github.com/upskeel/lms/pkg/errors"
	"github.com/upskeel/lms/pkg/logger"
	"github.com/upskeel/lms/pkg/metrics"
)

// RequestMeta carries client details recorded in the audit log.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	BaseURL   string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// AuthOption customises the AuthService.
type AuthOption func(*AuthService)

// WithAuthNotifier sets the sink for reset and confirmation emails.
func WithAuthNotifier(sender NotificationSender) AuthOption {
	return func(s *AuthService) {
		s.notifier = sender
	}
}

// WithAuthAudit records authentication events.
func WithAuthAudit(audit *AuditService) AuthOption {
	return func(s *AuthService) {
		s.audit = audit
	}
}

// WithAuthLinks configures the URLs embedded in emails.
func WithAuthLinks(links Links) AuthOption {
	return func(s *AuthService) {
		s.links = links
	}
}

// WithRequireConfirmedEmail rejects logins from identities that never confirmed their email.
func WithRequireConfirmedEmail(required bool) AuthOption {
	return func(s *AuthService) {
		s.requireConfirmed = required
	}
}

// WithRevealUnknownEmail makes ForgotPassword fail for unknown addresses
// instead of answering generically.
func WithRevealUnknownEmail(reveal bool) AuthOption {
	return func(s *AuthService) {
		s.revealUnknown = reveal
	}
}

// AuthService authenticates identities and drives the self-service
// confirmation and password reset flows.
type AuthService struct {
	db               *gorm.DB
	credentials      *CredentialService
	jwt              *auth.JWTService
	notifier         NotificationSender
	audit            *AuditService
	links            Links
	requireConfirmed bool
	revealUnknown    bool
	log              *zap.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, credentials *CredentialService, jwt *auth.JWTService, opts ...AuthOption) (*AuthService, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}
	if credentials == nil {
		return nil, errors.New("auth service: credential service is required")
	}
	if jwt == nil {
		return nil, errors.New("auth service: jwt service is required")
	}

	service := &AuthService{
		db:          db,
		credentials: credentials,
		jwt:         jwt,
		log:         logger.WithModule("auth"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Login checks credentials and issues a bearer token. Unknown email and wrong
// password produce the same error. A correct password does not let an
// unapproved instructor in.
func (s *AuthService) Login(ctx context.Context, email, password string, meta RequestMeta) (*LoginResult, error) {
	ctx = ensureContext(ctx)

	user, err := s.credentials.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		metrics.AuthAttempts.WithLabelValues("error").Inc()
		return nil, err
	}

	if !s.credentials.VerifyPassword(user, password) {
		metrics.AuthAttempts.WithLabelValues("invalid_credentials").Inc()
		s.auditLogin(ctx, user, email, AuditFailure, "invalid_credentials", meta)
		return nil, apperrors.ErrInvalidCredentials
	}

	if user.HasRole(roles.Instructor.String()) && !user.IsApproved {
		metrics.AuthAttempts.WithLabelValues("not_approved").Inc()
		s.auditLogin(ctx, user, email, AuditDenied, "instructor_not_approved", meta)
		return nil, ErrInstructorNotApproved
	}

	if s.requireConfirmed && !user.EmailConfirmed {
		metrics.AuthAttempts.WithLabelValues("unconfirmed").Inc()
		s.auditLogin(ctx, user, email, AuditDenied, "email_not_confirmed", meta)
		return nil, ErrEmailNotConfirmed
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(auth.AccessTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Roles:  user.RoleNames(),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("auth service: issue token: %w", err)
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("last_login_at", now).Error; err != nil {
		s.log.Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	s.auditLogin(ctx, user, email, AuditSuccess, "", meta)

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Me returns the identity behind an authenticated request.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.credentials.FindByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperrors.ErrUnauthorized
	}
	return user, err
}

// ListUsers returns every identity with roles.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.credentials.ListUsers(ctx)
}

// ConfirmEmail consumes the confirmation token sent at registration.
func (s *AuthService) ConfirmEmail(ctx context.Context, userID, token string, meta RequestMeta) error {
	err := s.credentials.ConfirmEmail(ctx, userID, token)
	result := AuditSuccess
	if err != nil {
		result = AuditFailure
	}
	if !errors.Is(err, ErrInvalidUser) {
		recordAudit(s.audit, ctx, AuditEntry{
			UserID:    stringPtr(userID),
			Action:    "auth.confirm_email",
			Resource:  "user:" + userID,
			Result:    result,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
		})
	}
	return err
}

// ForgotPassword issues a reset token and emails the reset link. Unknown
// addresses are answered like known ones unless revealing them is enabled.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, meta RequestMeta) error {
	ctx = ensureContext(ctx)

	user, err := s.credentials.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		if s.revealUnknown {
			return ErrUnknownEmail
		}
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.credentials.IssuePasswordResetToken(ctx, user.ID)
	if err != nil {
		return err
	}

	if s.notifier != nil {
		link := s.links.PasswordReset(user.ID, token)
		if err := s.notifier.Dispatch(ctx, notifications.PasswordResetEmail(user.Email, user.FullName, link)); err != nil {
			s.log.Warn("password reset notification failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:    &user.ID,
		Actor:     user.Email,
		Action:    "auth.forgot_password",
		Resource:  "user:" + user.ID,
		Result:    AuditSuccess,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, userID, token, newPassword string, meta RequestMeta) error {
	err := s.credentials.ResetPassword(ctx, userID, token, newPassword)
	if errors.Is(err, ErrInvalidUser) {
		return err
	}
	result := AuditSuccess
	if err != nil {
		result = AuditFailure
	}
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:    stringPtr(userID),
		Action:    "auth.reset_password",
		Resource:  "user:" + userID,
		Result:    result,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	return err
}

// ResendConfirmation issues a fresh confirmation link for an unconfirmed
// identity. The outcome is never revealed to the caller.
func (s *AuthService) ResendConfirmation(ctx context.Context, email string, meta RequestMeta) error {
	ctx = ensureContext(ctx)

	user, err := s.credentials.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.EmailConfirmed {
		return nil
	}

	token, err := s.credentials.IssueEmailConfirmationToken(ctx, user.ID)
	if err != nil {
		return err
	}
	if s.notifier != nil {
		link := s.links.Confirmation(meta.BaseURL, user.ID, token)
		if err := s.notifier.Dispatch(ctx, notifications.ConfirmationEmail(user.Email, user.FullName, link)); err != nil {
			s.log.Warn("confirmation resend failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *AuthService) auditLogin(ctx context.Context, user *models.User, email, result, reason string, meta RequestMeta) {
	entry := AuditEntry{
		Actor:     email,
		Action:    "auth.login",
		Resource:  "session",
		Result:    result,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if user != nil {
		entry.UserID = &user.ID
	}
	if reason != "" {
		entry.Metadata = map[string]any{"reason": reason}
	}
	recordAudit(s.audit, ctx, entry)
}
