package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/upskeel/lms/internal/events"
	"github.com/upskeel/lms/internal/models"
	"github.com/upskeel/lms/internal/notifications"
	"github.com/upskeel/lms/internal/roles"
	apperrors "github.com/upskeel/lms/pkg/errors"
	"github.com/upskeel/lms/pkg/logger"
	"github.com/upskeel/lms/pkg/metrics"
)

// RegistrationInput carries a signup request. BaseURL is the origin of the
// incoming request and is used for the confirmation link when no public API
// URL is configured.
type RegistrationInput struct {
	Email     string
	FullName  string
	Password  string
	Role      string
	BaseURL   string
	IPAddress string
	UserAgent string
}

// RegistrationResult describes a committed registration.
type RegistrationResult struct {
	UserID             string
	Role               roles.Role
	RequiresApproval   bool
	ConfirmationLink   string
	NotificationQueued bool
}

// RegistrationDeps groups the collaborators of the registration orchestrator.
type RegistrationDeps struct {
	Credentials *CredentialService
	Roles       *RoleService
	Approvals   *ApprovalService
	Notifier    NotificationSender
	Events      events.Publisher
	Audit       *AuditService
	Links       Links
}

// RegistrationService runs a signup as one transaction: identity, role,
// approval request and confirmation token commit together, then the
// confirmation notification is dispatched.
type RegistrationService struct {
	db   *gorm.DB
	deps RegistrationDeps
	log  *zap.Logger
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(db *gorm.DB, deps RegistrationDeps) (*RegistrationService, error) {
	if db == nil {
		return nil, errors.New("registration service: db is required")
	}
	if deps.Credentials == nil || deps.Roles == nil || deps.Approvals == nil {
		return nil, errors.New("registration service: credential, role and approval services are required")
	}
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	return &RegistrationService{db: db, deps: deps, log: logger.WithModule("registration")}, nil
}

// Register validates the role, creates the identity and opens an approval
// request for instructors. Notification failures are logged and never undo
// the registration.
func (s *RegistrationService) Register(ctx context.Context, input RegistrationInput) (*RegistrationResult, error) {
	ctx = ensureContext(ctx)

	role, err := roles.Parse(input.Role)
	if err != nil {
		metrics.Registrations.WithLabelValues("unknown", "invalid_role").Inc()
		return nil, ErrInvalidRole
	}

	var (
		user  *models.User
		token string
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.deps.Roles.WithTx(tx).RoleExists(ctx, role.String())
		if err != nil {
			return err
		}
		if !exists {
			return ErrInvalidRole
		}

		user, err = s.deps.Credentials.WithTx(tx).CreateIdentity(ctx, NewIdentity{
			Email:      input.Email,
			Password:   input.Password,
			FullName:   input.FullName,
			IsApproved: !role.RequiresApproval(),
		})
		if err != nil {
			return err
		}

		if err := s.deps.Roles.WithTx(tx).AssignRole(ctx, user.ID, role.String()); err != nil {
			return err
		}

		if role.RequiresApproval() {
			if _, err := s.deps.Approvals.WithTx(tx).OpenRequest(ctx, user); err != nil {
				return err
			}
		}

		token, err = s.deps.Credentials.WithTx(tx).IssueEmailConfirmationToken(ctx, user.ID)
		return err
	})
	if err != nil {
		metrics.Registrations.WithLabelValues(role.String(), registrationFailure(err)).Inc()
		return nil, err
	}
	metrics.Registrations.WithLabelValues(role.String(), "success").Inc()

	result := &RegistrationResult{
		UserID:           user.ID,
		Role:             role,
		RequiresApproval: role.RequiresApproval(),
		ConfirmationLink: s.deps.Links.Confirmation(input.BaseURL, user.ID, token),
	}

	if s.deps.Notifier != nil {
		notification := notifications.ConfirmationEmail(user.Email, user.FullName, result.ConfirmationLink)
		if err := s.deps.Notifier.Dispatch(ctx, notification); err != nil {
			s.log.Warn("confirmation notification failed", zap.String("user_id", user.ID), zap.Error(err))
		} else {
			result.NotificationQueued = true
		}
	}

	s.publish(ctx, user, role)

	recordAudit(s.deps.Audit, ctx, AuditEntry{
		UserID:    &user.ID,
		Actor:     user.Email,
		Action:    "auth.register",
		Resource:  "user:" + user.ID,
		Result:    AuditSuccess,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
		Metadata:  map[string]any{"role": role.String(), "requiresApproval": result.RequiresApproval},
	})

	return result, nil
}

func (s *RegistrationService) publish(ctx context.Context, user *models.User, role roles.Role) {
	publishEvent(s.deps.Events, ctx, events.Event{
		Type: events.TypeUserRegistered,
		Key:  user.ID,
		Payload: map[string]any{
			"userId":   user.ID,
			"email":    user.Email,
			"fullName": user.FullName,
			"role":     role.String(),
		},
		OccurredAt: user.CreatedAt,
	})
	if role.RequiresApproval() {
		publishEvent(s.deps.Events, ctx, events.Event{
			Type:       events.TypeInstructorRequestOpened,
			Key:        user.ID,
			Payload:    map[string]any{"userId": user.ID, "email": user.Email},
			OccurredAt: user.CreatedAt,
		})
	}
}

func registrationFailure(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, ErrWeakPassword):
		return "weak_password"
	case errors.Is(err, ErrInvalidRole):
		return "invalid_role"
	case errors.Is(err, apperrors.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
