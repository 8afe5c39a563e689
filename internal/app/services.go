package app

import (
	"errors"

	"gorm.io/gorm"

	"github.com/upskeel/lms/internal/auth"
	"github.com/upskeel/lms/internal/events"
	"github.com/upskeel/lms/internal/services"
)

// ServiceDeps carries the collaborators that live outside the database.
type ServiceDeps struct {
	Notifier services.NotificationSender
	Events   events.Publisher
}

// Services bundles the domain services shared by the HTTP router and the CLI.
type Services struct {
	Audit        *services.AuditService
	Credentials  *services.CredentialService
	Roles        *services.RoleService
	Approvals    *services.ApprovalService
	Registration *services.RegistrationService
	Auth         *services.AuthService
	Courses      *services.CourseService
	Enrollments  *services.EnrollmentService
}

// NewServices wires every domain service against db using cfg.
func NewServices(db *gorm.DB, jwt *auth.JWTService, cfg *Config, deps ServiceDeps) (*Services, error) {
	if db == nil {
		return nil, errors.New("services: database handle must be provided")
	}
	if jwt == nil {
		return nil, errors.New("services: jwt service must be provided")
	}
	if cfg == nil {
		return nil, errors.New("services: config must be provided")
	}
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}

	links := cfg.Email.Links()
	svc := &Services{}

	var err error
	if svc.Audit, err = services.NewAuditService(db); err != nil {
		return nil, err
	}

	svc.Credentials, err = services.NewCredentialService(db,
		services.WithPasswordPolicy(cfg.Auth.PasswordPolicy()),
		services.WithTokenSettings(cfg.Auth.TokenSettings()),
	)
	if err != nil {
		return nil, err
	}

	if svc.Roles, err = services.NewRoleService(db); err != nil {
		return nil, err
	}

	approvalOpts := []services.ApprovalOption{
		services.WithApprovalEvents(deps.Events),
		services.WithApprovalAudit(svc.Audit),
	}
	if deps.Notifier != nil {
		approvalOpts = append(approvalOpts, services.WithApprovalNotifier(deps.Notifier))
	}
	if svc.Approvals, err = services.NewApprovalService(db, approvalOpts...); err != nil {
		return nil, err
	}

	svc.Registration, err = services.NewRegistrationService(db, services.RegistrationDeps{
		Credentials: svc.Credentials,
		Roles:       svc.Roles,
		Approvals:   svc.Approvals,
		Notifier:    deps.Notifier,
		Events:      deps.Events,
		Audit:       svc.Audit,
		Links:       links,
	})
	if err != nil {
		return nil, err
	}

	authOpts := []services.AuthOption{
		services.WithAuthAudit(svc.Audit),
		services.WithAuthLinks(links),
		services.WithRequireConfirmedEmail(cfg.Auth.RequireConfirmedEmail),
		services.WithRevealUnknownEmail(cfg.Auth.ForgotPasswordRevealUnknown),
	}
	if deps.Notifier != nil {
		authOpts = append(authOpts, services.WithAuthNotifier(deps.Notifier))
	}
	if svc.Auth, err = services.NewAuthService(db, svc.Credentials, jwt, authOpts...); err != nil {
		return nil, err
	}

	if svc.Courses, err = services.NewCourseService(db, svc.Roles, deps.Events, svc.Audit); err != nil {
		return nil, err
	}
	if svc.Enrollments, err = services.NewEnrollmentService(db, svc.Audit); err != nil {
		return nil, err
	}

	return svc, nil
}
