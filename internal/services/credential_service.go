package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/upskeel/lms/internal/models"
	"github.com/upskeel/lms/pkg/crypto"
)

const (
	defaultConfirmationTTL = 24 * time.Hour
	defaultResetTTL        = time.Hour
	defaultTokenBytes      = 32
)

// TokenSettings controls the lifetime and size of single-use tokens.
type TokenSettings struct {
	ConfirmationTTL time.Duration
	ResetTTL        time.Duration
	TokenBytes      int
}

// DefaultTokenSettings returns the standard token configuration.
func DefaultTokenSettings() TokenSettings {
	return TokenSettings{
		ConfirmationTTL: defaultConfirmationTTL,
		ResetTTL:        defaultResetTTL,
		TokenBytes:      defaultTokenBytes,
	}
}

// CredentialOption customises the CredentialService.
type CredentialOption func(*CredentialService)

// WithPasswordPolicy overrides the password policy applied to new passwords.
func WithPasswordPolicy(policy PasswordPolicy) CredentialOption {
	return func(s *CredentialService) {
		s.policy = policy
	}
}

// WithTokenSettings overrides token lifetimes. Zero values keep the defaults.
func WithTokenSettings(settings TokenSettings) CredentialOption {
	return func(s *CredentialService) {
		if settings.ConfirmationTTL > 0 {
			s.tokens.ConfirmationTTL = settings.ConfirmationTTL
		}
		if settings.ResetTTL > 0 {
			s.tokens.ResetTTL = settings.ResetTTL
		}
		if settings.TokenBytes > 0 {
			s.tokens.TokenBytes = settings.TokenBytes
		}
	}
}

// WithCredentialClock injects a custom time source.
func WithCredentialClock(clock func() time.Time) CredentialOption {
	return func(s *CredentialService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewIdentity describes an identity to create.
type NewIdentity struct {
	Email      string
	Password   string
	FullName   string
	IsApproved bool
}

// CredentialService owns identity records, password hashes and the
// confirmation and reset token lifecycles.
type CredentialService struct {
	db     *gorm.DB
	policy PasswordPolicy
	tokens TokenSettings
	now    func() time.Time
}

// NewCredentialService constructs a CredentialService.
func NewCredentialService(db *gorm.DB, opts ...CredentialOption) (*CredentialService, error) {
	if db == nil {
		return nil, errors.New("credential service: db is required")
	}

	service := &CredentialService{
		db:     db,
		policy: DefaultPasswordPolicy(),
		tokens: DefaultTokenSettings(),
		now:    utcNow,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// WithTx returns a copy of the service bound to tx.
func (s *CredentialService) WithTx(tx *gorm.DB) *CredentialService {
	cpy := *s
	cpy.db = tx
	return &cpy
}

// Tokens returns the active token settings.
func (s *CredentialService) Tokens() TokenSettings {
	return s.tokens
}

// CreateIdentity validates and stores a new identity. Email uniqueness is
// enforced by the users.email unique index; losing a race maps to ErrDuplicateEmail.
func (s *CredentialService) CreateIdentity(ctx context.Context, input NewIdentity) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	if email == "" {
		return nil, validationError("email is required")
	}
	if fullName == "" {
		return nil, validationError("fullName is required")
	}
	if err := s.policy.Validate(input.Password); err != nil {
		return nil, err
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("credential service: check email: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateEmail
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("credential service: hash password: %w", err)
	}

	user := &models.User{
		FullName:   fullName,
		Email:      email,
		Password:   hashed,
		IsApproved: input.IsApproved,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrDuplicateEmail.WithInternal(err)
		}
		return nil, fmt.Errorf("credential service: create identity: %w", err)
	}
	return user, nil
}

// FindByEmail loads an identity and its roles by email.
func (s *CredentialService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normaliseEmail(email)
	if email == "" {
		return nil, ErrUserNotFound
	}
	return s.findOne(ctx, "email = ?", email)
}

// FindByID loads an identity and its roles by id.
func (s *CredentialService) FindByID(ctx context.Context, id string) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrUserNotFound
	}
	return s.findOne(ctx, "id = ?", id)
}

func (s *CredentialService) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ensureContext(ctx)).Preload("Roles").Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credential service: load identity: %w", err)
	}
	return &user, nil
}

// ListUsers returns every identity with its roles ordered by creation time.
func (s *CredentialService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ensureContext(ctx)).Preload("Roles").Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("credential service: list users: %w", err)
	}
	return users, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// VerifyPassword compares plaintext with the identity's bcrypt hash. A nil
// identity is compared against a throwaway hash so timing does not reveal
// whether an account exists.
func (s *CredentialService) VerifyPassword(user *models.User, plaintext string) bool {
	if user == nil {
		dummyHashOnce.Do(func() {
			dummyHash, _ = crypto.HashPassword("lms-timing-equaliser")
		})
		crypto.VerifyPassword(dummyHash, plaintext)
		return false
	}
	return crypto.VerifyPassword(user.Password, plaintext)
}

// IssueEmailConfirmationToken creates a confirmation token for the identity,
// discarding any outstanding unconsumed ones.
func (s *CredentialService) IssueEmailConfirmationToken(ctx context.Context, userID string) (string, error) {
	ctx = ensureContext(ctx)

	token, err := crypto.GenerateToken(s.tokens.TokenBytes)
	if err != nil {
		return "", fmt.Errorf("credential service: generate token: %w", err)
	}

	verification := models.EmailVerification{
		UserID:    userID,
		TokenHash: crypto.HashToken(token),
		ExpiresAt: s.now().Add(s.tokens.ConfirmationTTL),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND verified_at IS NULL", userID).Delete(&models.EmailVerification{}).Error; err != nil {
			return fmt.Errorf("credential service: discard confirmation tokens: %w", err)
		}
		if err := tx.Create(&verification).Error; err != nil {
			return fmt.Errorf("credential service: store confirmation token: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// ConfirmEmail consumes a confirmation token and marks the identity confirmed.
// Confirming an already confirmed identity with a valid token succeeds.
func (s *CredentialService) ConfirmEmail(ctx context.Context, userID, token string) error {
	ctx = ensureContext(ctx)

	if _, err := s.FindByID(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidUser
		}
		return err
	}

	var verification models.EmailVerification
	if err := s.lookupToken(ctx, &verification, userID, token); err != nil {
		return err
	}
	now := s.now()
	if verification.VerifiedAt != nil {
		return ErrInvalidToken
	}
	if !now.Before(verification.ExpiresAt) {
		return ErrTokenExpired
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.EmailVerification{}).
			Where("id = ? AND verified_at IS NULL", verification.ID).
			Update("verified_at", now)
		if result.Error != nil {
			return fmt.Errorf("credential service: consume confirmation token: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrInvalidToken
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("email_confirmed", true).Error; err != nil {
			return fmt.Errorf("credential service: mark confirmed: %w", err)
		}
		return nil
	})
}

// IssuePasswordResetToken creates a reset token and supersedes earlier ones.
func (s *CredentialService) IssuePasswordResetToken(ctx context.Context, userID string) (string, error) {
	ctx = ensureContext(ctx)

	token, err := crypto.GenerateToken(s.tokens.TokenBytes)
	if err != nil {
		return "", fmt.Errorf("credential service: generate token: %w", err)
	}

	now := s.now()
	reset := models.PasswordResetToken{
		UserID:    userID,
		TokenHash: crypto.HashToken(token),
		ExpiresAt: now.Add(s.tokens.ResetTTL),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PasswordResetToken{}).
			Where("user_id = ? AND used_at IS NULL", userID).
			Update("used_at", now).Error; err != nil {
			return fmt.Errorf("credential service: supersede reset tokens: %w", err)
		}
		if err := tx.Create(&reset).Error; err != nil {
			return fmt.Errorf("credential service: store reset token: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword consumes a reset token and replaces the identity's password.
// A password rejected by the policy leaves the token usable.
func (s *CredentialService) ResetPassword(ctx context.Context, userID, token, newPassword string) error {
	ctx = ensureContext(ctx)

	if _, err := s.FindByID(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidUser
		}
		return err
	}

	var reset models.PasswordResetToken
	if err := s.lookupToken(ctx, &reset, userID, token); err != nil {
		return err
	}
	now := s.now()
	if reset.UsedAt != nil {
		return ErrInvalidToken
	}
	if !now.Before(reset.ExpiresAt) {
		return ErrTokenExpired
	}

	if err := s.policy.Validate(newPassword); err != nil {
		return err
	}
	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("credential service: hash password: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PasswordResetToken{}).
			Where("id = ? AND used_at IS NULL", reset.ID).
			Update("used_at", now)
		if result.Error != nil {
			return fmt.Errorf("credential service: consume reset token: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrInvalidToken
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("password", hashed).Error; err != nil {
			return fmt.Errorf("credential service: update password: %w", err)
		}
		if err := tx.Model(&models.PasswordResetToken{}).
			Where("user_id = ? AND used_at IS NULL", userID).
			Update("used_at", now).Error; err != nil {
			return fmt.Errorf("credential service: invalidate reset tokens: %w", err)
		}
		return nil
	})
}

// PurgeTokens deletes confirmation and reset tokens that are expired or consumed.
func (s *CredentialService) PurgeTokens(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	now := s.now()

	confirmations := s.db.WithContext(ctx).
		Where("expires_at < ? OR verified_at IS NOT NULL", now).
		Delete(&models.EmailVerification{})
	if confirmations.Error != nil {
		return 0, fmt.Errorf("credential service: purge confirmation tokens: %w", confirmations.Error)
	}

	resets := s.db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", now).
		Delete(&models.PasswordResetToken{})
	if resets.Error != nil {
		return confirmations.RowsAffected, fmt.Errorf("credential service: purge reset tokens: %w", resets.Error)
	}

	return confirmations.RowsAffected + resets.RowsAffected, nil
}

func (s *CredentialService) lookupToken(ctx context.Context, dest any, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND user_id = ?", crypto.HashToken(token), userID).
		First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("credential service: load token: %w", err)
	}
	return nil
}
