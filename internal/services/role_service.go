package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/upskeel/lms/internal/models"
	"github.com/upskeel/lms/internal/roles"
)

// RoleService is the role registry: a mapping from the fixed role set to its
// member identities.
type RoleService struct {
	db *gorm.DB
}

// NewRoleService constructs a RoleService.
func NewRoleService(db *gorm.DB) (*RoleService, error) {
	if db == nil {
		return nil, errors.New("role service: db is required")
	}
	return &RoleService{db: db}, nil
}

// WithTx returns a registry bound to tx.
func (s *RoleService) WithTx(tx *gorm.DB) *RoleService {
	return &RoleService{db: tx}
}

// RoleExists reports whether name is part of the role set and has been seeded.
func (s *RoleService) RoleExists(ctx context.Context, name string) (bool, error) {
	role, err := roles.Parse(name)
	if err != nil {
		return false, nil
	}
	_, err = s.load(ctx, role)
	if errors.Is(err, ErrInvalidRole) {
		return false, nil
	}
	return err == nil, err
}

// IsInRole reports whether the identity holds the named role.
func (s *RoleService) IsInRole(ctx context.Context, userID, name string) (bool, error) {
	role, err := roles.Parse(name)
	if err != nil {
		return false, nil
	}

	var count int64
	err = s.db.WithContext(ensureContext(ctx)).
		Table("user_roles").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND roles.name = ?", userID, role.String()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("role service: check membership: %w", err)
	}
	return count > 0, nil
}

// AssignRole adds the identity to the named role. Assigning a held role is a no-op.
func (s *RoleService) AssignRole(ctx context.Context, userID, name string) error {
	ctx = ensureContext(ctx)

	role, err := roles.Parse(name)
	if err != nil {
		return ErrInvalidRole
	}
	record, err := s.load(ctx, role)
	if err != nil {
		return err
	}

	held, err := s.IsInRole(ctx, userID, role.String())
	if err != nil {
		return err
	}
	if held {
		return nil
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("role service: load user: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&user).Association("Roles").Append(record); err != nil {
		return fmt.Errorf("role service: assign %s: %w", role, err)
	}
	return nil
}

// RolesOf returns the role names held by the identity, sorted by name.
func (s *RoleService) RolesOf(ctx context.Context, userID string) ([]string, error) {
	var names []string
	err := s.db.WithContext(ensureContext(ctx)).
		Table("roles").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.name").
		Pluck("roles.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("role service: load roles: %w", err)
	}
	return names, nil
}

func (s *RoleService) load(ctx context.Context, role roles.Role) (*models.Role, error) {
	var record models.Role
	err := s.db.WithContext(ctx).Where("name = ?", role.String()).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidRole
	}
	if err != nil {
		return nil, fmt.Errorf("role service: load role: %w", err)
	}
	return &record, nil
}
