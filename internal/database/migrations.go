package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/upskeel/lms/internal/models"
	"github.com/upskeel/lms/internal/roles"
	"github.com/upskeel/lms/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// SeedData populates the fixed role set. It is safe to run repeatedly.
func SeedData(db *gorm.DB) error {
	for _, r := range roles.All() {
		role := models.Role{Name: r.String(), Description: r.Description()}
		if err := db.Where(models.Role{Name: role.Name}).Attrs(role).FirstOrCreate(&models.Role{}).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", r, err)
		}
	}
	return nil
}

// AdminSeed describes the bootstrap administrator account.
type AdminSeed struct {
	Email    string
	Password string
	FullName string
}

// SeedAdmin creates the administrator identity when it does not exist yet and
// ensures it holds the Admin role. It reports whether a new identity was created.
func SeedAdmin(db *gorm.DB, seed AdminSeed) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(seed.Email))
	if email == "" || seed.Password == "" {
		return false, errors.New("admin seed requires email and password")
	}
	fullName := strings.TrimSpace(seed.FullName)
	if fullName == "" {
		fullName = "System Admin"
	}

	created := false
	err := db.Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.Where("name = ?", roles.Admin.String()).First(&role).Error; err != nil {
			return fmt.Errorf("load admin role: %w", err)
		}

		var user models.User
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			hash, hashErr := crypto.HashPassword(seed.Password)
			if hashErr != nil {
				return fmt.Errorf("hash admin password: %w", hashErr)
			}
			user = models.User{
				FullName:       fullName,
				Email:          email,
				Password:       hash,
				EmailConfirmed: true,
				IsApproved:     true,
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			created = true
		case err != nil:
			return fmt.Errorf("lookup admin: %w", err)
		}

		var count int64
		if err := tx.Table("user_roles").Where("user_id = ? AND role_id = ?", user.ID, role.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("check admin role: %w", err)
		}
		if count == 0 {
			if err := tx.Model(&user).Association("Roles").Append(&role); err != nil {
				return fmt.Errorf("assign admin role: %w", err)
			}
		}
		return nil
	})
	return created, err
}
