package models

import "time"

// User is a registered LMS identity. IsApproved is false only while an
// instructor signup awaits review.
type User struct {
	BaseModel

	FullName       string `gorm:"size:200;not null" json:"fullName"`
	Email          string `gorm:"size:320;uniqueIndex;not null" json:"email"`
	Password       string `gorm:"not null" json:"-"`
	EmailConfirmed bool   `gorm:"not null;default:false" json:"emailConfirmed"`
	IsApproved     bool   `gorm:"not null" json:"isApproved"`

	Roles []Role `gorm:"many2many:user_roles;constraint:OnDelete:CASCADE" json:"roles,omitempty"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// RoleNames returns the names of the loaded role associations.
func (u *User) RoleNames() []string {
	if u == nil {
		return nil
	}
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.Name)
	}
	return names
}

// HasRole reports whether the loaded roles include name.
func (u *User) HasRole(name string) bool {
	for _, role := range u.RoleNames() {
		if role == name {
			return true
		}
	}
	return false
}
