package models

import "time"

// EmailVerification stores hashed confirmation tokens issued at registration.
type EmailVerification struct {
	BaseModel

	UserID     string     `gorm:"type:uuid;not null;index" json:"userId"`
	User       *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TokenHash  string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt  time.Time  `gorm:"index" json:"expiresAt"`
	VerifiedAt *time.Time `json:"verifiedAt"`
}
