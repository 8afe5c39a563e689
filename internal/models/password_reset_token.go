package models

import "time"

// PasswordResetToken stores hashed reset tokens. UsedAt is set once consumed
// or superseded.
type PasswordResetToken struct {
	BaseModel

	UserID    string     `gorm:"type:uuid;not null;index" json:"userId"`
	User      *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TokenHash string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"index" json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt"`
}
