package models

import "time"

// ApprovalStatus tracks the state of an instructor approval request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "Pending"
	ApprovalApproved ApprovalStatus = "Approved"
	ApprovalRejected ApprovalStatus = "Rejected"
)

// Valid reports whether s is a known status.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// Terminal reports whether s can no longer change.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected
}

// InstructorApprovalRequest is opened once per instructor registration and
// decided exactly once by an administrator.
type InstructorApprovalRequest struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;uniqueIndex" json:"userId"`
	User   *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	Email       string         `gorm:"size:320;not null" json:"email"`
	Status      ApprovalStatus `gorm:"size:16;not null;index" json:"status"`
	RequestedAt time.Time      `gorm:"not null;index" json:"requestedAt"`
	ReviewedAt  *time.Time     `json:"reviewedAt"`
	ReviewedBy  *string        `gorm:"type:uuid" json:"reviewedBy,omitempty"`
}
