package models

// All returns every persistent model in migration order.
func All() []any {
	return []any{
		&Role{},
		&User{},
		&InstructorApprovalRequest{},
		&EmailVerification{},
		&PasswordResetToken{},
		&Course{},
		&Enrollment{},
		&AuditLog{},
		&CacheEntry{},
	}
}
