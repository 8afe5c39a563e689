package services

import (
	"fmt"
	"strings"
	"unicode"
)

// bcrypt ignores input beyond 72 bytes.
const maxPasswordBytes = 72

// PasswordPolicy describes the complexity rules enforced on new passwords.
type PasswordPolicy struct {
	MinLength     int
	RequireDigit  bool
	RequireLower  bool
	RequireUpper  bool
	RequireSymbol bool
}

// DefaultPasswordPolicy mirrors the identity defaults: six characters with a
// digit, a lower and upper case letter and a symbol.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:     6,
		RequireDigit:  true,
		RequireLower:  true,
		RequireUpper:  true,
		RequireSymbol: true,
	}
}

// Validate returns ErrWeakPassword listing every violated rule, or nil.
func (p PasswordPolicy) Validate(password string) error {
	var problems []string
	var hasDigit, hasLower, hasUpper, hasSymbol bool

	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			hasSymbol = true
		}
	}

	if len([]rune(password)) < p.MinLength {
		problems = append(problems, fmt.Sprintf("at least %d characters", p.MinLength))
	}
	if len(password) > maxPasswordBytes {
		problems = append(problems, fmt.Sprintf("at most %d bytes", maxPasswordBytes))
	}
	if p.RequireDigit && !hasDigit {
		problems = append(problems, "a digit")
	}
	if p.RequireLower && !hasLower {
		problems = append(problems, "a lowercase letter")
	}
	if p.RequireUpper && !hasUpper {
		problems = append(problems, "an uppercase letter")
	}
	if p.RequireSymbol && !hasSymbol {
		problems = append(problems, "a non-alphanumeric character")
	}

	if len(problems) == 0 {
		return nil
	}
	return ErrWeakPassword.WithMessage("Password must contain " + strings.Join(problems, ", "))
}
