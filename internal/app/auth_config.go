package app

import (
	"strings"

	"github.com/upskeel/lms/internal/auth"
	"github.com/upskeel/lms/internal/services"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         strings.TrimSpace(c.JWT.Issuer),
		Audience:       strings.TrimSpace(c.JWT.Audience),
		AccessTokenTTL: ttl,
	}
}

// TokenSettings converts the single-use token section, filling unset values.
func (c AuthConfig) TokenSettings() services.TokenSettings {
	settings := services.DefaultTokenSettings()
	if c.Tokens.ConfirmationTTL > 0 {
		settings.ConfirmationTTL = c.Tokens.ConfirmationTTL
	}
	if c.Tokens.ResetTTL > 0 {
		settings.ResetTTL = c.Tokens.ResetTTL
	}
	if c.Tokens.TokenBytes > 0 {
		settings.TokenBytes = c.Tokens.TokenBytes
	}
	return settings
}

// PasswordPolicy converts the password section. A zero minimum keeps the default length.
func (c AuthConfig) PasswordPolicy() services.PasswordPolicy {
	policy := services.PasswordPolicy{
		MinLength:     c.Password.MinLength,
		RequireDigit:  c.Password.RequireDigit,
		RequireLower:  c.Password.RequireLower,
		RequireUpper:  c.Password.RequireUpper,
		RequireSymbol: c.Password.RequireSymbol,
	}
	if policy.MinLength <= 0 {
		policy.MinLength = services.DefaultPasswordPolicy().MinLength
	}
	return policy
}
