package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestNewJWTServiceDefaultsTTL(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)
	require.Equal(t, DefaultAccessTokenTTL, svc.TTL())
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{
		Secret:         "super-secret",
		Issuer:         "upskeel-lms",
		Audience:       "upskeel-clients",
		AccessTokenTTL: time.Hour,
		Clock:          now,
	})
	require.NoError(t, err)

	inputRoles := []string{"Instructor"}
	token, expiresAt, err := svc.GenerateAccessToken(AccessTokenInput{
		UserID: "user-123",
		Email:  "a@b.com",
		Roles:  inputRoles,
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, expiresAt.Equal(current.Add(time.Hour)))

	// later mutation of the caller's slice must not leak into the token
	inputRoles[0] = "Admin"

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	require.Equal(t, "user-123", claims.UserID)
	require.Equal(t, "user-123", claims.Subject)
	require.Equal(t, "a@b.com", claims.Email)
	require.Equal(t, []string{"Instructor"}, claims.Roles)
	require.True(t, claims.HasRole("Instructor"))
	require.False(t, claims.HasRole("Admin"))
	require.Equal(t, "upskeel-lms", claims.Issuer)
	require.Equal(t, jwt.ClaimStrings{"upskeel-clients"}, claims.Audience)
	require.True(t, claims.IssuedAt.Time.Equal(current))
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(time.Hour)))
}

func TestGenerateAccessTokenRequiresUser(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)

	_, _, err = svc.GenerateAccessToken(AccessTokenInput{})
	require.Error(t, err)
}

func TestValidateAccessTokenInvalidSignature(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC) }

	issuer, err := NewJWTService(JWTConfig{
		Secret:         "issuer-secret",
		AccessTokenTTL: time.Minute,
		Clock:          now,
	})
	require.NoError(t, err)

	token, _, err := issuer.GenerateAccessToken(AccessTokenInput{UserID: "user-123"})
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{
		Secret:         "other-secret",
		AccessTokenTTL: time.Minute,
		Clock:          now,
	})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
}

func TestValidateAccessTokenIssuerAndAudienceMismatch(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC) }

	issuer, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "lms-a", Audience: "web", Clock: now})
	require.NoError(t, err)
	token, _, err := issuer.GenerateAccessToken(AccessTokenInput{UserID: "user-123"})
	require.NoError(t, err)

	otherIssuer, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "lms-b", Audience: "web", Clock: now})
	require.NoError(t, err)
	_, err = otherIssuer.ValidateAccessToken(token)
	require.True(t, errors.Is(err, jwt.ErrTokenInvalidIssuer))

	otherAudience, err := NewJWTService(JWTConfig{Secret: "shared", Issuer: "lms-a", Audience: "mobile", Clock: now})
	require.NoError(t, err)
	_, err = otherAudience.ValidateAccessToken(token)
	require.True(t, errors.Is(err, jwt.ErrTokenInvalidAudience))
}

func TestValidateAccessTokenRejectsOtherAlgorithms(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)

	claims := &Claims{
		UserID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(unsigned)
	require.Error(t, err)
}

func TestValidateAccessTokenExpired(t *testing.T) {
	current := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{
		Secret:         "secret",
		AccessTokenTTL: time.Minute,
		Clock:          now,
	})
	require.NoError(t, err)

	token, _, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-123"})
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}
