package services

import (
	"net/url"
	"strings"
)

// Links builds the URLs embedded in outbound notifications.
type Links struct {
	// APIBaseURL is the public origin of this API. When empty the origin of
	// the incoming request is used.
	APIBaseURL string
	// FrontendURL is the origin of the web client hosting the reset form.
	FrontendURL string
}

// Confirmation returns the email confirmation link handled by the API.
func (l Links) Confirmation(requestBaseURL, userID, token string) string {
	base := strings.TrimRight(strings.TrimSpace(l.APIBaseURL), "/")
	if base == "" {
		base = strings.TrimRight(strings.TrimSpace(requestBaseURL), "/")
	}
	return base + "/api/auth/confirm-email?" + tokenQuery(userID, token)
}

// PasswordReset returns the frontend link carrying the reset token.
func (l Links) PasswordReset(userID, token string) string {
	base := strings.TrimRight(strings.TrimSpace(l.FrontendURL), "/")
	return base + "/reset-password?" + tokenQuery(userID, token)
}

func tokenQuery(userID, token string) string {
	values := url.Values{}
	values.Set("userId", userID)
	values.Set("token", token)
	return values.Encode()
}
