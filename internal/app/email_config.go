package app

import (
	"strings"

	"github.com/upskeel/lms/internal/services"
	"github.com/upskeel/lms/pkg/mail"
)

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     strings.TrimSpace(c.SMTP.Host),
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     strings.TrimSpace(c.SMTP.From),
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// Links returns the URL builder used for confirmation and reset emails.
func (c EmailConfig) Links() services.Links {
	return services.Links{
		APIBaseURL:  strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/"),
		FrontendURL: strings.TrimRight(strings.TrimSpace(c.FrontendURL), "/"),
	}
}
