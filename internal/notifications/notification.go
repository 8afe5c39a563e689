package notifications

import (
	"bytes"
	"fmt"
	"html/template"
)

// Kind classifies outbound notifications for metrics and logging.
type Kind string

const (
	KindEmailConfirmation  Kind = "email_confirmation"
	KindPasswordReset      Kind = "password_reset"
	KindInstructorDecision Kind = "instructor_decision"
)

// Notification is a single message addressed to one recipient.
type Notification struct {
	Kind      Kind
	Recipient string
	Subject   string
	Body      string
	HTMLBody  string
}

var htmlLayout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html><body style="font-family:sans-serif">
<p>Hello {{.Name}},</p>
<p>{{.Intro}}</p>
{{if .Link}}<p><a href="{{.Link}}">{{.Action}}</a></p>{{end}}
</body></html>`))

type htmlData struct {
	Name   string
	Intro  string
	Link   string
	Action string
}

func renderHTML(data htmlData) string {
	var buf bytes.Buffer
	if err := htmlLayout.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}

func displayName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

// ConfirmationEmail builds the account confirmation message sent after registration.
func ConfirmationEmail(recipient, fullName, link string) Notification {
	return Notification{
		Kind:      KindEmailConfirmation,
		Recipient: recipient,
		Subject:   "Confirm your Upskeel account",
		Body:      fmt.Sprintf("Click here to confirm: %s", link),
		HTMLBody: renderHTML(htmlData{
			Name:   displayName(fullName),
			Intro:  "Thanks for signing up. Please confirm your email address.",
			Link:   link,
			Action: "Confirm email",
		}),
	}
}

// PasswordResetEmail builds the password reset message.
func PasswordResetEmail(recipient, fullName, link string) Notification {
	return Notification{
		Kind:      KindPasswordReset,
		Recipient: recipient,
		Subject:   "Reset your LMS password",
		Body:      fmt.Sprintf("Click here to reset: %s", link),
		HTMLBody: renderHTML(htmlData{
			Name:   displayName(fullName),
			Intro:  "We received a request to reset your password. The link expires soon and can be used once.",
			Link:   link,
			Action: "Reset password",
		}),
	}
}

// InstructorDecisionEmail informs an instructor of the outcome of their approval request.
func InstructorDecisionEmail(recipient, fullName string, approved bool) Notification {
	outcome := "rejected"
	intro := "Your instructor request was rejected. Contact an administrator if you believe this is a mistake."
	if approved {
		outcome = "approved"
		intro = "Your instructor request was approved. You can now sign in and create courses."
	}
	return Notification{
		Kind:      KindInstructorDecision,
		Recipient: recipient,
		Subject:   fmt.Sprintf("Your instructor request was %s", outcome),
		Body:      intro,
		HTMLBody:  renderHTML(htmlData{Name: displayName(fullName), Intro: intro}),
	}
}
