package email

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/jwalitptl/clinic-api/internal/model"
)

var resetHTML = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Password Reset</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="background-color: #5f6fff; color: white; padding: 20px; text-align: center;">Password Reset Request</h1>
    <h2>Hello {{.Name}},</h2>
    <p>We received a request to reset the password for your <strong>{{.Title}}</strong> account.</p>
    <p><a href="{{.Link}}" style="background-color: #5f6fff; color: white; padding: 12px 30px; text-decoration: none;">Reset Password</a></p>
    <p>Or copy and paste this link into your browser:</p>
    <p style="word-break: break-all;">{{.Link}}</p>
    <ul>
      <li>This link will expire in 1 hour for security reasons</li>
      <li>If you didn't request this password reset, please ignore this email</li>
      <li>For security, never share this link with anyone</li>
    </ul>
    <p style="font-size: 12px; color: #666;">This is an automated email. Please do not reply to this message.</p>
  </div>
</body>
</html>`))

// PasswordReset renders the reset email for an account of the given role.
func PasswordReset(name, link string, role model.Role) Message {
	title := role.Title()
	var html bytes.Buffer
	// the template is static and its inputs are strings
	_ = resetHTML.Execute(&html, struct{ Name, Title, Link string }{name, title, link})

	var text strings.Builder
	text.WriteString("Hello " + name + ",\n\n")
	text.WriteString("We received a request to reset the password for your " + title + " account.\n\n")
	text.WriteString("Please click the following link to reset your password:\n" + link + "\n\n")
	text.WriteString("This link will expire in 1 hour for security reasons.\n\n")
	text.WriteString("If you didn't request this password reset, please ignore this email.\n")

	return Message{
		Subject: "Password Reset Request - " + title + " Account",
		HTML:    html.String(),
		Text:    text.String(),
	}
}

func RegistrationApproved(name string) Message {
	return Message{
		Subject: "Your account has been approved",
		Text: "Hello " + name + ",\n\nYour registration has been approved. " +
			"You can now log in and book appointments.\n",
	}
}

func RegistrationRejected(name string) Message {
	return Message{
		Subject: "Your registration was not approved",
		Text: "Hello " + name + ",\n\nUnfortunately your registration could not be approved. " +
			"Please contact the clinic for more information.\n",
	}
}
