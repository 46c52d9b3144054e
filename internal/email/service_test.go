package email

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-api/internal/model"
)

type recordingSender struct {
	err  error
	sent []*gomail.Message
}

func (s *recordingSender) DialAndSend(m ...*gomail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m...)
	return nil
}

func TestPasswordResetTemplate(t *testing.T) {
	msg := PasswordReset("Jane", "https://app.example/reset-password?token=abc&email=j%40x.io", model.RolePatient)
	assert.Equal(t, "Password Reset Request - Patient Account", msg.Subject)
	assert.Contains(t, msg.Text, "Hello Jane")
	assert.Contains(t, msg.Text, "token=abc")
	assert.Contains(t, msg.HTML, "<strong>Patient</strong>")

	assert.Equal(t, "Password Reset Request - Manager Account",
		PasswordReset("M", "l", model.RoleManager).Subject)
}

func TestSendSetsHeaders(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, "clinic@example.com", nil)

	require.NoError(t, svc.SendRegistrationApproved(context.Background(), "jane@example.com", "Jane"))
	require.Len(t, sender.sent, 1)
	m := sender.sent[0]
	assert.Equal(t, []string{"jane@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"clinic@example.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"Your account has been approved"}, m.GetHeader("Subject"))
}

func TestSendWrapsFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("connection refused")}
	svc := NewService(sender, "clinic@example.com", nil)

	err := svc.SendRegistrationRejected(context.Background(), "jane@example.com", "Jane")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSendHonoursCancelledContext(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, "clinic@example.com", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, svc.SendPasswordReset(ctx, "a@b.io", Message{Subject: "s"}), context.Canceled)
	assert.Empty(t, sender.sent)
}
