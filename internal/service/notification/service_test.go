package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/clinic-api/internal/email"
)

type flakyEmail struct {
	mu       sync.Mutex
	failures int
	approved []string
	rejected []string
	attempts int
}

func (f *flakyEmail) SendPasswordReset(context.Context, string, email.Message) error { return nil }

func (f *flakyEmail) SendRegistrationApproved(_ context.Context, to, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return errors.New("smtp unavailable")
	}
	f.approved = append(f.approved, to)
	return nil
}

func (f *flakyEmail) SendRegistrationRejected(_ context.Context, to, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	f.rejected = append(f.rejected, to)
	return nil
}

func TestApprovedEmailRetried(t *testing.T) {
	mail := &flakyEmail{failures: 2}
	svc := newService(mail, nil, time.Millisecond)

	svc.RegistrationApproved(context.Background(), "jane@example.com", "Jane")
	svc.Wait()

	assert.Equal(t, 3, mail.attempts)
	assert.Equal(t, []string{"jane@example.com"}, mail.approved)
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	mail := &flakyEmail{failures: 10}
	svc := newService(mail, nil, time.Millisecond)

	svc.RegistrationApproved(context.Background(), "jane@example.com", "Jane")
	svc.Wait()

	assert.Equal(t, maxRetries, mail.attempts)
	assert.Empty(t, mail.approved)
}

func TestEmailOutlivesRequestContext(t *testing.T) {
	mail := &flakyEmail{}
	svc := newService(mail, nil, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	svc.RegistrationRejected(ctx, "joe@example.com", "Joe")
	cancel()
	svc.Wait()

	assert.Equal(t, []string{"joe@example.com"}, mail.rejected)
}
