package notification

import (
	"context"
	"sync"
	"time"

	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

const (
	maxRetries  = 3
	retryDelay  = 2 * time.Second
	sendTimeout = 30 * time.Second
)

// Service sends registration outcome emails in the background.
type Service interface {
	RegistrationApproved(ctx context.Context, to, name string)
	RegistrationRejected(ctx context.Context, to, name string)
	// Wait blocks until every queued email has been attempted.
	Wait()
}

type service struct {
	emailSvc   email.Service
	logger     *logger.Logger
	retryDelay time.Duration
	wg         sync.WaitGroup
}

func NewService(emailSvc email.Service, log *logger.Logger) Service {
	return newService(emailSvc, log, retryDelay)
}

func newService(emailSvc email.Service, log *logger.Logger, delay time.Duration) *service {
	if log == nil {
		log = logger.Nop()
	}
	return &service{emailSvc: emailSvc, logger: log.WithComponent("notification"), retryDelay: delay}
}

func (s *service) RegistrationApproved(ctx context.Context, to, name string) {
	s.dispatch(ctx, "registration_approved", to, func(ctx context.Context) error {
		return s.emailSvc.SendRegistrationApproved(ctx, to, name)
	})
}

func (s *service) RegistrationRejected(ctx context.Context, to, name string) {
	s.dispatch(ctx, "registration_rejected", to, func(ctx context.Context) error {
		return s.emailSvc.SendRegistrationRejected(ctx, to, name)
	})
}

func (s *service) Wait() { s.wg.Wait() }

// dispatch detaches from the request context so the email outlives the response.
func (s *service) dispatch(ctx context.Context, kind, to string, send func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()

		var err error
		for attempt := 1; attempt <= maxRetries; attempt++ {
			if err = send(ctx); err == nil {
				return
			}
			if attempt == maxRetries {
				break
			}
			select {
			case <-ctx.Done():
				s.logger.Error(ctx.Err(), "notification email timed out", "kind", kind, "to", to)
				return
			case <-time.After(s.retryDelay):
			}
		}
		s.logger.Error(err, "giving up on notification email", "kind", kind, "to", to)
	}()
}
