package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

type Service interface {
	SendPasswordReset(ctx context.Context, to string, msg Message) error
	SendRegistrationApproved(ctx context.Context, to, name string) error
	SendRegistrationRejected(ctx context.Context, to, name string) error
}

// Message is a rendered email with both html and plain text bodies.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a composed message. gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	sender Sender
	from   string
	cb     *circuitbreaker.CircuitBreaker
	logger *logger.Logger
}

func NewSMTPService(cfg config.SMTPConfig, log *logger.Logger) Service {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return NewService(d, cfg.From, log)
}

func NewService(sender Sender, from string, log *logger.Logger) Service {
	if log == nil {
		log = logger.Nop()
	}
	return &smtpService{
		sender: sender,
		from:   from,
		cb:     circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultSettings("smtp"), log),
		logger: log.WithComponent("email"),
	}
}

func (s *smtpService) SendPasswordReset(ctx context.Context, to string, msg Message) error {
	return s.send(ctx, to, msg)
}

func (s *smtpService) SendRegistrationApproved(ctx context.Context, to, name string) error {
	return s.send(ctx, to, RegistrationApproved(name))
}

func (s *smtpService) SendRegistrationRejected(ctx context.Context, to, name string) error {
	return s.send(ctx, to, RegistrationRejected(name))
}

func (s *smtpService) send(ctx context.Context, to string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	err := s.cb.Execute(func() error {
		return s.sender.DialAndSend(m)
	})
	if err != nil {
		s.logger.Warn("email delivery failed", "to", to, "subject", msg.Subject, "error", err.Error())
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
