package passwordreset

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const (
	// MsgRequested is returned whether or not the address belongs to an account.
	MsgRequested = "If an account with this email exists, you will receive a password reset link shortly."
	MsgReset     = "Password reset successful. You can now login with your new password."

	msgInvalidToken = "Invalid or expired reset token"
)

type Service struct {
	accounts    repository.AccountRepository
	tokens      repository.PasswordResetRepository
	emailSvc    email.Service
	hasher      security.PasswordHasher
	frontendURL string
	metrics     *metrics.Metrics
	logger      *logger.Logger
	now         func() time.Time
}

func NewService(
	store *repository.Store,
	emailSvc email.Service,
	hasher security.PasswordHasher,
	frontendURL string,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		accounts:    store.Accounts,
		tokens:      store.ResetTokens,
		emailSvc:    emailSvc,
		hasher:      hasher,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		metrics:     m,
		logger:      log.WithComponent("password_reset"),
		now:         time.Now,
	}
}

// Request issues a fresh reset token for the account owning addr and mails
// the link. Unknown addresses get the same answer as known ones.
func (s *Service) Request(ctx context.Context, addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return errors.NewBadRequest("Email is required", nil)
	}

	acc, err := s.findAccount(ctx, addr)
	if err != nil {
		return err
	}
	if acc == nil {
		s.metrics.ResetEmails.WithLabelValues("unknown_email").Inc()
		return nil
	}

	raw, err := security.GenerateToken(security.ResetTokenBytes)
	if err != nil {
		return errors.NewInternal(err)
	}
	now := s.now()
	token := &model.PasswordResetToken{
		Email:     addr,
		UserType:  acc.Role,
		Token:     raw,
		CreatedAt: now,
		ExpiresAt: now.Add(model.ResetTokenTTL),
	}
	if err := s.tokens.Replace(ctx, token); err != nil {
		return errors.NewInternal(err)
	}

	msg := email.PasswordReset(acc.Name, s.resetLink(raw, addr), acc.Role)
	if err := s.emailSvc.SendPasswordReset(ctx, addr, msg); err != nil {
		s.metrics.ResetEmails.WithLabelValues("failed").Inc()
		s.logger.Error(err, "password reset email failed", "role", string(acc.Role))
		if delErr := s.tokens.Delete(ctx, token.ID); delErr != nil {
			s.logger.Error(delErr, "failed to delete unsent reset token")
		}
		return errors.NewDependency(
			fmt.Sprintf("Failed to send reset email: %s. Please check your email configuration.", err.Error()), err)
	}

	s.metrics.ResetEmails.WithLabelValues("sent").Inc()
	return nil
}

// findAccount walks the roles in login order. A nil account means no match.
func (s *Service) findAccount(ctx context.Context, addr string) (*model.Account, error) {
	for _, role := range model.LoginOrder {
		acc, err := s.accounts.GetByEmail(ctx, role, addr)
		if err == nil {
			return acc, nil
		}
		if !stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewInternal(err)
		}
	}
	return nil, nil
}

func (s *Service) resetLink(token, addr string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", addr)
	return s.frontendURL + "/reset-password?" + q.Encode()
}

// Reset sets a new password and consumes the token.
func (s *Service) Reset(ctx context.Context, token, addr, newPassword string) error {
	if token == "" || addr == "" || newPassword == "" {
		return errors.NewBadRequest("All fields are required", nil)
	}
	if !security.IsStrongPassword(newPassword) {
		return errors.NewBadRequest("Password must be at least 8 characters long", nil)
	}

	record, err := s.find(ctx, token, addr)
	if err != nil {
		return err
	}
	if !record.UserType.Valid() {
		return errors.NewBadRequest("Invalid user type", nil)
	}

	acc, err := s.accounts.GetByEmail(ctx, record.UserType, addr)
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.NewNotFound("User not found", err)
	}
	if err != nil {
		return errors.NewInternal(err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := s.accounts.UpdatePassword(ctx, acc.Role, acc.ID, hash); err != nil {
		return errors.NewInternal(err)
	}
	if err := s.tokens.Delete(ctx, record.ID); err != nil {
		s.logger.Error(err, "failed to delete used reset token")
	}

	s.logger.Info("password reset", "role", string(acc.Role), "account_id", acc.ID.String())
	return nil
}

// Verify reports the role a live token was issued for.
func (s *Service) Verify(ctx context.Context, token, addr string) (model.Role, error) {
	if token == "" || addr == "" {
		return "", errors.NewBadRequest("Token and email are required", nil)
	}
	record, err := s.find(ctx, token, addr)
	if err != nil {
		return "", err
	}
	return record.UserType, nil
}

func (s *Service) find(ctx context.Context, token, addr string) (*model.PasswordResetToken, error) {
	record, err := s.tokens.Find(ctx, addr, token, s.now())
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NewNotFound(msgInvalidToken, err)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return record, nil
}
