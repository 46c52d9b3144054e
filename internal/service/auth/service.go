package auth

import (
	"context"
	stderrors "errors"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgUserNotFound       = "User does not exist"
	msgPendingApproval    = "Your account is pending approval"
	msgMissingPasswords   = "Missing current or new password"
	msgWeakNewPassword    = "New password must be at least 8 characters long"
	msgWrongPassword      = "Current password is incorrect"
	msgPasswordUpdated    = "Password updated successfully"
	msgLegacyAdminUpdated = "Password updated successfully. Please log out and log back in to use your new password."
	msgLegacyManager      = "Legacy manager accounts cannot change passwords through this interface. Please contact system administrator."
)

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token string
	Role  model.Role
}

type Service struct {
	accounts      repository.AccountRepository
	registrations repository.PendingRegistrationRepository
	hasher        security.PasswordHasher
	tokens        auth.JWTService
	legacy        config.LegacyConfig
	metrics       *metrics.Metrics
	logger        *logger.Logger
}

func NewService(
	store *repository.Store,
	hasher security.PasswordHasher,
	tokens auth.JWTService,
	legacy config.LegacyConfig,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		accounts:      store.Accounts,
		registrations: store.Registrations,
		hasher:        hasher,
		tokens:        tokens,
		legacy:        legacy,
		metrics:       m,
		logger:        log.WithComponent("auth"),
	}
}

// UnifiedLogin finds the account in LoginOrder precedence and authenticates
// against the first match. Only when no stored account has the email do the
// legacy credentials and the pending registrations get consulted.
func (s *Service) UnifiedLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	for _, role := range model.LoginOrder {
		acc, err := s.accounts.GetByEmail(ctx, role, email)
		if stderrors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if s.hasher.Compare(acc.PasswordHash, password) != nil {
			s.recordLogin(role, false)
			return nil, errors.NewUnauthorized(msgInvalidCredentials, nil)
		}
		return s.issue(principalOf(acc))
	}

	for _, role := range []model.Role{model.RoleAdmin, model.RoleManager} {
		p, err := s.resolveOrMigrate(ctx, role, email, password)
		if stderrors.Is(err, errNotLegacy) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return s.issue(p)
	}

	if err := s.pendingDisclosure(ctx, email); err != nil {
		return nil, err
	}
	return nil, errors.NewUnauthorized(msgUserNotFound, nil)
}

// Login authenticates against one role only.
func (s *Service) Login(ctx context.Context, role model.Role, email, password string) (*LoginResult, error) {
	switch role {
	case model.RolePatient:
		acc, err := s.accounts.GetByEmail(ctx, role, email)
		if stderrors.Is(err, repository.ErrNotFound) {
			if err := s.pendingDisclosure(ctx, email); err != nil {
				return nil, err
			}
			return nil, errors.NewUnauthorized(msgUserNotFound, nil)
		}
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		return s.verify(acc, password)

	case model.RoleDoctor:
		acc, err := s.accounts.GetByEmail(ctx, role, email)
		if stderrors.Is(err, repository.ErrNotFound) {
			s.recordLogin(role, false)
			return nil, errors.NewUnauthorized(msgInvalidCredentials, nil)
		}
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		return s.verify(acc, password)

	case model.RoleManager, model.RoleAdmin:
		p, err := s.resolveOrMigrate(ctx, role, email, password)
		if stderrors.Is(err, errNotLegacy) {
			s.recordLogin(role, false)
			return nil, errors.NewUnauthorized(msgInvalidCredentials, nil)
		}
		if err != nil {
			return nil, err
		}
		return s.issue(p)
	}
	return nil, errors.NewBadRequest("Invalid role specified", nil)
}

// ChangePassword verifies the current password of the caller and stores the
// new one. It returns the message to show on success.
func (s *Service) ChangePassword(ctx context.Context, p model.Principal, current, next string) (string, error) {
	if current == "" || next == "" {
		return "", errors.NewBadRequest(msgMissingPasswords, nil)
	}
	if !security.IsStrongPassword(next) {
		return "", errors.NewBadRequest(msgWeakNewPassword, nil)
	}
	if p.Legacy {
		return s.changeLegacyPassword(ctx, p, current, next)
	}

	acc, err := s.accounts.Get(ctx, p.Role, p.AccountID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return "", errors.NewNotFound(notFoundMessage(p.Role), err)
	}
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if s.hasher.Compare(acc.PasswordHash, current) != nil {
		return "", errors.NewUnauthorized(msgWrongPassword, nil)
	}
	if err := s.setPassword(ctx, acc, next); err != nil {
		return "", err
	}
	return msgPasswordUpdated, nil
}

func (s *Service) verify(acc *model.Account, password string) (*LoginResult, error) {
	if s.hasher.Compare(acc.PasswordHash, password) != nil {
		s.recordLogin(acc.Role, false)
		return nil, errors.NewUnauthorized(msgInvalidCredentials, nil)
	}
	return s.issue(principalOf(acc))
}

func (s *Service) issue(p *model.Principal) (*LoginResult, error) {
	token, err := s.tokens.Issue(*p)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	s.recordLogin(p.Role, true)
	return &LoginResult{Token: token, Role: p.Role}, nil
}

func (s *Service) setPassword(ctx context.Context, acc *model.Account, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := s.accounts.UpdatePassword(ctx, acc.Role, acc.ID, hash); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// pendingDisclosure tells a patient whose sign-up is still waiting for review
// why the login failed.
func (s *Service) pendingDisclosure(ctx context.Context, email string) error {
	reg, err := s.registrations.GetByEmail(ctx, email)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.NewInternal(err)
	}
	if reg.Status != model.RegistrationPending {
		return nil
	}
	s.recordLogin(model.RolePatient, false)
	return errors.NewUnauthorized(msgPendingApproval, nil).
		With("pendingStatus", true).
		With("fin", reg.FIN)
}

func (s *Service) recordLogin(role model.Role, ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	s.metrics.Logins.WithLabelValues(string(role), result).Inc()
}

func principalOf(acc *model.Account) *model.Principal {
	return &model.Principal{AccountID: acc.ID, Role: acc.Role, Email: acc.Email}
}

func notFoundMessage(role model.Role) string {
	if role == model.RolePatient {
		return "User not found"
	}
	return role.Title() + " not found"
}
