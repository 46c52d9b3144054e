package auth

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

// errNotLegacy means no account exists and the credentials are not the
// configured legacy pair either.
var errNotLegacy = stderrors.New("not a legacy credential")

// legacyFor returns the configured email and secret for a privileged role.
func (s *Service) legacyFor(role model.Role) (string, string) {
	switch role {
	case model.RoleAdmin:
		return s.legacy.AdminEmail, s.legacy.AdminPassword
	case model.RoleManager:
		return s.legacy.ManagerEmail, s.legacy.ManagerPassword
	}
	return "", ""
}

func (s *Service) isLegacy(role model.Role, email, secret string) bool {
	legacyEmail, legacySecret := s.legacyFor(role)
	return legacyEmail != "" && email == legacyEmail && security.SecretsEqual(secret, legacySecret)
}

// resolveOrMigrate authenticates a privileged login. A stored account is
// verified by its hash only; the legacy secret is consulted only when no
// account of the role has the email, and a match materializes the account.
func (s *Service) resolveOrMigrate(ctx context.Context, role model.Role, email, secret string) (*model.Principal, error) {
	acc, err := s.accounts.GetByEmail(ctx, role, email)
	switch {
	case err == nil:
		if s.hasher.Compare(acc.PasswordHash, secret) != nil {
			s.recordLogin(role, false)
			return nil, errors.NewUnauthorized(msgInvalidCredentials, nil)
		}
		return principalOf(acc), nil
	case !stderrors.Is(err, repository.ErrNotFound):
		return nil, errors.NewInternal(err)
	}

	if !s.isLegacy(role, email, secret) {
		return nil, errNotLegacy
	}

	acc, err = s.materialize(ctx, role, email, secret)
	if err != nil {
		s.logger.Error(err, "failed to migrate legacy account, issuing legacy token", "role", string(role))
		return &model.Principal{Role: role, Email: email, Legacy: true}, nil
	}
	return principalOf(acc), nil
}

// materialize stores an account for the legacy identity with the given
// password. A concurrent migration that won the insert is reused.
func (s *Service) materialize(ctx context.Context, role model.Role, email, password string) (*model.Account, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	acc := model.NewAccount(role, role.Title(), email, hash)
	err = s.accounts.Create(ctx, acc)
	if stderrors.Is(err, repository.ErrDuplicate) {
		existing, getErr := s.accounts.GetByEmail(ctx, role, email)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load concurrently migrated account: %w", getErr)
		}
		if s.hasher.Compare(existing.PasswordHash, password) != nil {
			return nil, fmt.Errorf("concurrently migrated account has a different password")
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	s.metrics.LegacyMigrations.WithLabelValues(string(role)).Inc()
	s.logger.Info("migrated legacy account", "role", string(role), "account_id", acc.ID.String())
	return acc, nil
}

// changeLegacyPassword handles callers holding a legacy token. Admins are
// resolved or created with the new password; managers are never migrated here.
func (s *Service) changeLegacyPassword(ctx context.Context, p model.Principal, current, next string) (string, error) {
	if p.Role == model.RoleManager {
		if s.isLegacy(model.RoleManager, p.Email, current) {
			return "", errors.NewForbidden(msgLegacyManager, nil)
		}
		return "", errors.NewUnauthorized(msgWrongPassword, nil)
	}
	if p.Role != model.RoleAdmin {
		return "", errors.NewForbidden("You do not have permission to access this resource", nil)
	}

	acc, err := s.accounts.GetByEmail(ctx, model.RoleAdmin, p.Email)
	switch {
	case err == nil:
		if s.hasher.Compare(acc.PasswordHash, current) != nil {
			return "", errors.NewUnauthorized(msgWrongPassword, nil)
		}
		if err := s.setPassword(ctx, acc, next); err != nil {
			return "", err
		}
		return msgLegacyAdminUpdated, nil
	case !stderrors.Is(err, repository.ErrNotFound):
		return "", errors.NewInternal(err)
	}

	if !s.isLegacy(model.RoleAdmin, p.Email, current) {
		return "", errors.NewUnauthorized(msgWrongPassword, nil)
	}
	if _, err := s.materialize(ctx, model.RoleAdmin, p.Email, next); err != nil {
		return "", errors.NewInternal(err)
	}
	return msgLegacyAdminUpdated, nil
}
