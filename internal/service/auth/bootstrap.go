package auth

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

// Bootstrapper seeds the privileged accounts described by the legacy
// configuration so the request-time bridge is not needed after startup.
type Bootstrapper struct {
	svc *Service
}

func NewBootstrapper(svc *Service) *Bootstrapper {
	return &Bootstrapper{svc: svc}
}

// Seed creates every configured admin or manager account that does not exist
// yet and returns the roles it created.
func (b *Bootstrapper) Seed(ctx context.Context) ([]model.Role, error) {
	var seeded []model.Role
	for _, role := range []model.Role{model.RoleAdmin, model.RoleManager} {
		email, secret := b.svc.legacyFor(role)
		if email == "" || secret == "" {
			continue
		}

		_, err := b.svc.accounts.GetByEmail(ctx, role, email)
		if err == nil {
			continue
		}
		if !stderrors.Is(err, repository.ErrNotFound) {
			return seeded, fmt.Errorf("failed to look up %s account: %w", role, err)
		}

		if _, err := b.svc.materialize(ctx, role, email, secret); err != nil {
			return seeded, fmt.Errorf("failed to seed %s account: %w", role, err)
		}
		seeded = append(seeded, role)
	}
	return seeded, nil
}
