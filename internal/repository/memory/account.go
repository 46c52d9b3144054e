package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type accountRepository struct {
	*db
}

func (r *accountRepository) Create(_ context.Context, a *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertAccount(a)
}

func (r *accountRepository) Get(_ context.Context, role model.Role, id uuid.UUID) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok || a.Role != role {
		return nil, repository.ErrNotFound
	}
	return r.account(a), nil
}

func (r *accountRepository) GetByEmail(_ context.Context, role model.Role, email string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Role == role && a.Email == email {
			return r.account(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepository) GetByFIN(_ context.Context, fin string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.FIN != nil && *a.FIN == fin {
			return r.account(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accountRepository) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.emailTaken(email), nil
}

func (r *accountRepository) UpdateProfile(_ context.Context, id uuid.UUID, u model.ProfileUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Name, a.Phone, a.Address, a.DOB, a.Gender = u.Name, u.Phone, u.Address, u.DOB, u.Gender
	if u.Image != "" {
		a.Image = u.Image
	}
	a.UpdatedAt = time.Now()
	r.syncDoctor(a)
	return nil
}

func (r *accountRepository) UpdatePassword(_ context.Context, role model.Role, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.Role != role {
		return repository.ErrNotFound
	}
	a.PasswordHash = hash
	a.UpdatedAt = time.Now()
	r.syncDoctor(a)
	return nil
}

func (r *accountRepository) Delete(_ context.Context, role model.Role, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.Role != role {
		return repository.ErrNotFound
	}
	delete(r.accounts, id)
	delete(r.doctors, id)
	return nil
}

func (r *accountRepository) List(_ context.Context, role model.Role) ([]*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*model.Account{}
	for _, a := range r.accounts {
		if a.Role == role {
			out = append(out, r.account(a))
		}
	}
	byCreated(out, func(a *model.Account) time.Time { return a.CreatedAt }, true)
	return out, nil
}

func (r *accountRepository) Count(_ context.Context, role model.Role) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, a := range r.accounts {
		if a.Role == role {
			n++
		}
	}
	return n, nil
}

// account returns a copy; doctor rows are read from the doctor table so both
// views agree.
func (r *accountRepository) account(a *model.Account) *model.Account {
	if d, ok := r.doctors[a.ID]; ok {
		return copyAccount(&d.Account)
	}
	return copyAccount(a)
}

func (r *accountRepository) syncDoctor(a *model.Account) {
	if d, ok := r.doctors[a.ID]; ok {
		d.Account = *copyAccount(a)
	}
}
