package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type registrationRepository struct {
	*db
}

func copyRegistration(p *model.PendingRegistration) *model.PendingRegistration {
	c := *p
	return &c
}

func (r *registrationRepository) Create(_ context.Context, p *model.PendingRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.registrations {
		if existing.Email == p.Email || existing.FIN == p.FIN {
			return repository.ErrDuplicate
		}
	}
	p.ID = uuid.Nil
	r.stamp(&p.Base)
	if p.Status == "" {
		p.Status = model.RegistrationPending
	}
	r.registrations[p.ID] = copyRegistration(p)
	return nil
}

func (r *registrationRepository) find(match func(*model.PendingRegistration) bool) (*model.PendingRegistration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.registrations {
		if match(p) {
			return copyRegistration(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *registrationRepository) Get(_ context.Context, id uuid.UUID) (*model.PendingRegistration, error) {
	return r.find(func(p *model.PendingRegistration) bool { return p.ID == id })
}

func (r *registrationRepository) GetByEmail(_ context.Context, email string) (*model.PendingRegistration, error) {
	return r.find(func(p *model.PendingRegistration) bool { return p.Email == email })
}

func (r *registrationRepository) GetByFIN(_ context.Context, fin string) (*model.PendingRegistration, error) {
	return r.find(func(p *model.PendingRegistration) bool { return p.FIN == fin })
}

func (r *registrationRepository) ListByStatus(_ context.Context, status model.RegistrationStatus, limit int) ([]*model.PendingRegistration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*model.PendingRegistration{}
	for _, p := range r.registrations {
		if p.Status == status {
			out = append(out, copyRegistration(p))
		}
	}
	byCreated(out, func(p *model.PendingRegistration) time.Time { return p.CreatedAt }, true)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *registrationRepository) CountByStatus(_ context.Context, status model.RegistrationStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.registrations {
		if p.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *registrationRepository) Approve(_ context.Context, id uuid.UUID, a *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.registrations[id]
	if !ok || p.Status != model.RegistrationPending {
		return repository.ErrNotFound
	}
	if err := r.insertAccount(a); err != nil {
		return err
	}
	p.Status = model.RegistrationApproved
	p.UpdatedAt = time.Now()
	return nil
}

func (r *registrationRepository) Reject(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.registrations[id]
	if !ok || p.Status != model.RegistrationPending {
		return repository.ErrNotFound
	}
	p.Status = model.RegistrationRejected
	p.UpdatedAt = time.Now()
	return nil
}
