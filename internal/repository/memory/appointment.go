package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type appointmentRepository struct {
	*db
}

func copyAppointment(a *model.Appointment) *model.Appointment {
	c := *a
	return &c
}

func (r *appointmentRepository) Create(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = uuid.Nil
	r.stamp(&a.Base)
	if a.CancelledBy == "" {
		a.CancelledBy = model.CancelledByNone
	}
	r.appointments[a.ID] = copyAppointment(a)
	return nil
}

func (r *appointmentRepository) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyAppointment(a), nil
}

func (r *appointmentRepository) List(_ context.Context, f model.AppointmentFilter) ([]*model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*model.Appointment{}
	for _, a := range r.appointments {
		if f.UserID != nil && a.UserID != *f.UserID {
			continue
		}
		if f.DocID != nil && a.DocID != *f.DocID {
			continue
		}
		if f.PendingRating && !a.Rateable() {
			continue
		}
		out = append(out, copyAppointment(a))
	}
	byCreated(out, func(a *model.Appointment) time.Time { return a.CreatedAt }, f.NewestFirst)
	return out, nil
}

func (r *appointmentRepository) update(id uuid.UUID, fn func(a *model.Appointment) bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return false, nil
	}
	if !fn(a) {
		return false, nil
	}
	a.UpdatedAt = time.Now()
	return true, nil
}

func (r *appointmentRepository) Cancel(_ context.Context, id uuid.UUID, actor model.CancelActor, reason string) (bool, error) {
	return r.update(id, func(a *model.Appointment) bool {
		if a.Cancelled {
			return false
		}
		a.Cancelled = true
		a.CancelledBy = actor
		a.ReasonToCancel = reason
		return true
	})
}

func (r *appointmentRepository) Complete(_ context.Context, id uuid.UUID) (bool, error) {
	return r.update(id, func(a *model.Appointment) bool {
		if a.Cancelled {
			return false
		}
		a.IsCompleted = true
		return true
	})
}

func (r *appointmentRepository) MarkPaid(_ context.Context, id uuid.UUID) error {
	ok, _ := r.update(id, func(a *model.Appointment) bool {
		a.Payment = true
		return true
	})
	if !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) MarkRated(_ context.Context, id uuid.UUID) (bool, error) {
	return r.update(id, func(a *model.Appointment) bool {
		if !a.Rateable() {
			return false
		}
		a.IsRated = true
		return true
	})
}

func (r *appointmentRepository) UnmarkRated(_ context.Context, id uuid.UUID) error {
	_, err := r.update(id, func(a *model.Appointment) bool {
		a.IsRated = false
		return true
	})
	return err
}

func (r *appointmentRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.appointments), nil
}
