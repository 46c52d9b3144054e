package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type doctorRepository struct {
	*db
}

func (r *doctorRepository) Create(_ context.Context, d *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d.Role = model.RoleDoctor
	if d.SlotsBooked == nil {
		d.SlotsBooked = model.SlotLedger{}
	}
	d.Version = 0
	if err := r.insertAccount(&d.Account); err != nil {
		return err
	}
	r.doctors[d.ID] = copyDoctor(d)
	return nil
}

func (r *doctorRepository) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyDoctor(d), nil
}

func (r *doctorRepository) List(_ context.Context, f model.DoctorFilter) ([]*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*model.Doctor{}
	for _, d := range r.doctors {
		if f.ActiveOnly && !d.IsActive {
			continue
		}
		out = append(out, copyDoctor(d))
	}
	byCreated(out, func(d *model.Doctor) time.Time { return d.CreatedAt }, true)
	return out, nil
}

func (r *doctorRepository) mutate(id uuid.UUID, fn func(d *model.Doctor)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(d)
	d.UpdatedAt = time.Now()
	r.accounts[id] = copyAccount(&d.Account)
	return nil
}

func (r *doctorRepository) UpdateProfile(_ context.Context, id uuid.UUID, u model.DoctorProfileUpdate) error {
	return r.mutate(id, func(d *model.Doctor) {
		if u.Fees != nil {
			d.Fees = *u.Fees
		}
		if u.Available != nil {
			d.Available = *u.Available
		}
		if u.About != nil {
			d.About = *u.About
		}
		if u.Address != nil {
			d.Address = *u.Address
		}
	})
}

func (r *doctorRepository) SetAvailability(_ context.Context, id uuid.UUID, available bool) error {
	return r.mutate(id, func(d *model.Doctor) { d.Available = available })
}

func (r *doctorRepository) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	return r.mutate(id, func(d *model.Doctor) { d.IsActive = active })
}

func (r *doctorRepository) conditional(id uuid.UUID, expected int64, fn func(d *model.Doctor)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return false, nil
	}
	if d.Version != expected {
		return false, nil
	}
	fn(d)
	d.Version++
	return true, nil
}

func (r *doctorRepository) UpdateSlots(_ context.Context, id uuid.UUID, slots model.SlotLedger, expected int64) (bool, error) {
	return r.conditional(id, expected, func(d *model.Doctor) { d.SlotsBooked = slots.Clone() })
}

func (r *doctorRepository) UpdateRating(_ context.Context, id uuid.UUID, avg float64, total int, expected int64) (bool, error) {
	return r.conditional(id, expected, func(d *model.Doctor) {
		d.AverageRating = avg
		d.TotalRatings = total
	})
}

func (r *doctorRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.doctors), nil
}
