// Package memory keeps every repository in process memory. It backs the
// "memory" database driver for local runs and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type db struct {
	mu            sync.RWMutex
	lastStamp     time.Time
	accounts      map[uuid.UUID]*model.Account
	doctors       map[uuid.UUID]*model.Doctor
	registrations map[uuid.UUID]*model.PendingRegistration
	appointments  map[uuid.UUID]*model.Appointment
	ratings       map[uuid.UUID]*model.Rating
	resetTokens   map[uuid.UUID]*model.PasswordResetToken
	outbox        map[uuid.UUID]*model.OutboxEvent
}

// NewStore returns a Store whose repositories share one in-memory database.
func NewStore() *repository.Store {
	d := &db{
		accounts:      map[uuid.UUID]*model.Account{},
		doctors:       map[uuid.UUID]*model.Doctor{},
		registrations: map[uuid.UUID]*model.PendingRegistration{},
		appointments:  map[uuid.UUID]*model.Appointment{},
		ratings:       map[uuid.UUID]*model.Rating{},
		resetTokens:   map[uuid.UUID]*model.PasswordResetToken{},
		outbox:        map[uuid.UUID]*model.OutboxEvent{},
	}
	return &repository.Store{
		Accounts:      &accountRepository{d},
		Doctors:       &doctorRepository{d},
		Registrations: &registrationRepository{d},
		Appointments:  &appointmentRepository{d},
		Ratings:       &ratingRepository{d},
		ResetTokens:   &resetRepository{d},
		Outbox:        &outboxRepository{d},
		Health:        pinger{},
		Close:         func() error { return nil },
	}
}

type pinger struct{}

func (pinger) PingContext(context.Context) error { return nil }

// stamp assigns an id and a strictly increasing creation time so ordering by
// creation is deterministic. Callers hold the write lock.
func (d *db) stamp(b *model.Base) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now()
	if !now.After(d.lastStamp) {
		now = d.lastStamp.Add(time.Microsecond)
	}
	d.lastStamp = now
	b.CreatedAt = now
	b.UpdatedAt = now
}

func copyAccount(a *model.Account) *model.Account {
	c := *a
	if a.FIN != nil {
		fin := *a.FIN
		c.FIN = &fin
	}
	return &c
}

func copyDoctor(d *model.Doctor) *model.Doctor {
	c := *d
	c.Account = *copyAccount(&d.Account)
	c.SlotsBooked = d.SlotsBooked.Clone()
	return &c
}

// emailTaken checks every account row, doctors included.
func (d *db) emailTaken(email string) bool {
	for _, a := range d.accounts {
		if a.Email == email {
			return true
		}
	}
	return false
}

func (d *db) insertAccount(a *model.Account) error {
	for _, existing := range d.accounts {
		if existing.Role == a.Role && existing.Email == a.Email {
			return repository.ErrDuplicate
		}
		if a.FIN != nil && existing.FIN != nil && *existing.FIN == *a.FIN {
			return repository.ErrDuplicate
		}
	}
	d.stamp(&a.Base)
	d.accounts[a.ID] = copyAccount(a)
	return nil
}

func byCreated[T any](items []T, created func(T) time.Time, newestFirst bool) {
	sort.SliceStable(items, func(i, j int) bool {
		if newestFirst {
			return created(items[i]).After(created(items[j]))
		}
		return created(items[i]).Before(created(items[j]))
	})
}
