package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// All repository interfaces in one file
type (
	// AccountRepository stores every account kind. Lookups are scoped by role.
	AccountRepository interface {
		Create(ctx context.Context, account *model.Account) error
		Get(ctx context.Context, role model.Role, id uuid.UUID) (*model.Account, error)
		GetByEmail(ctx context.Context, role model.Role, email string) (*model.Account, error)
		GetByFIN(ctx context.Context, fin string) (*model.Account, error)
		// EmailExists checks the address against accounts of every role.
		EmailExists(ctx context.Context, email string) (bool, error)
		UpdateProfile(ctx context.Context, id uuid.UUID, update model.ProfileUpdate) error
		UpdatePassword(ctx context.Context, role model.Role, id uuid.UUID, passwordHash string) error
		Delete(ctx context.Context, role model.Role, id uuid.UUID) error
		List(ctx context.Context, role model.Role) ([]*model.Account, error)
		Count(ctx context.Context, role model.Role) (int, error)
	}

	// DoctorRepository manages doctor accounts together with their profile.
	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		List(ctx context.Context, filter model.DoctorFilter) ([]*model.Doctor, error)
		UpdateProfile(ctx context.Context, id uuid.UUID, update model.DoctorProfileUpdate) error
		SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
		SetActive(ctx context.Context, id uuid.UUID, active bool) error
		// UpdateSlots writes the ledger only if the stored version still equals
		// expectedVersion. It reports whether the write happened.
		UpdateSlots(ctx context.Context, id uuid.UUID, slots model.SlotLedger, expectedVersion int64) (bool, error)
		// UpdateRating has the same conditional semantics as UpdateSlots.
		UpdateRating(ctx context.Context, id uuid.UUID, average float64, total int, expectedVersion int64) (bool, error)
		Count(ctx context.Context) (int, error)
	}

	PendingRegistrationRepository interface {
		Create(ctx context.Context, reg *model.PendingRegistration) error
		Get(ctx context.Context, id uuid.UUID) (*model.PendingRegistration, error)
		GetByEmail(ctx context.Context, email string) (*model.PendingRegistration, error)
		GetByFIN(ctx context.Context, fin string) (*model.PendingRegistration, error)
		ListByStatus(ctx context.Context, status model.RegistrationStatus, limit int) ([]*model.PendingRegistration, error)
		CountByStatus(ctx context.Context, status model.RegistrationStatus) (int, error)
		// Approve creates the patient account and marks the registration
		// approved atomically. It fails with ErrNotFound unless the
		// registration is still pending.
		Approve(ctx context.Context, id uuid.UUID, account *model.Account) error
		// Reject marks a pending registration rejected, ErrNotFound otherwise.
		Reject(ctx context.Context, id uuid.UUID) error
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		List(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error)
		// Cancel flips cancelled only when it is still false and reports
		// whether this call did it.
		Cancel(ctx context.Context, id uuid.UUID, actor model.CancelActor, reason string) (bool, error)
		// Complete marks an uncancelled appointment completed.
		Complete(ctx context.Context, id uuid.UUID) (bool, error)
		MarkPaid(ctx context.Context, id uuid.UUID) error
		// MarkRated flips isRated for a completed, uncancelled, unrated
		// appointment and reports whether this call did it.
		MarkRated(ctx context.Context, id uuid.UUID) (bool, error)
		// UnmarkRated reverts MarkRated when the rating could not be stored.
		UnmarkRated(ctx context.Context, id uuid.UUID) error
		Count(ctx context.Context) (int, error)
	}

	RatingRepository interface {
		Create(ctx context.Context, rating *model.Rating) error
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Rating, error)
	}

	PasswordResetRepository interface {
		// Replace deletes every token for the email and stores the new one.
		Replace(ctx context.Context, token *model.PasswordResetToken) error
		// Find returns an unexpired token; expired tokens are ErrNotFound.
		Find(ctx context.Context, email, token string, now time.Time) (*model.PasswordResetToken, error)
		Delete(ctx context.Context, id uuid.UUID) error
		DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// Pinger reports storage liveness for readiness checks.
	Pinger interface {
		PingContext(ctx context.Context) error
	}
)

// Store bundles the repositories a running service needs.
type Store struct {
	Accounts      AccountRepository
	Doctors       DoctorRepository
	Registrations PendingRegistrationRepository
	Appointments  AppointmentRepository
	Ratings       RatingRepository
	ResetTokens   PasswordResetRepository
	Outbox        OutboxRepository
	Health        Pinger
	Close         func() error
}
