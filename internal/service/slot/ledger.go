package slot

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

const maxAttempts = 5

// ErrContention means every conditional write lost to a concurrent writer.
var ErrContention = errors.New("doctor record is busy, try again")

// Ledger reserves and frees doctor slots with version-conditional writes.
type Ledger struct {
	doctors repository.DoctorRepository
	metrics *metrics.Metrics
}

func NewLedger(doctors repository.DoctorRepository, m *metrics.Metrics) *Ledger {
	return &Ledger{doctors: doctors, metrics: m}
}

// Book reserves date/time for the doctor. It returns model.ErrSlotTaken when
// the slot is already held, including when a concurrent booking wins the race.
func (l *Ledger) Book(ctx context.Context, doctorID uuid.UUID, date, time string) error {
	err := l.update(ctx, doctorID, func(slots model.SlotLedger) (bool, error) {
		if err := slots.Book(date, time); err != nil {
			return false, err
		}
		return true, nil
	})
	if errors.Is(err, model.ErrSlotTaken) {
		l.metrics.SlotConflicts.Inc()
	}
	return err
}

// Release frees date/time. Releasing a free slot writes nothing.
func (l *Ledger) Release(ctx context.Context, doctorID uuid.UUID, date, time string) error {
	return l.update(ctx, doctorID, func(slots model.SlotLedger) (bool, error) {
		if !slots.IsBooked(date, time) {
			return false, nil
		}
		slots.Release(date, time)
		return true, nil
	})
}

// update re-reads the doctor on every attempt so mutate always sees the
// latest ledger. mutate reports whether there is anything to write.
func (l *Ledger) update(ctx context.Context, doctorID uuid.UUID, mutate func(model.SlotLedger) (bool, error)) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			l.metrics.LedgerRetries.Inc()
		}

		doctor, err := l.doctors.Get(ctx, doctorID)
		if err != nil {
			return err
		}
		slots := doctor.SlotsBooked.Clone()
		changed, err := mutate(slots)
		if err != nil || !changed {
			return err
		}

		ok, err := l.doctors.UpdateSlots(ctx, doctorID, slots, doctor.Version)
		if err != nil {
			return fmt.Errorf("failed to update slots: %w", err)
		}
		if ok {
			return nil
		}
	}
	return ErrContention
}
