package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const appointmentColumns = `
	id, user_id, doc_id, slot_date, slot_time, user_data, doc_data, amount, date,
	cancelled, cancelled_by, reason_to_cancel, payment, is_completed, is_rated,
	created_at, updated_at`

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	if a.CancelledBy == "" {
		a.CancelledBy = model.CancelledByNone
	}

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.DocID, a.SlotDate, a.SlotTime, a.UserData, a.DocData, a.Amount, a.Date,
		a.Cancelled, a.CancelledBy, a.ReasonToCancel, a.Payment, a.IsCompleted, a.IsRated,
		a.CreatedAt, a.UpdatedAt,
	)
	return mapError("create appointment", err)
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var a model.Appointment
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		return nil, mapError("get appointment", err)
	}
	return &a, nil
}

func (r *appointmentRepository) List(ctx context.Context, f model.AppointmentFilter) ([]*model.Appointment, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.UserID != nil {
		args = append(args, *f.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.DocID != nil {
		args = append(args, *f.DocID)
		conds = append(conds, fmt.Sprintf("doc_id = $%d", len(args)))
	}
	if f.PendingRating {
		conds = append(conds, "is_completed AND NOT cancelled AND NOT is_rated")
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	if f.NewestFirst {
		query += ` ORDER BY created_at DESC`
	} else {
		query += ` ORDER BY created_at ASC`
	}

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, mapError("list appointments", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) Cancel(ctx context.Context, id uuid.UUID, actor model.CancelActor, reason string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE appointments
		SET cancelled = TRUE, cancelled_by = $1, reason_to_cancel = $2, updated_at = NOW()
		WHERE id = $3 AND NOT cancelled`,
		actor, reason, id)
	if err != nil {
		return false, mapError("cancel appointment", err)
	}
	return affected("cancel appointment", res)
}

func (r *appointmentRepository) Complete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE appointments SET is_completed = TRUE, updated_at = NOW()
		WHERE id = $1 AND NOT cancelled`, id)
	if err != nil {
		return false, mapError("complete appointment", err)
	}
	return affected("complete appointment", res)
}

func (r *appointmentRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE appointments SET payment = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return mapError("mark appointment paid", err)
	}
	return requireAffected("mark appointment paid", res)
}

func (r *appointmentRepository) MarkRated(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE appointments SET is_rated = TRUE, updated_at = NOW()
		WHERE id = $1 AND is_completed AND NOT cancelled AND NOT is_rated`, id)
	if err != nil {
		return false, mapError("mark appointment rated", err)
	}
	return affected("mark appointment rated", res)
}

func (r *appointmentRepository) UnmarkRated(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE appointments SET is_rated = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return mapError("unmark appointment rated", err)
}

func (r *appointmentRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM appointments`); err != nil {
		return 0, mapError("count appointments", err)
	}
	return n, nil
}
