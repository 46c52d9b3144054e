package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const registrationColumns = `
	id, name, email, password_hash, image, phone, fin, front_image, back_image,
	address, gender, dob, status, created_at, updated_at`

type pendingRegistrationRepository struct {
	BaseRepository
}

func NewPendingRegistrationRepository(base BaseRepository) repository.PendingRegistrationRepository {
	return &pendingRegistrationRepository{base}
}

func (r *pendingRegistrationRepository) Create(ctx context.Context, p *model.PendingRegistration) error {
	query := `
		INSERT INTO pending_registrations (` + registrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	if p.Status == "" {
		p.Status = model.RegistrationPending
	}

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Email, p.PasswordHash, p.Image, p.Phone, p.FIN, p.FrontImage,
		p.BackImage, p.Address, p.Gender, p.DOB, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	return mapError("create pending registration", err)
}

func (r *pendingRegistrationRepository) get(ctx context.Context, where string, arg interface{}) (*model.PendingRegistration, error) {
	var p model.PendingRegistration
	query := `SELECT ` + registrationColumns + ` FROM pending_registrations WHERE ` + where + ` = $1`
	if err := r.db.GetContext(ctx, &p, query, arg); err != nil {
		return nil, mapError("get pending registration", err)
	}
	return &p, nil
}

func (r *pendingRegistrationRepository) Get(ctx context.Context, id uuid.UUID) (*model.PendingRegistration, error) {
	return r.get(ctx, "id", id)
}

func (r *pendingRegistrationRepository) GetByEmail(ctx context.Context, email string) (*model.PendingRegistration, error) {
	return r.get(ctx, "email", email)
}

func (r *pendingRegistrationRepository) GetByFIN(ctx context.Context, fin string) (*model.PendingRegistration, error) {
	return r.get(ctx, "fin", fin)
}

func (r *pendingRegistrationRepository) ListByStatus(ctx context.Context, status model.RegistrationStatus, limit int) ([]*model.PendingRegistration, error) {
	query := `SELECT ` + registrationColumns + ` FROM pending_registrations WHERE status = $1 ORDER BY created_at DESC`
	args := []interface{}{status}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	regs := []*model.PendingRegistration{}
	if err := r.db.SelectContext(ctx, &regs, query, args...); err != nil {
		return nil, mapError("list pending registrations", err)
	}
	return regs, nil
}

func (r *pendingRegistrationRepository) CountByStatus(ctx context.Context, status model.RegistrationStatus) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM pending_registrations WHERE status = $1`, status); err != nil {
		return 0, mapError("count pending registrations", err)
	}
	return n, nil
}

func (r *pendingRegistrationRepository) setStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.RegistrationStatus) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE pending_registrations SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		status, id, model.RegistrationPending)
	if err != nil {
		return mapError("update registration status", err)
	}
	return requireAffected("update registration status", res)
}

func (r *pendingRegistrationRepository) Approve(ctx context.Context, id uuid.UUID, a *model.Account) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.setStatus(ctx, tx, id, model.RegistrationApproved); err != nil {
			return err
		}

		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.CreatedAt = time.Now()
		a.UpdatedAt = a.CreatedAt
		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (`+accountColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			a.ID, a.Role, a.Name, a.Email, a.PasswordHash, a.Image, a.Phone, a.FIN,
			a.FrontImage, a.BackImage, a.Address, a.Gender, a.DOB, a.CreatedAt, a.UpdatedAt,
		)
		return mapError("create approved account", err)
	})
}

func (r *pendingRegistrationRepository) Reject(ctx context.Context, id uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		return r.setStatus(ctx, tx, id, model.RegistrationRejected)
	})
}
