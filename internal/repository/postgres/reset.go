package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type passwordResetRepository struct {
	BaseRepository
}

func NewPasswordResetRepository(base BaseRepository) repository.PasswordResetRepository {
	return &passwordResetRepository{base}
}

func (r *passwordResetRepository) Replace(ctx context.Context, t *model.PasswordResetToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE email = $1`, t.Email); err != nil {
			return mapError("delete previous reset tokens", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO password_reset_tokens (id, email, user_type, token, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ID, t.Email, t.UserType, t.Token, t.CreatedAt, t.ExpiresAt)
		return mapError("store reset token", err)
	})
}

func (r *passwordResetRepository) Find(ctx context.Context, email, token string, now time.Time) (*model.PasswordResetToken, error) {
	var t model.PasswordResetToken
	err := r.db.GetContext(ctx, &t, `
		SELECT id, email, user_type, token, created_at, expires_at
		FROM password_reset_tokens
		WHERE email = $1 AND token = $2 AND expires_at > $3`,
		email, token, now)
	if err != nil {
		return nil, mapError("find reset token", err)
	}
	return &t, nil
}

func (r *passwordResetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE id = $1`, id)
	return mapError("delete reset token", err)
}

func (r *passwordResetRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapError("delete expired reset tokens", err)
	}
	return res.RowsAffected()
}
