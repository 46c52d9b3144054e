package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const accountColumns = `
	id, role, name, email, password_hash, image, phone, fin, front_image,
	back_image, address, gender, dob, created_at, updated_at`

type accountRepository struct {
	BaseRepository
}

func NewAccountRepository(base BaseRepository) repository.AccountRepository {
	return &accountRepository{base}
}

func (r *accountRepository) Create(ctx context.Context, a *model.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Role, a.Name, a.Email, a.PasswordHash, a.Image, a.Phone, a.FIN,
		a.FrontImage, a.BackImage, a.Address, a.Gender, a.DOB, a.CreatedAt, a.UpdatedAt,
	)
	return mapError("create account", err)
}

func (r *accountRepository) Get(ctx context.Context, role model.Role, id uuid.UUID) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE role = $1 AND id = $2`

	var a model.Account
	if err := r.db.GetContext(ctx, &a, query, role, id); err != nil {
		return nil, mapError("get account", err)
	}
	return &a, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, role model.Role, email string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE role = $1 AND email = $2`

	var a model.Account
	if err := r.db.GetContext(ctx, &a, query, role, email); err != nil {
		return nil, mapError("get account by email", err)
	}
	return &a, nil
}

func (r *accountRepository) GetByFIN(ctx context.Context, fin string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE fin = $1`

	var a model.Account
	if err := r.db.GetContext(ctx, &a, query, fin); err != nil {
		return nil, mapError("get account by fin", err)
	}
	return &a, nil
}

func (r *accountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email)
	if err != nil {
		return false, mapError("check account email", err)
	}
	return exists, nil
}

func (r *accountRepository) UpdateProfile(ctx context.Context, id uuid.UUID, u model.ProfileUpdate) error {
	query := `
		UPDATE accounts
		SET name = $1, phone = $2, address = $3, dob = $4, gender = $5,
			image = COALESCE(NULLIF($6, ''), image), updated_at = NOW()
		WHERE id = $7
	`
	res, err := r.db.ExecContext(ctx, query, u.Name, u.Phone, u.Address, u.DOB, u.Gender, u.Image, id)
	if err != nil {
		return mapError("update profile", err)
	}
	return requireAffected("update profile", res)
}

func (r *accountRepository) UpdatePassword(ctx context.Context, role model.Role, id uuid.UUID, hash string) error {
	query := `UPDATE accounts SET password_hash = $1, updated_at = NOW() WHERE role = $2 AND id = $3`

	res, err := r.db.ExecContext(ctx, query, hash, role, id)
	if err != nil {
		return mapError("update password", err)
	}
	return requireAffected("update password", res)
}

func (r *accountRepository) Delete(ctx context.Context, role model.Role, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE role = $1 AND id = $2`, role, id)
	if err != nil {
		return mapError("delete account", err)
	}
	return requireAffected("delete account", res)
}

func (r *accountRepository) List(ctx context.Context, role model.Role) ([]*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE role = $1 ORDER BY created_at DESC`

	accounts := []*model.Account{}
	if err := r.db.SelectContext(ctx, &accounts, query, role); err != nil {
		return nil, mapError("list accounts", err)
	}
	return accounts, nil
}

func (r *accountRepository) Count(ctx context.Context, role model.Role) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM accounts WHERE role = $1`, role); err != nil {
		return 0, mapError("count accounts", err)
	}
	return n, nil
}
