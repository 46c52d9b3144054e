package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const doctorSelect = `
	SELECT a.id, a.role, a.name, a.email, a.password_hash, a.image, a.phone, a.fin,
		a.front_image, a.back_image, a.address, a.gender, a.dob, a.created_at, a.updated_at,
		p.speciality, p.degree, p.experience, p.about, p.fees, p.available, p.is_active,
		p.date, p.slots_booked, p.average_rating, p.total_ratings, p.version
	FROM accounts a
	JOIN doctor_profiles p ON p.account_id = a.id`

type doctorRepository struct {
	BaseRepository
}

func NewDoctorRepository(base BaseRepository) repository.DoctorRepository {
	return &doctorRepository{base}
}

func (r *doctorRepository) Create(ctx context.Context, d *model.Doctor) error {
	d.Role = model.RoleDoctor
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.SlotsBooked == nil {
		d.SlotsBooked = model.SlotLedger{}
	}
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO accounts (` + accountColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`
		a := &d.Account
		if _, err := tx.ExecContext(ctx, query,
			a.ID, a.Role, a.Name, a.Email, a.PasswordHash, a.Image, a.Phone, a.FIN,
			a.FrontImage, a.BackImage, a.Address, a.Gender, a.DOB, a.CreatedAt, a.UpdatedAt,
		); err != nil {
			return mapError("create doctor account", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO doctor_profiles (
				account_id, speciality, degree, experience, about, fees,
				available, is_active, date, slots_booked, average_rating, total_ratings, version
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, 0, 0)`,
			d.ID, d.Speciality, d.Degree, d.Experience, d.About, d.Fees,
			d.Available, d.IsActive, d.Date, d.SlotsBooked,
		)
		return mapError("create doctor profile", err)
	})
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	var d model.Doctor
	if err := r.db.GetContext(ctx, &d, doctorSelect+` WHERE a.id = $1`, id); err != nil {
		return nil, mapError("get doctor", err)
	}
	return &d, nil
}

func (r *doctorRepository) List(ctx context.Context, filter model.DoctorFilter) ([]*model.Doctor, error) {
	query := doctorSelect
	if filter.ActiveOnly {
		query += ` WHERE p.is_active`
	}
	query += ` ORDER BY a.created_at DESC`

	doctors := []*model.Doctor{}
	if err := r.db.SelectContext(ctx, &doctors, query); err != nil {
		return nil, mapError("list doctors", err)
	}
	return doctors, nil
}

func (r *doctorRepository) UpdateProfile(ctx context.Context, id uuid.UUID, u model.DoctorProfileUpdate) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE doctor_profiles
			SET fees = COALESCE($1, fees),
				available = COALESCE($2, available),
				about = COALESCE($3, about)
			WHERE account_id = $4`,
			u.Fees, u.Available, u.About, id)
		if err != nil {
			return mapError("update doctor profile", err)
		}
		if err := requireAffected("update doctor profile", res); err != nil {
			return err
		}
		if u.Address == nil {
			return nil
		}
		_, err = tx.ExecContext(ctx, `UPDATE accounts SET address = $1, updated_at = NOW() WHERE id = $2`, *u.Address, id)
		return mapError("update doctor address", err)
	})
}

func (r *doctorRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE doctor_profiles SET available = $1 WHERE account_id = $2`, available, id)
	if err != nil {
		return mapError("set availability", err)
	}
	return requireAffected("set availability", res)
}

func (r *doctorRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE doctor_profiles SET is_active = $1 WHERE account_id = $2`, active, id)
	if err != nil {
		return mapError("set active", err)
	}
	return requireAffected("set active", res)
}

func (r *doctorRepository) UpdateSlots(ctx context.Context, id uuid.UUID, slots model.SlotLedger, expectedVersion int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE doctor_profiles
		SET slots_booked = $1, version = version + 1
		WHERE account_id = $2 AND version = $3`,
		slots, id, expectedVersion)
	if err != nil {
		return false, mapError("update slots", err)
	}
	return affected("update slots", res)
}

func (r *doctorRepository) UpdateRating(ctx context.Context, id uuid.UUID, average float64, total int, expectedVersion int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE doctor_profiles
		SET average_rating = $1, total_ratings = $2, version = version + 1
		WHERE account_id = $3 AND version = $4`,
		average, total, id, expectedVersion)
	if err != nil {
		return false, mapError("update rating", err)
	}
	return affected("update rating", res)
}

func (r *doctorRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM doctor_profiles`); err != nil {
		return 0, mapError("count doctors", err)
	}
	return n, nil
}
