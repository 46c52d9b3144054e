package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type ratingRepository struct {
	BaseRepository
}

func NewRatingRepository(base BaseRepository) repository.RatingRepository {
	return &ratingRepository{base}
}

func (r *ratingRepository) Create(ctx context.Context, rt *model.Rating) error {
	rt.ID = uuid.New()
	rt.CreatedAt = time.Now()
	rt.UpdatedAt = rt.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ratings (id, appointment_id, user_id, doctor_id, rating, review, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rt.ID, rt.AppointmentID, rt.UserID, rt.DoctorID, rt.Rating, rt.Review, rt.CreatedAt, rt.UpdatedAt,
	)
	return mapError("create rating", err)
}

func (r *ratingRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Rating, error) {
	ratings := []*model.Rating{}
	err := r.db.SelectContext(ctx, &ratings, `
		SELECT id, appointment_id, user_id, doctor_id, rating, review, created_at, updated_at
		FROM ratings WHERE doctor_id = $1 ORDER BY created_at DESC`, doctorID)
	if err != nil {
		return nil, mapError("list ratings", err)
	}
	return ratings, nil
}
