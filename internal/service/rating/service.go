package rating

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

const (
	maxAggregateAttempts = 5
	msgAlreadyRated      = "You have already rated this appointment"
)

type SubmitRequest struct {
	AppointmentID string
	Rating        int
	Review        string
}

type SubmitResult struct {
	NewAverageRating float64
	TotalRatings     int
}

type Service struct {
	appointments repository.AppointmentRepository
	doctors      repository.DoctorRepository
	ratings      repository.RatingRepository
	events       event.Recorder
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

func NewService(store *repository.Store, events event.Recorder, m *metrics.Metrics, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		appointments: store.Appointments,
		doctors:      store.Doctors,
		ratings:      store.Ratings,
		events:       events,
		metrics:      m,
		logger:       log.WithComponent("rating"),
	}
}

// Submit stores the patient's rating for a completed appointment and folds
// it into the doctor's running average. The rated flag is claimed first, so
// the aggregate is updated at most once per appointment.
func (s *Service) Submit(ctx context.Context, patientID uuid.UUID, req SubmitRequest) (*SubmitResult, error) {
	if req.AppointmentID == "" || req.Rating == 0 {
		return nil, errors.NewBadRequest("Missing required fields", nil)
	}
	if !model.ValidScore(req.Rating) {
		return nil, errors.NewBadRequest("Rating must be between 1 and 5", nil)
	}

	aptID, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		return nil, errors.NewNotFound("Appointment not found", err)
	}
	apt, err := s.appointments.Get(ctx, aptID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NewNotFound("Appointment not found", err)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if apt.UserID != patientID {
		return nil, errors.NewForbidden("Unauthorized: This appointment doesn't belong to you", nil)
	}
	if !apt.IsCompleted || apt.Cancelled {
		return nil, errors.NewConflict("You can only rate completed appointments", nil)
	}
	if apt.IsRated {
		return nil, errors.NewConflict(msgAlreadyRated, nil)
	}

	claimed, err := s.appointments.MarkRated(ctx, apt.ID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if !claimed {
		return nil, errors.NewConflict(msgAlreadyRated, nil)
	}

	rating := &model.Rating{
		AppointmentID: apt.ID,
		UserID:        patientID,
		DoctorID:      apt.DocID,
		Rating:        req.Rating,
		Review:        req.Review,
	}
	if err := s.ratings.Create(ctx, rating); err != nil {
		if unmarkErr := s.appointments.UnmarkRated(ctx, apt.ID); unmarkErr != nil {
			s.logger.Error(unmarkErr, "failed to revert rated flag", "appointment_id", apt.ID.String())
		}
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.NewConflict(msgAlreadyRated, err)
		}
		return nil, errors.NewInternal(err)
	}

	avg, total, err := s.applyNewRating(ctx, apt.DocID, req.Rating)
	if err != nil {
		s.logger.Error(err, "rating stored but doctor aggregate not updated",
			"rating_id", rating.ID.String(), "doctor_id", apt.DocID.String())
		return nil, errors.NewInternal(err)
	}

	s.metrics.RatingsSubmitted.Inc()
	s.events.Record(ctx, model.EventRatingSubmitted, map[string]interface{}{
		"ratingId":      rating.ID,
		"appointmentId": apt.ID,
		"doctorId":      apt.DocID,
		"rating":        req.Rating,
		"averageRating": avg,
		"totalRatings":  total,
	})
	return &SubmitResult{NewAverageRating: avg, TotalRatings: total}, nil
}

// applyNewRating folds score into the doctor's average with a
// version-conditional write, re-reading on a lost race.
func (s *Service) applyNewRating(ctx context.Context, doctorID uuid.UUID, score int) (float64, int, error) {
	for attempt := 0; attempt < maxAggregateAttempts; attempt++ {
		if attempt > 0 {
			s.metrics.LedgerRetries.Inc()
		}
		doctor, err := s.doctors.Get(ctx, doctorID)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to load doctor: %w", err)
		}
		avg, total := model.NextAverage(doctor.AverageRating, doctor.TotalRatings, score)
		ok, err := s.doctors.UpdateRating(ctx, doctorID, avg, total, doctor.Version)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to update rating: %w", err)
		}
		if ok {
			return avg, total, nil
		}
	}
	return 0, 0, fmt.Errorf("rating aggregate for doctor %s: too much contention", doctorID)
}

// ListForDoctor returns the doctor's ratings, newest first.
func (s *Service) ListForDoctor(ctx context.Context, doctorID string) ([]*model.Rating, error) {
	if doctorID == "" {
		return nil, errors.NewBadRequest("Doctor ID is required", nil)
	}
	id, err := uuid.Parse(doctorID)
	if err != nil {
		return []*model.Rating{}, nil
	}
	ratings, err := s.ratings.ListByDoctor(ctx, id)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return ratings, nil
}

// Pending lists the patient's completed appointments still waiting for a rating.
func (s *Service) Pending(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	apts, err := s.appointments.List(ctx, model.AppointmentFilter{UserID: &patientID, PendingRating: true})
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return apts, nil
}
