package model

import "github.com/google/uuid"

const (
	MinRating = 1
	MaxRating = 5
)

type Rating struct {
	Base
	AppointmentID uuid.UUID `json:"appointmentId" db:"appointment_id"`
	UserID        uuid.UUID `json:"userId" db:"user_id"`
	DoctorID      uuid.UUID `json:"doctorId" db:"doctor_id"`
	Rating        int       `json:"rating" db:"rating"`
	Review        string    `json:"review" db:"review"`
}

// NextAverage folds one more score into a running average.
func NextAverage(avg float64, count int, score int) (float64, int) {
	next := (avg*float64(count) + float64(score)) / float64(count+1)
	return next, count + 1
}

func ValidScore(score int) bool {
	return score >= MinRating && score <= MaxRating
}
