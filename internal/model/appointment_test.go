package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewAppointmentSnapshotsAndDefaults(t *testing.T) {
	patient := NewAccount(RolePatient, "Jane", "jane@example.com", "hash")
	patient.ID = uuid.New()
	doctor := NewDoctor(NewAccount(RoleDoctor, "Dr. Lee", "lee@example.com", "hash"))
	doctor.ID = uuid.New()
	doctor.Fees = 50

	appt := NewAppointment(patient, doctor, "15_1_2024", "10:00 AM")

	assert.Equal(t, patient.ID, appt.UserID)
	assert.Equal(t, doctor.ID, appt.DocID)
	assert.Equal(t, 50.0, appt.Amount)
	assert.Equal(t, "Jane", appt.UserData.Name)
	assert.Equal(t, "Dr. Lee", appt.DocData.Name)
	assert.Equal(t, CancelledByNone, appt.CancelledBy)
	assert.False(t, appt.Payment)
	assert.False(t, appt.IsCompleted)
	assert.False(t, appt.IsRated)
	assert.False(t, appt.Cancelled)
	assert.False(t, appt.Rateable())

	appt.IsCompleted = true
	assert.True(t, appt.Rateable())
	appt.IsRated = true
	assert.False(t, appt.Rateable())
}

func TestDoctorPublicHidesEmail(t *testing.T) {
	doctor := NewDoctor(NewAccount(RoleDoctor, "Dr. Lee", "lee@example.com", "hash"))
	pub := doctor.Public()

	assert.Empty(t, pub.Email)
	assert.Equal(t, "lee@example.com", doctor.Email)
	assert.True(t, pub.Available)
	assert.True(t, pub.IsActive)
}

func TestActorFor(t *testing.T) {
	assert.Equal(t, CancelledByPatient, ActorFor(RolePatient))
	assert.Equal(t, CancelledByAdmin, ActorFor(RoleAdmin))
	assert.Equal(t, CancelledByNone, ActorFor(Role("ghost")))
}
