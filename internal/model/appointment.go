package model

import (
	"database/sql/driver"

	"github.com/google/uuid"
)

// CancelActor records who cancelled an appointment.
type CancelActor string

const (
	CancelledByNone    CancelActor = "none"
	CancelledByPatient CancelActor = "patient"
	CancelledByDoctor  CancelActor = "doctor"
	CancelledByManager CancelActor = "manager"
	CancelledByAdmin   CancelActor = "admin"
)

const DefaultCancelReason = "No reason provided"

// ActorFor maps an authenticated role to the cancellation actor.
func ActorFor(role Role) CancelActor {
	switch role {
	case RolePatient:
		return CancelledByPatient
	case RoleDoctor:
		return CancelledByDoctor
	case RoleManager:
		return CancelledByManager
	case RoleAdmin:
		return CancelledByAdmin
	}
	return CancelledByNone
}

// PatientSnapshot is the patient data frozen into an appointment.
type PatientSnapshot struct {
	ID      uuid.UUID `json:"_id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Image   string    `json:"image"`
	Phone   string    `json:"phone"`
	Address Address   `json:"address"`
	Gender  string    `json:"gender"`
	DOB     string    `json:"dob"`
}

func (s PatientSnapshot) Value() (driver.Value, error) { return jsonValue(s) }
func (s *PatientSnapshot) Scan(src interface{}) error  { return jsonScan(src, s) }

func (a *Account) Snapshot() PatientSnapshot {
	return PatientSnapshot{
		ID:      a.ID,
		Name:    a.Name,
		Email:   a.Email,
		Image:   a.Image,
		Phone:   a.Phone,
		Address: a.Address,
		Gender:  a.Gender,
		DOB:     a.DOB,
	}
}

type Appointment struct {
	Base
	UserID         uuid.UUID       `json:"userId" db:"user_id"`
	DocID          uuid.UUID       `json:"docId" db:"doc_id"`
	SlotDate       string          `json:"slotDate" db:"slot_date"`
	SlotTime       string          `json:"slotTime" db:"slot_time"`
	UserData       PatientSnapshot `json:"userData" db:"user_data"`
	DocData        DoctorSnapshot  `json:"docData" db:"doc_data"`
	Amount         float64         `json:"amount" db:"amount"`
	Date           int64           `json:"date" db:"date"`
	Cancelled      bool            `json:"cancelled" db:"cancelled"`
	CancelledBy    CancelActor     `json:"cancelledBy" db:"cancelled_by"`
	ReasonToCancel string          `json:"reasonToCancel,omitempty" db:"reason_to_cancel"`
	Payment        bool            `json:"payment" db:"payment"`
	IsCompleted    bool            `json:"isCompleted" db:"is_completed"`
	IsRated        bool            `json:"isRated" db:"is_rated"`
}

// NewAppointment builds a fresh booking for the given slot.
func NewAppointment(patient *Account, doctor *Doctor, slotDate, slotTime string) *Appointment {
	return &Appointment{
		UserID:      patient.ID,
		DocID:       doctor.ID,
		SlotDate:    slotDate,
		SlotTime:    slotTime,
		UserData:    patient.Snapshot(),
		DocData:     doctor.Snapshot(),
		Amount:      doctor.Fees,
		Date:        NowMillis(),
		CancelledBy: CancelledByNone,
	}
}

// Rateable reports whether the appointment can receive its rating.
func (a *Appointment) Rateable() bool {
	return a.IsCompleted && !a.Cancelled && !a.IsRated
}

type AppointmentFilter struct {
	UserID *uuid.UUID
	DocID  *uuid.UUID
	// PendingRating keeps completed, uncancelled, unrated appointments.
	PendingRating bool
	// NewestFirst orders by creation time descending.
	NewestFirst bool
}
