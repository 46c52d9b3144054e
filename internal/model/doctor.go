package model

import (
	"database/sql/driver"

	"github.com/google/uuid"
)

// Doctor extends Account with the practice profile and the slot ledger.
type Doctor struct {
	Account
	Speciality    string     `json:"speciality" db:"speciality"`
	Degree        string     `json:"degree" db:"degree"`
	Experience    string     `json:"experience" db:"experience"`
	About         string     `json:"about" db:"about"`
	Fees          float64    `json:"fees" db:"fees"`
	Available     bool       `json:"available" db:"available"`
	IsActive      bool       `json:"isActive" db:"is_active"`
	Date          int64      `json:"date" db:"date"`
	SlotsBooked   SlotLedger `json:"slots_booked" db:"slots_booked"`
	AverageRating float64    `json:"averageRating" db:"average_rating"`
	TotalRatings  int        `json:"totalRatings" db:"total_ratings"`
	// Version increases on every ledger or rating write and guards
	// conditional updates.
	Version int64 `json:"-" db:"version"`
}

// NewDoctor returns an available, active doctor with an empty ledger.
func NewDoctor(acc *Account) *Doctor {
	acc.Role = RoleDoctor
	return &Doctor{
		Account:     *acc,
		Available:   true,
		IsActive:    true,
		Date:        NowMillis(),
		SlotsBooked: SlotLedger{},
	}
}

// Public hides the email for the patient-facing listing.
func (d *Doctor) Public() *Doctor {
	c := *d
	c.Email = ""
	return &c
}

func (d *Doctor) Snapshot() DoctorSnapshot {
	return DoctorSnapshot{
		ID:         d.ID,
		Name:       d.Name,
		Email:      d.Email,
		Image:      d.Image,
		Speciality: d.Speciality,
		Degree:     d.Degree,
		Experience: d.Experience,
		About:      d.About,
		Fees:       d.Fees,
		Address:    d.Address,
	}
}

// DoctorProfileUpdate holds the fields a doctor may edit on their own profile.
type DoctorProfileUpdate struct {
	Fees      *float64
	Address   *Address
	Available *bool
	About     *string
}

type DoctorFilter struct {
	ActiveOnly bool
}

// DoctorSnapshot is the doctor data frozen into an appointment at booking time.
type DoctorSnapshot struct {
	ID         uuid.UUID `json:"_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Image      string    `json:"image"`
	Speciality string    `json:"speciality"`
	Degree     string    `json:"degree"`
	Experience string    `json:"experience"`
	About      string    `json:"about"`
	Fees       float64   `json:"fees"`
	Address    Address   `json:"address"`
}

func (s DoctorSnapshot) Value() (driver.Value, error) { return jsonValue(s) }
func (s *DoctorSnapshot) Scan(src interface{}) error  { return jsonScan(src, s) }
