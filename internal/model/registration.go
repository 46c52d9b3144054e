package model

type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// PendingRegistration is a self-service sign-up waiting for an admin decision.
type PendingRegistration struct {
	Base
	Name         string             `json:"name" db:"name"`
	Email        string             `json:"email" db:"email"`
	PasswordHash string             `json:"-" db:"password_hash"`
	Image        string             `json:"image" db:"image"`
	Phone        string             `json:"phone" db:"phone"`
	FIN          string             `json:"fin" db:"fin"`
	FrontImage   string             `json:"frontImage" db:"front_image"`
	BackImage    string             `json:"backImage" db:"back_image"`
	Address      Address            `json:"address" db:"address"`
	Gender       string             `json:"gender" db:"gender"`
	DOB          string             `json:"dob" db:"dob"`
	Status       RegistrationStatus `json:"status" db:"status"`
}

// ToAccount copies the registration into a patient account. The password hash
// is reused as-is.
func (p *PendingRegistration) ToAccount() *Account {
	fin := p.FIN
	acc := NewAccount(RolePatient, p.Name, p.Email, p.PasswordHash)
	acc.Image = p.Image
	acc.Phone = p.Phone
	acc.FIN = &fin
	acc.FrontImage = p.FrontImage
	acc.BackImage = p.BackImage
	acc.Address = p.Address
	acc.Gender = p.Gender
	acc.DOB = p.DOB
	return acc
}
