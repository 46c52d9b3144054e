package model

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// Role discriminates the account kinds. Patients keep the "user" tag that
// existing clients send and expect.
type Role string

const (
	RolePatient Role = "user"
	RoleDoctor  Role = "doctor"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// LoginOrder is the precedence used by unified login.
var LoginOrder = []Role{RolePatient, RoleDoctor, RoleManager, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Privileged roles may be materialized from legacy credentials.
func (r Role) Privileged() bool {
	return r == RoleManager || r == RoleAdmin
}

// Title is used in user-facing copy, e.g. email subjects.
func (r Role) Title() string {
	switch r {
	case RolePatient:
		return "Patient"
	case RoleDoctor:
		return "Doctor"
	case RoleManager:
		return "Manager"
	case RoleAdmin:
		return "Admin"
	}
	return "User"
}

const (
	DefaultImage  = "https://res.cloudinary.com/clinic/image/upload/v1/defaults/avatar.png"
	DefaultPhone  = "000000000"
	DefaultGender = "Not Selected"
	DefaultDOB    = "Not Selected"
)

type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

func (a Address) Value() (driver.Value, error) { return jsonValue(a) }
func (a *Address) Scan(src interface{}) error  { return jsonScan(src, a) }

// Account is the single record type behind patients, doctors, managers and admins.
type Account struct {
	Base
	Role         Role    `json:"role" db:"role"`
	Name         string  `json:"name" db:"name"`
	Email        string  `json:"email,omitempty" db:"email"`
	PasswordHash string  `json:"-" db:"password_hash"`
	Image        string  `json:"image" db:"image"`
	Phone        string  `json:"phone" db:"phone"`
	FIN          *string `json:"fin,omitempty" db:"fin"`
	FrontImage   string  `json:"frontImage,omitempty" db:"front_image"`
	BackImage    string  `json:"backImage,omitempty" db:"back_image"`
	Address      Address `json:"address" db:"address"`
	Gender       string  `json:"gender" db:"gender"`
	DOB          string  `json:"dob" db:"dob"`
}

// NewAccount fills the defaults every stored account carries.
func NewAccount(role Role, name, email, passwordHash string) *Account {
	return &Account{
		Role:         role,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Image:        DefaultImage,
		Phone:        DefaultPhone,
		Address:      Address{},
		Gender:       DefaultGender,
		DOB:          DefaultDOB,
	}
}

func (a *Account) FINValue() string {
	if a.FIN == nil {
		return ""
	}
	return *a.FIN
}

func (a *Account) String() string {
	return fmt.Sprintf("%s(%s)", a.Role, a.ID)
}

// ProfileUpdate carries the editable patient profile fields.
type ProfileUpdate struct {
	Name    string
	Phone   string
	Address Address
	DOB     string
	Gender  string
	Image   string
}

// Principal is the authenticated caller extracted from a token. Legacy
// principals were issued from configured credentials and have no stored id.
type Principal struct {
	AccountID uuid.UUID
	Role      Role
	Email     string
	Legacy    bool
}
