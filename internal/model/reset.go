package model

import (
	"time"

	"github.com/google/uuid"
)

const ResetTokenTTL = time.Hour

// PasswordResetToken is a single-use credential for resetting a password.
type PasswordResetToken struct {
	ID        uuid.UUID `db:"id"`
	Email     string    `db:"email"`
	UserType  Role      `db:"user_type"`
	Token     string    `db:"token"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

func (t *PasswordResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
