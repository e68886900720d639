package types

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile represents the core user entity returned above the query
// layer. The password hash never leaves this package's consumers.
type UserProfile struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DateOfBirth  time.Time `json:"date_of_birth"`
	FirstName    *string   `json:"first_name,omitempty"`
	LastName     *string   `json:"last_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdult reports whether the user is 18 or older at the given instant.
func (u *UserProfile) IsAdult(now time.Time) bool {
	return !u.DateOfBirth.After(now.AddDate(-18, 0, 0))
}
