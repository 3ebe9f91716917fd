package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string

	// Set only via the Google login path, nil otherwise
	GoogleID *string

	// Digest of the single active refresh token, nil when logged out
	RefreshTokenHash *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicUser is the user view returned to callers.
// It never carries the password hash or the refresh token.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
