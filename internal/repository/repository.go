package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/mkraev/chatauth/internal/models"
)

type CreateUserParams struct {
	Email        string
	PasswordHash string

	// Optional external identity, set by the google login path only
	GoogleID *string
}

// User repository interface
// The refresh token is stored as a digest, never as the token itself
type UserRepo interface {
	// Create user
	// If a user with the same email exists already it has to return
	// apperrors.ErrEmailAlreadyExists
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Overwrite the stored refresh token digest unconditionally
	// Any previously active session is invalidated by this call
	SetRefreshToken(ctx context.Context, id uuid.UUID, tokenHash string) error

	// Replace the stored refresh token digest only if it still equals
	// oldHash at write time (compare-and-swap). Returns false without
	// error when the swap was lost to a concurrent rotation or the user
	// is logged out
	SwapRefreshToken(ctx context.Context, id uuid.UUID, oldHash string, newHash string) (bool, error)

	// Set the stored refresh token digest to null
	// Must be a no-op success when the user is already logged out and
	// return apperrors.ErrUserNotFound only when the user row is gone
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error

	// Link an external google identity to an existing user
	SetGoogleID(ctx context.Context, id uuid.UUID, googleID string) error
}
