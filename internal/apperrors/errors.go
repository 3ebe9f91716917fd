package apperrors

import (
	"errors"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrUserNotFound       = errors.New("user not found")

	// Login failures are indistinguishable on purpose: unknown email and
	// wrong password both surface as ErrInvalidCredentials
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrTokenExpired        = errors.New("token is expired")
	ErrTokenInvalid        = errors.New("token is invalid")
	ErrInvalidGoogleToken  = errors.New("invalid google token")

	ErrInvalidHashFormat = errors.New("malformed password hash")

	// Signing secret missing or unusable. Fatal at startup, never per request
	ErrSigningFailure = errors.New("token signing failure")

	// Generic wrapper for storage errors that don't map to a known kind
	ErrStorage = errors.New("storage failure")
)
