package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkraev/chatauth/internal/apperrors"
	"github.com/mkraev/chatauth/internal/models"
	"github.com/mkraev/chatauth/internal/repository"
	"github.com/mkraev/chatauth/internal/service/identity"
)

const defaultRememberTTL = 30 * 24 * time.Hour

// External verifier of google id tokens
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (identity.GoogleUser, error)
}

type Config struct {
	// Hasher to use during registration or login
	// Default bcrypt hasher is used when nil
	Hasher PasswordHasher

	// Refresh token lifetime when the user asks to be remembered
	// 30 days when zero
	RememberTTL time.Duration

	// Verifier for google login, the operation fails when not configured
	Google GoogleVerifier
}

// Result of every operation that starts a session
type AuthResult struct {
	User   models.User
	Tokens models.TokenPair
}

// Auth service
// Orchestrates hasher, token manager and user repo. Session state lives on
// the user record: a non-null refresh token digest means an active session
type AuthService struct {
	token       *TokenManager
	hasher      PasswordHasher
	userRepo    repository.UserRepo
	google      GoogleVerifier
	rememberTTL time.Duration
}

func NewService(cfg Config, tokenManager *TokenManager, userRepo repository.UserRepo) (*AuthService, error) {
	if tokenManager == nil {
		return nil, errors.New("token manager must not be nil")
	}
	if userRepo == nil {
		return nil, errors.New("user repo must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	rememberTTL := cfg.RememberTTL
	if rememberTTL == 0 {
		rememberTTL = defaultRememberTTL
	}

	return &AuthService{
		token:       tokenManager,
		hasher:      hasher,
		userRepo:    userRepo,
		google:      cfg.Google,
		rememberTTL: rememberTTL,
	}, nil
}

// Signup registers a user and starts a session
// Returns apperrors.ErrEmailAlreadyExists when the email is taken
func (s *AuthService) Signup(ctx context.Context, email string, password string) (AuthResult, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, repository.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return AuthResult{}, err
	}

	return s.startSession(ctx, user, 0)
}

// Login verifies credentials and starts a session, invalidating any prior one
// Unknown email and wrong password are indistinguishable to the caller:
// both cost one hash comparison and both return apperrors.ErrInvalidCredentials
func (s *AuthService) Login(ctx context.Context, email string, password string, remember bool) (AuthResult, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		s.hasher.DummyCompare(password)
		return AuthResult{}, apperrors.ErrInvalidCredentials
	case err != nil:
		return AuthResult{}, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, apperrors.ErrInvalidHashFormat) {
			return AuthResult{}, err
		}
		return AuthResult{}, apperrors.ErrInvalidCredentials
	}

	var refreshTTL time.Duration
	if remember {
		refreshTTL = s.rememberTTL
	}

	return s.startSession(ctx, user, refreshTTL)
}

// Refresh rotates the presented refresh token for a brand new pair
// The stored digest must match the presented token exactly, and the swap is
// a compare-and-set: when two calls race on the same token at most one wins,
// the loser gets apperrors.ErrInvalidRefreshToken
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	claims, err := s.token.Verify(refreshToken, TokenRefresh)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidRefreshToken, err)
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return models.TokenPair{}, apperrors.ErrInvalidRefreshToken
	case err != nil:
		return models.TokenPair{}, err
	}

	presented := tokenDigest(refreshToken)
	if user.RefreshTokenHash == nil || *user.RefreshTokenHash != presented {
		// Superseded session, logged-out user or a forged-but-signed token
		return models.TokenPair{}, apperrors.ErrInvalidRefreshToken
	}

	pair, err := s.token.GeneratePair(user.ID, 0)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	swapped, err := s.userRepo.SwapRefreshToken(ctx, user.ID, presented, tokenDigest(pair.Refresh.Value))
	if err != nil {
		return models.TokenPair{}, err
	}
	if !swapped {
		return models.TokenPair{}, apperrors.ErrInvalidRefreshToken
	}

	return pair, nil
}

// Logout drops the active session
// Logging out twice is a no-op success, apperrors.ErrUserNotFound is
// returned only when the user record itself is gone
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.userRepo.ClearRefreshToken(ctx, userID)
}

// GoogleLogin proves identity through the external verifier, finds or
// creates the user by email and starts a session exactly as Login does
// Created accounts get a random unguessable password so they have no usable
// password login
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string, claimedEmail string) (AuthResult, error) {
	if s.google == nil {
		return AuthResult{}, errors.New("google login is not configured")
	}

	ident, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return AuthResult{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidGoogleToken, err)
	}

	if claimedEmail != "" && ident.Email != claimedEmail {
		return AuthResult{}, fmt.Errorf("%w: email mismatch", apperrors.ErrInvalidGoogleToken)
	}

	user, err := s.userRepo.GetUserByEmail(ctx, ident.Email)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		user, err = s.createGoogleUser(ctx, ident)
		if err != nil {
			return AuthResult{}, err
		}
	case err != nil:
		return AuthResult{}, err
	default:
		if user.GoogleID == nil {
			if err := s.userRepo.SetGoogleID(ctx, user.ID, ident.SubjectID); err != nil {
				return AuthResult{}, err
			}
			user.GoogleID = &ident.SubjectID
		}
	}

	return s.startSession(ctx, user, 0)
}

// GetUserByAccessToken verifies an access token and resolves its user
// Used by the HTTP auth middleware
func (s *AuthService) GetUserByAccessToken(ctx context.Context, accessToken string) (models.User, error) {
	claims, err := s.token.Verify(accessToken, TokenAccess)
	if err != nil {
		return models.User{}, err
	}

	return s.userRepo.GetUserByID(ctx, claims.UserID)
}

// startSession mints a pair and persists the refresh digest on the user,
// overwriting whatever session was active before
func (s *AuthService) startSession(ctx context.Context, user models.User, refreshTTL time.Duration) (AuthResult, error) {
	pair, err := s.token.GeneratePair(user.ID, refreshTTL)
	if err != nil {
		return AuthResult{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	digest := tokenDigest(pair.Refresh.Value)
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, digest); err != nil {
		return AuthResult{}, err
	}
	user.RefreshTokenHash = &digest

	return AuthResult{User: user, Tokens: pair}, nil
}

func (s *AuthService) createGoogleUser(ctx context.Context, ident identity.GoogleUser) (models.User, error) {
	// Token material is never compared in plaintext anywhere, and the
	// password for a google-only account is random so password login
	// stays unusable
	password, err := randomSecret()
	if err != nil {
		return models.User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, err
	}

	return s.userRepo.CreateUser(ctx, repository.CreateUserParams{
		Email:        ident.Email,
		PasswordHash: hash,
		GoogleID:     &ident.SubjectID,
	})
}

// Refresh tokens are persisted as digests so a leaked store never yields
// replayable token material
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error while generating secret. Err: %w", err)
	}
	return hex.EncodeToString(b), nil
}
