package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mkraev/chatauth/internal/apperrors"
	"github.com/mkraev/chatauth/internal/models"
)

const (
	defaultSigningMethod   = "HS256"
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token kind selects the signing secret and the default TTL
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

type TokenClaims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"uid"`
}

// Token manager config with sensible defaults
type TokenConfig struct {
	// Secrets to sign token payloads, distinct per kind so leaking one
	// does not compromise the other's trust domain
	// Both required to be set
	AccessSecret  string
	RefreshSecret string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set then default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set then default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type TokenManager struct {
	accessKey  []byte
	refreshKey []byte

	alg jwt.SigningMethod

	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if cfg.AccessSecret == "" {
		return nil, fmt.Errorf("%w: access secret must not be empty", apperrors.ErrSigningFailure)
	}
	if cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("%w: refresh secret must not be empty", apperrors.ErrSigningFailure)
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		alg:        jwt.GetSigningMethod(cfg.Alg),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

func (m *TokenManager) keyFor(kind TokenKind) ([]byte, error) {
	switch kind {
	case TokenAccess:
		return m.accessKey, nil
	case TokenRefresh:
		return m.refreshKey, nil
	default:
		return nil, fmt.Errorf("unknown token kind: %q", kind)
	}
}

func (m *TokenManager) ttlFor(kind TokenKind) time.Duration {
	if kind == TokenRefresh {
		return m.refreshTTL
	}
	return m.accessTTL
}

// Issue a signed token of the given kind bound to userID
// Zero ttl picks the default for the kind; callers override it for the
// "remember me" long refresh window
func (m *TokenManager) Issue(userID uuid.UUID, kind TokenKind, ttl time.Duration) (models.IssuedToken, error) {
	key, err := m.keyFor(kind)
	if err != nil {
		return models.IssuedToken{}, err
	}

	if ttl == 0 {
		ttl = m.ttlFor(kind)
	}

	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(
		m.alg,
		TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			UserID: userID,
		},
	)

	signed, err := token.SignedString(key)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("%w: %w", apperrors.ErrSigningFailure, err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// GeneratePair issues an access and a refresh token for the user
// refreshTTL zero means the default refresh lifetime
func (m *TokenManager) GeneratePair(userID uuid.UUID, refreshTTL time.Duration) (models.TokenPair, error) {
	var pair models.TokenPair

	access, err := m.Issue(userID, TokenAccess, 0)
	if err != nil {
		return pair, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	refresh, err := m.Issue(userID, TokenRefresh, refreshTTL)
	if err != nil {
		return pair, fmt.Errorf("error while signing refresh token. Err: %w", err)
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

// Verify the signature and expiry of a presented token and extract claims
// Pure wall-clock check, it never consults storage
// Returns apperrors.ErrTokenExpired for a well-signed but stale token and
// apperrors.ErrTokenInvalid for everything else
func (m *TokenManager) Verify(tokenString string, kind TokenKind) (TokenClaims, error) {
	key, err := m.keyFor(kind)
	if err != nil {
		return TokenClaims{}, err
	}

	claims := &TokenClaims{}
	_, err = jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)

	switch {
	case err == nil:
		return *claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return TokenClaims{}, fmt.Errorf("%w: %w", apperrors.ErrTokenExpired, err)
	default:
		return TokenClaims{}, fmt.Errorf("%w: %w", apperrors.ErrTokenInvalid, err)
	}
}
