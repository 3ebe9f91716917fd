package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/mkraev/chatauth/internal/handlers/middleware"
	"github.com/mkraev/chatauth/internal/logger"
	"github.com/mkraev/chatauth/internal/models"
	"github.com/mkraev/chatauth/internal/service/auth"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(authService authService, logger logger.Logger) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authService)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	apiusers := http.NewServeMux()

	apiusers.Handle("POST /signup", handleSignup(authService, logger))
	apiusers.Handle("POST /login", handleLogin(authService, logger))
	apiusers.Handle("POST /refresh-token", handleTokenRefresh(authService, logger))
	apiusers.Handle("POST /google-login", handleGoogleLogin(authService, logger))

	apiusers.Handle("POST /logout", withAuth(handleLogout(authService, logger)))
	apiusers.Handle("GET /profile", withAuth(handleUserProfile()))

	root := http.NewServeMux()
	root.Handle("/api/users/", http.StripPrefix("/api/users", apiusers))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user with email and password
	// Has to return apperrors.ErrEmailAlreadyExists if the email is taken
	Signup(ctx context.Context, email string, password string) (auth.AuthResult, error)

	// Login with email and password
	// Unknown email and wrong password both return
	// apperrors.ErrInvalidCredentials
	Login(ctx context.Context, email string, password string, remember bool) (auth.AuthResult, error)

	// Rotate the presented refresh token for a fresh pair
	// Has to return apperrors.ErrInvalidRefreshToken for a superseded,
	// logged-out or otherwise rejected token
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)

	// Drop the user's active session
	Logout(ctx context.Context, userID uuid.UUID) error

	// Login through a verified google id token
	GoogleLogin(ctx context.Context, idToken string, claimedEmail string) (auth.AuthResult, error)

	// Resolve the user behind a bearer access token
	GetUserByAccessToken(ctx context.Context, accessToken string) (models.User, error)
}
