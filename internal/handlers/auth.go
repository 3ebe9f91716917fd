package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/mkraev/chatauth/internal/apperrors"
	"github.com/mkraev/chatauth/internal/handlers/render"
	"github.com/mkraev/chatauth/internal/handlers/userctx"
	"github.com/mkraev/chatauth/internal/logger"
	"github.com/mkraev/chatauth/internal/models"
	"github.com/mkraev/chatauth/internal/service/auth"
)

// Token pair payload returned on every operation that starts a session
type tokensPayload struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

func toTokensPayload(pair models.TokenPair) tokensPayload {
	return tokensPayload{
		AccessToken:      pair.Access.Value,
		AccessExpiresAt:  pair.Access.ExpiresAt,
		RefreshToken:     pair.Refresh.Value,
		RefreshExpiresAt: pair.Refresh.ExpiresAt,
	}
}

type sessionResponse struct {
	User   models.PublicUser `json:"user"`
	Tokens tokensPayload     `json:"tokens"`
}

func handleSignup(as authService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := as.Signup(r.Context(), data.Email, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrEmailAlreadyExists):
				render.ServiceError(w, "Email already exists", http.StatusConflict)
			default:
				l.Error("signup failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSONWithStatus(w, sessionResponse{
			User:   result.User.Public(),
			Tokens: toTokensPayload(result.Tokens),
		}, http.StatusCreated)
	})
}

func handleLogin(as authService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		Remember bool   `json:"remember"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := as.Login(r.Context(), data.Email, data.Password, data.Remember)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidCredentials):
				// Same status and message for unknown email and wrong
				// password, so accounts can't be enumerated
				render.ServiceError(w, "Invalid credentials", http.StatusUnauthorized)
			default:
				l.Error("login failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, sessionResponse{
			User:   result.User.Public(),
			Tokens: toTokensPayload(result.Tokens),
		})
	})
}

func handleTokenRefresh(as authService, l logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	type response struct {
		Tokens tokensPayload `json:"tokens"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := as.Refresh(r.Context(), data.RefreshToken)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidRefreshToken):
				render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
			default:
				l.Error("token refresh failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{Tokens: toTokensPayload(pair)})
	})
}

func handleLogout(as authService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if err := as.Logout(r.Context(), user.ID); err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			default:
				l.Error("logout failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{Message: "User logged out successfully"})
	})
}

func handleGoogleLogin(as authService, l logger.Logger) http.Handler {
	type request struct {
		IDToken string `json:"idToken" validate:"required"`
		Email   string `json:"email" validate:"omitempty,email"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := as.GoogleLogin(r.Context(), data.IDToken, data.Email)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidGoogleToken):
				render.ServiceError(w, "Invalid google token", http.StatusUnauthorized)
			default:
				l.Error("google login failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, sessionResponse{
			User:   result.User.Public(),
			Tokens: toTokensPayload(result.Tokens),
		})
	})
}

// Keep handlers honest about what they need from the auth service
var _ authService = (*auth.AuthService)(nil)
