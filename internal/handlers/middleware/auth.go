package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mkraev/chatauth/internal/handlers/render"
	"github.com/mkraev/chatauth/internal/handlers/userctx"
	"github.com/mkraev/chatauth/internal/models"
)

const authScheme = "Bearer"

type authService interface {
	GetUserByAccessToken(ctx context.Context, accessToken string) (models.User, error)
}

// AuthMiddleware requires a valid bearer access token and puts the resolved
// user into the request context
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := as.GetUserByAccessToken(r.Context(), token)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := userctx.NewContext(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, authScheme) || token == "" {
		return "", false
	}

	return token, true
}
