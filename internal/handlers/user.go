package handlers

import (
	"net/http"

	"github.com/mkraev/chatauth/internal/handlers/render"
	"github.com/mkraev/chatauth/internal/handlers/userctx"
	"github.com/mkraev/chatauth/internal/models"
)

func handleUserProfile() http.Handler {
	type response struct {
		User models.PublicUser `json:"user"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		render.JSON(w, response{User: user.Public()})
	})
}
