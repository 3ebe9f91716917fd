// Package integration wires the production service stack over a real
// postgres transaction and serves it through the production router, so the
// tests below talk plain HTTP
package integration

import (
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkraev/chatauth/internal/handlers"
	"github.com/mkraev/chatauth/internal/logger"
	"github.com/mkraev/chatauth/internal/repository/postgres"
	"github.com/mkraev/chatauth/internal/service/auth"
	"github.com/mkraev/chatauth/internal/testutil"
)

type Services struct {
	AuthService *auth.AuthService
}

// RunTx starts the full server on top of a db transaction and rolls the
// transaction back when testFunc returns
func RunTx(dbpool *pgxpool.Pool, t *testing.T, testFunc func(srvURL string, s Services)) {
	t.Helper()

	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		userRepo := &postgres.UserRepo{DB: tx}

		tokenManager, err := auth.NewTokenManager(auth.TokenConfig{
			AccessSecret:  "test-access-secret",
			RefreshSecret: "test-refresh-secret",
		})
		require.NoError(t, err, "token manager should be created without errors")

		s, err := auth.NewService(
			auth.Config{Hasher: auth.BcryptHasher{Cost: bcrypt.MinCost}},
			tokenManager,
			userRepo,
		)
		require.NoError(t, err, "auth service should be created without errors")

		srv := httptest.NewServer(handlers.NewRouter(s, logger.NewNoOpLogger()))
		defer srv.Close()

		testFunc(srv.URL, Services{AuthService: s})
	})
}
