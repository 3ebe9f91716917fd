package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkraev/chatauth/internal/testutil"
	"github.com/mkraev/chatauth/tests/integration"
)

const (
	SignupURL = "/api/users/signup"
	LoginURL  = "/api/users/login"
)

func Test_Signup(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("signup ok", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, _ integration.Services) {
			data := `{"email": "nk@x.com", "password": "StrongEnoughPassword"}`
			resp, err := http.Post(srvURL+SignupURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", string(body))

			var parsed struct {
				User struct {
					ID    string `json:"id"`
					Email string `json:"email"`
				} `json:"user"`
				Tokens struct {
					AccessToken  string `json:"accessToken"`
					RefreshToken string `json:"refreshToken"`
				} `json:"tokens"`
			}
			require.NoError(t, json.Unmarshal(body, &parsed))
			require.Equal(t, "nk@x.com", parsed.User.Email)
			require.NotEmpty(t, parsed.User.ID)
			require.NotEmpty(t, parsed.Tokens.AccessToken, "access token should not be empty")
			require.NotEmpty(t, parsed.Tokens.RefreshToken, "refresh token should not be empty")
		})
	})

	t.Run("signup existed email fails", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			_, err := s.AuthService.Signup(t.Context(), "nk@x.com", "StrongEnoughPassword")
			require.NoError(t, err)

			data := `{"email": "nk@x.com", "password": "OtherPassword123"}`
			resp, err := http.Post(srvURL+SignupURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusConflict, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Email already exists"
				}`, string(body))
		})
	})
}

func Test_Login(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("login ok", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			_, err := s.AuthService.Signup(t.Context(), "nk@x.com", "StrongEnoughPassword")
			require.NoError(t, err)

			data := `{"email": "nk@x.com", "password": "StrongEnoughPassword"}`
			resp, err := http.Post(srvURL+LoginURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.Contains(t, string(body), "accessToken")
			require.Contains(t, string(body), "refreshToken")
		})
	})

	t.Run("login failed", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, _ integration.Services) {
			data := `{"email": "nk@x.com", "password": "WrongPassword"}`

			resp, err := http.Post(srvURL+LoginURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Invalid credentials"
				}`, string(body))
		})
	})
}
