package auth

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkraev/chatauth/internal/testutil"
	"github.com/mkraev/chatauth/tests/integration"
)

const (
	RefreshURL = "/api/users/refresh-token"
	LogoutURL  = "/api/users/logout"
)

func refreshRequest(t *testing.T, srvURL string, refreshToken string) (*http.Response, string) {
	t.Helper()

	data := fmt.Sprintf(`{"refreshToken": %q}`, refreshToken)
	resp, err := http.Post(srvURL+RefreshURL, "application/json", strings.NewReader(data))
	require.NoError(t, err, "refresh request should always complete")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	return resp, string(body)
}

func Test_AuthRefresh(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("refresh token ok", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			result, err := s.AuthService.Signup(t.Context(), "nk@x.com", "StrongEnoughPassword")
			require.NoError(t, err)

			resp, body := refreshRequest(t, srvURL, result.Tokens.Refresh.Value)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.Contains(t, body, "accessToken")
			require.NotContains(t, body, result.Tokens.Refresh.Value, "refresh token should be changed after refresh")
		})
	})

	t.Run("refresh refresh twice fail", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			result, err := s.AuthService.Signup(t.Context(), "nk@x.com", "StrongEnoughPassword")
			require.NoError(t, err)

			resp, body := refreshRequest(t, srvURL, result.Tokens.Refresh.Value)
			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

			resp, body = refreshRequest(t, srvURL, result.Tokens.Refresh.Value)
			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Invalid refresh token"
				}`, body)
		})
	})

	t.Run("refresh after logout fail", func(t *testing.T) {
		integration.RunTx(pg.Pool, t, func(srvURL string, s integration.Services) {
			result, err := s.AuthService.Signup(t.Context(), "nk@x.com", "StrongEnoughPassword")
			require.NoError(t, err)

			req, err := http.NewRequest(http.MethodPost, srvURL+LogoutURL, nil)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+result.Tokens.Access.Value)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer resp.Body.Close() // nolint:errcheck

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))
			require.JSONEq(t, `
				{
					"message": "User logged out successfully"
				}`, string(body))

			refreshResp, refreshBody := refreshRequest(t, srvURL, result.Tokens.Refresh.Value)
			require.Equalf(t, http.StatusUnauthorized, refreshResp.StatusCode, "not expected code. Body: %s", refreshBody)
		})
	})
}
