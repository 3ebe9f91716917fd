package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, clientID string, handler http.HandlerFunc) *GoogleClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewGoogleClient(clientID)
	client.TokenInfoURL = server.URL

	return client
}

func Test_GoogleClient_Verify(t *testing.T) {
	t.Parallel()

	okInfo := `{
		"email": "a@x.com",
		"email_verified": "true",
		"name": "Alice",
		"sub": "google-subject-1",
		"aud": "my-oauth-client"
	}`

	t.Run("valid token ok", func(t *testing.T) {
		var gotToken string
		client := newTestClient(t, "my-oauth-client", func(w http.ResponseWriter, r *http.Request) {
			gotToken = r.URL.Query().Get("id_token")
			w.Write([]byte(okInfo)) // nolint:errcheck
		})

		user, err := client.Verify(t.Context(), "the-id-token")

		require.NoError(t, err)
		assert.Equal(t, "the-id-token", gotToken, "token should be passed as the id_token query param")
		assert.Equal(t, GoogleUser{Email: "a@x.com", Name: "Alice", SubjectID: "google-subject-1"}, user)
	})

	t.Run("audience is not checked when client id not set", func(t *testing.T) {
		client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(okInfo)) // nolint:errcheck
		})

		_, err := client.Verify(t.Context(), "the-id-token")

		require.NoError(t, err)
	})

	t.Run("foreign audience rejected", func(t *testing.T) {
		client := newTestClient(t, "other-oauth-client", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(okInfo)) // nolint:errcheck
		})

		_, err := client.Verify(t.Context(), "the-id-token")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "foreign audience")
	})

	t.Run("unverified email rejected", func(t *testing.T) {
		client := newTestClient(t, "my-oauth-client", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"email": "a@x.com", "email_verified": "false", "sub": "s"}`)) // nolint:errcheck
		})

		_, err := client.Verify(t.Context(), "the-id-token")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not verified")
	})

	t.Run("non-200 status rejected", func(t *testing.T) {
		client := newTestClient(t, "my-oauth-client", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})

		_, err := client.Verify(t.Context(), "garbage")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 400")
	})

	t.Run("broken body rejected", func(t *testing.T) {
		client := newTestClient(t, "my-oauth-client", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not a json")) // nolint:errcheck
		})

		_, err := client.Verify(t.Context(), "the-id-token")

		require.Error(t, err)
	})
}
