// Package identity talks to the external google token verification
// endpoint. It proves who the id token belongs to and nothing else, session
// handling stays in the auth service.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// Verified identity extracted from a google id token
type GoogleUser struct {
	Email     string
	Name      string
	SubjectID string
}

type GoogleClient struct {
	// Expected audience of presented tokens
	// When set, tokens issued for other OAuth clients are rejected
	ClientID string

	// Endpoint override for tests
	TokenInfoURL string

	client *http.Client
}

func NewGoogleClient(clientID string) *GoogleClient {
	return &GoogleClient{
		ClientID:     clientID,
		TokenInfoURL: defaultTokenInfoURL,
		client:       &http.Client{},
	}
}

type tokenInfoResponse struct {
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Subject       string `json:"sub"`
	Audience      string `json:"aud"`
}

// Verify asks google to validate the id token and returns the identity it
// carries
func (c *GoogleClient) Verify(ctx context.Context, idToken string) (GoogleUser, error) {
	var user GoogleUser

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	reqURL := c.TokenInfoURL + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return user, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return user, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return user, fmt.Errorf("token rejected with status %d", resp.StatusCode)
	}

	var info tokenInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return user, fmt.Errorf("failed to decode token info: %w", err)
	}

	// Google returns email_verified as the string "true"
	if info.EmailVerified != "true" {
		return user, fmt.Errorf("email %q is not verified", info.Email)
	}

	if c.ClientID != "" && info.Audience != c.ClientID {
		return user, fmt.Errorf("token issued for foreign audience")
	}

	return GoogleUser{
		Email:     info.Email,
		Name:      info.Name,
		SubjectID: info.Subject,
	}, nil
}
