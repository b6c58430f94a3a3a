// Package identity is the client for the external identity provider. It
// consumes the provider's user contract (profile reads, account removal,
// session token verification) and nothing else; the provider's internals
// are out of scope.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// ProviderUser is the profile object the identity provider exposes.
// CreatedAt and LastSignInAt are Unix milliseconds.
type ProviderUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	CreatedAt    int64  `json:"createdAt"`
	LastSignInAt int64  `json:"lastSignInAt,omitempty"`
}

// Client talks to the identity provider's management API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new identity provider client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetUser fetches a user's profile from the provider
func (c *Client) GetUser(ctx context.Context, userID string) (*ProviderUser, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("identity provider base url is empty")
	}

	url := fmt.Sprintf("%s/users/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach identity provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var user ProviderUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

// DeleteUser permanently removes a user from the provider. This is the
// irreversible step of account deletion; callers must have verified the
// user's confirmation first.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	if c.baseURL == "" {
		return fmt.Errorf("identity provider base url is empty")
	}

	url := fmt.Sprintf("%s/users/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach identity provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}
	return nil
}
