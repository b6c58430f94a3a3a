package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/myaibookkeeper/bookkeeper/internal/models"
)

// APIError carries the error string a non-2xx response body surfaced. Its
// message is shown to the user verbatim.
type APIError struct {
	Message string
	Status  int
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the account API on behalf of a signed-in user
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates an account API client authenticated by the given
// session token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp models.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Error != "" {
			return &APIError{Message: errResp.Error, Status: resp.StatusCode}
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// GetAccountInfo fetches the read-only account summary
func (c *Client) GetAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	var info models.AccountInfo
	if err := c.do(ctx, "GET", "/api/account/delete", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CancelSubscription asks the billing provider, via the API, to cancel a
// subscription in the given mode.
func (c *Client) CancelSubscription(ctx context.Context, req models.CancelSubscriptionRequest) (*models.CancelSubscriptionResponse, error) {
	var resp models.CancelSubscriptionResponse
	if err := c.do(ctx, "POST", "/api/subscription/cancel", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteAccount issues the destructive deletion call
func (c *Client) DeleteAccount(ctx context.Context, req models.DeleteAccountRequest) (*models.DeleteAccountResponse, error) {
	var resp models.DeleteAccountResponse
	if err := c.do(ctx, "POST", "/api/account/delete", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
