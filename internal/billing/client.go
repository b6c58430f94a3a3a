// Package billing is the client for the external billing provider, which
// owns subscription lifecycle and payment state. This client only consumes
// the provider's contract: customer lookup, subscription reads, and the two
// cancellation modes.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/myaibookkeeper/bookkeeper/internal/models"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

// ProviderError is a structured error returned by the billing provider.
// Its message is safe to surface to end users.
type ProviderError struct {
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("billing provider error: %s", e.Message)
}

// Customer is the provider's customer object, matched to users by email
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

type errorResponse struct {
	Error ProviderError `json:"error"`
}

// Client talks to the billing provider's API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new billing provider client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("billing provider base url is empty")
	}

	var reqBody *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(encoded)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach billing provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrSubscriptionNotFound
	}
	if resp.StatusCode >= 400 {
		var errResp errorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Error.Message != "" {
			errResp.Error.Status = resp.StatusCode
			return &errResp.Error
		}
		return fmt.Errorf("billing provider returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// ListCustomersByEmail looks up provider customers matching an email address
func (c *Client) ListCustomersByEmail(ctx context.Context, email string) ([]Customer, error) {
	path := "/customers?limit=10&email=" + url.QueryEscape(email)
	var resp listResponse[Customer]
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListActiveSubscriptions returns a customer's active subscriptions
func (c *Client) ListActiveSubscriptions(ctx context.Context, customerID string) ([]models.Subscription, error) {
	path := "/subscriptions?status=active&customer=" + url.QueryEscape(customerID)
	var resp listResponse[models.Subscription]
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetSubscription retrieves one subscription by id
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := c.do(ctx, "GET", "/subscriptions/"+url.PathEscape(subscriptionID), nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CancelNow flags a subscription for immediate termination. The provider
// owns the actual timing; access runs through the already-paid period.
func (c *Client) CancelNow(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := c.do(ctx, "DELETE", "/subscriptions/"+url.PathEscape(subscriptionID), nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CancelAtPeriodEnd keeps the subscription running until the current paid
// period expires, then terminates it.
func (c *Client) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	body := map[string]bool{"cancel_at_period_end": true}
	var sub models.Subscription
	if err := c.do(ctx, "POST", "/subscriptions/"+url.PathEscape(subscriptionID), body, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CountActiveSubscriptionsByEmail sums active subscriptions across every
// provider customer sharing the email. Used by the account summary.
func (c *Client) CountActiveSubscriptionsByEmail(ctx context.Context, email string) (int, []models.Subscription, error) {
	customers, err := c.ListCustomersByEmail(ctx, email)
	if err != nil {
		return 0, nil, err
	}

	var all []models.Subscription
	for _, customer := range customers {
		subs, err := c.ListActiveSubscriptions(ctx, customer.ID)
		if err != nil {
			return 0, nil, err
		}
		all = append(all, subs...)
	}
	return len(all), all, nil
}
