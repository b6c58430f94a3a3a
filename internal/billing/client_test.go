package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/myaibookkeeper/bookkeeper/internal/models"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, NewClient(server.URL, "sk_billing_test")
}

func TestCancelNow(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		assert.Equal(t, "/subscriptions/sub_1", r.URL.Path)
		assert.Equal(t, "Bearer sk_billing_test", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(models.Subscription{
			ID: "sub_1", Status: models.SubscriptionCanceled, CurrentPeriodEnd: 1234567890,
		})
	})

	sub, err := client.CancelNow(context.Background(), "sub_1")
	assert.NoError(t, err)
	assert.Equal(t, models.SubscriptionCanceled, sub.Status)
}

func TestCancelAtPeriodEnd(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/subscriptions/sub_1", r.URL.Path)

		var body map[string]bool
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body["cancel_at_period_end"])

		json.NewEncoder(w).Encode(models.Subscription{
			ID: "sub_1", Status: models.SubscriptionActive,
			CancelAtPeriodEnd: true, CurrentPeriodEnd: 1234567890,
		})
	})

	sub, err := client.CancelAtPeriodEnd(context.Background(), "sub_1")
	assert.NoError(t, err)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
}

func TestGetSubscriptionNotFound(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetSubscription(context.Background(), "sub_missing")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestProviderErrorSurfaced(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"subscription already canceled"}}`))
	})

	_, err := client.CancelNow(context.Background(), "sub_1")
	var provErr *ProviderError
	assert.ErrorAs(t, err, &provErr)
	assert.Equal(t, "subscription already canceled", provErr.Message)
	assert.Contains(t, err.Error(), "billing provider error")
}

func TestCountActiveSubscriptionsByEmail(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/customers":
			assert.Equal(t, "jane@example.com", r.URL.Query().Get("email"))
			w.Write([]byte(`{"data":[{"id":"cus_1","email":"jane@example.com"},{"id":"cus_2","email":"jane@example.com"}]}`))
		case "/subscriptions":
			if r.URL.Query().Get("customer") == "cus_1" {
				w.Write([]byte(`{"data":[{"id":"sub_1","status":"active","current_period_end":1234567890}]}`))
			} else {
				w.Write([]byte(`{"data":[]}`))
			}
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	count, subs, err := client.CountActiveSubscriptionsByEmail(context.Background(), "jane@example.com")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, subs, 1)
	assert.Equal(t, "sub_1", subs[0].ID)
}
