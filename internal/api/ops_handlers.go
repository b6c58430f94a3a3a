package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/myaibookkeeper/bookkeeper/internal/database"
	"github.com/myaibookkeeper/bookkeeper/internal/models"
	"github.com/myaibookkeeper/bookkeeper/internal/usecases"
)

// ListPopularUses serves the public use-case catalog, optionally filtered
// by category and difficulty query params.
func (api *Api) ListPopularUses(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	difficulty := r.URL.Query().Get("difficulty")

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"useCases": usecases.Filter(category, difficulty),
	})
}

// GetPopularUse serves a single catalog entry by its ID
func (api *Api) GetPopularUse(w http.ResponseWriter, r *http.Request) {
	uc, ok := usecases.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "Use case not found")
		return
	}

	respondJSON(w, http.StatusOK, uc)
}

// billingEvent is the webhook envelope the billing provider posts when a
// subscription changes out of band (renewal, dunning, portal cancellation).
type billingEvent struct {
	Type         string               `json:"type"`
	UserID       string               `json:"user_id"`
	Subscription *models.Subscription `json:"subscription"`
}

// BillingWebhook ingests provider events and keeps the local subscription
// mirror and tier in sync. Authenticated by an HMAC-SHA256 signature over
// the raw body.
func (api *Api) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if !api.verifyWebhookSignature(body, r.Header.Get("Webhook-Signature")) {
		log.Printf("[WEBHOOK] Rejected event with bad signature")
		respondError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event billingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid event payload")
		return
	}

	switch event.Type {
	case "subscription.updated", "subscription.created", "subscription.deleted":
		if event.Subscription == nil || event.UserID == "" {
			respondError(w, http.StatusBadRequest, "Invalid event payload")
			return
		}
		if err := database.UpsertSubscription(event.UserID, event.Subscription); err != nil {
			log.Printf("[WEBHOOK] Failed to mirror subscription %s: %v", event.Subscription.ID, err)
			respondError(w, http.StatusInternalServerError, "Failed to process event")
			return
		}
		api.syncTier(event.UserID, event.Subscription)
		log.Printf("[WEBHOOK] Processed %s for %s", event.Type, event.UserID)
	default:
		log.Printf("[WEBHOOK] Ignoring event type %q", event.Type)
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (api *Api) verifyWebhookSignature(body []byte, signature string) bool {
	secret := api.Config.Billing.WebhookSecret
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// syncTier moves the mirrored user between free and paid as subscriptions
// come and go. Missing mirrors are ignored; the user is seeded on next
// login.
func (api *Api) syncTier(userID string, sub *models.Subscription) {
	user, err := database.GetUserByID(userID)
	if err != nil || user == nil {
		return
	}

	tier := models.TierFree
	if sub.IsActive() {
		tier = models.TierPaid
	}
	if user.Tier == tier {
		return
	}

	user.Tier = tier
	if err := database.UpsertUser(user); err != nil {
		log.Printf("[WEBHOOK] Failed to update tier for %s: %v", userID, err)
	}
}

// ResetUsage zeroes the monthly query counters for free-tier users. Called
// by the maintenance scheduler and, behind the internal key, by ops tooling.
func (api *Api) ResetUsage(w http.ResponseWriter, r *http.Request) {
	n, err := database.ResetUsageCounters()
	if err != nil {
		log.Printf("[USAGE] Failed to reset counters: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to reset usage")
		return
	}

	log.Printf("[USAGE] Reset query counters for %d users", n)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"usersReset": n,
	})
}
