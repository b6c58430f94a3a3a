package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/myaibookkeeper/bookkeeper/internal/billing"
	"github.com/myaibookkeeper/bookkeeper/internal/database"
	"github.com/myaibookkeeper/bookkeeper/internal/models"
)

// CancelSubscription cancels one of the caller's subscriptions, either
// immediately or at the end of the current paid period. The provider's
// confirmed state is mirrored locally and returned to the client.
func (api *Api) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	var req models.CancelSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Subscription ID is required")
		return
	}
	if req.SubscriptionID == "" {
		respondError(w, http.StatusBadRequest, "Subscription ID is required")
		return
	}
	if req.CancelAt == "" {
		req.CancelAt = models.CancelImmediately
	}
	if !req.CancelAt.Valid() {
		respondError(w, http.StatusBadRequest, "Invalid cancellation type")
		return
	}

	if _, err := api.billing.GetSubscription(r.Context(), req.SubscriptionID); err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			respondError(w, http.StatusNotFound, "Subscription not found")
			return
		}
		log.Printf("[BILLING] Error fetching subscription %s: %v", req.SubscriptionID, err)
		respondError(w, http.StatusInternalServerError, "Failed to cancel subscription")
		return
	}

	var (
		sub     *models.Subscription
		message string
		err     error
	)
	switch req.CancelAt {
	case models.CancelAtPeriodEnd:
		sub, err = api.billing.CancelAtPeriodEnd(r.Context(), req.SubscriptionID)
		message = "Your subscription will be canceled at the end of your current billing period. You can reactivate it anytime before then."
	default:
		sub, err = api.billing.CancelNow(r.Context(), req.SubscriptionID)
		message = "Your subscription has been canceled immediately. You still have access until the end of your current billing period."
	}
	if err != nil {
		var provErr *billing.ProviderError
		if errors.As(err, &provErr) {
			respondError(w, http.StatusBadRequest, provErr.Error())
			return
		}
		log.Printf("[BILLING] Error canceling subscription %s: %v", req.SubscriptionID, err)
		respondError(w, http.StatusInternalServerError, "Failed to cancel subscription")
		return
	}

	if err := database.UpsertSubscription(userID, sub); err != nil {
		log.Printf("[BILLING] Failed to mirror subscription %s: %v", sub.ID, err)
	}

	log.Printf("[BILLING] Subscription %s canceled (%s) for %s", sub.ID, req.CancelAt, userID)

	respondJSON(w, http.StatusOK, models.CancelSubscriptionResponse{
		Success:      true,
		Subscription: sub,
		Message:      message,
	})
}

// GetSubscriptionStatus returns the provider's current view of a single
// subscription.
func (api *Api) GetSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	subscriptionID := r.URL.Query().Get("subscription_id")
	if subscriptionID == "" {
		respondError(w, http.StatusBadRequest, "Subscription ID is required")
		return
	}

	sub, err := api.billing.GetSubscription(r.Context(), subscriptionID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			respondError(w, http.StatusNotFound, "Subscription not found")
			return
		}
		log.Printf("[BILLING] Error fetching subscription %s: %v", subscriptionID, err)
		respondError(w, http.StatusInternalServerError, "Failed to get subscription")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"subscription": sub,
	})
}
