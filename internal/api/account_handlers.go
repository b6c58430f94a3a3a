package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/myaibookkeeper/bookkeeper/internal/database"
	"github.com/myaibookkeeper/bookkeeper/internal/identity"
	"github.com/myaibookkeeper/bookkeeper/internal/models"
)

// deletionDataTypes lists the data categories removed with the account.
// Shown to the user verbatim before they confirm.
var deletionDataTypes = []string{
	"Account profile and settings",
	"Chat conversation history",
	"Uploaded files and documents",
	"Subscription and payment history",
	"Usage analytics and preferences",
}

// deletionProcess describes, step by step, what confirming deletion does
var deletionProcess = []string{
	"All billing subscriptions will be canceled immediately",
	"Your data will be permanently deleted from our servers",
	"You will be logged out of all devices",
	"This action cannot be undone",
}

// GetAccountInfo serves the read-only account summary the panel loads on
// mount: identity profile, active subscription count, and the deletion
// disclosure.
func (api *Api) GetAccountInfo(w http.ResponseWriter, r *http.Request) {
	userID, email := UserFromContext(r.Context())

	user, err := api.identity.GetUser(r.Context(), userID)
	if err != nil {
		log.Printf("[ACCOUNT] Failed to fetch profile for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to get account information")
		return
	}

	// Subscription count is best-effort: a billing outage must not make
	// the whole account panel unusable.
	count, _, err := api.billing.CountActiveSubscriptionsByEmail(r.Context(), user.Email)
	if err != nil {
		log.Printf("[BILLING] Error checking subscriptions for %s: %v", email, err)
		count = 0
	}

	respondJSON(w, http.StatusOK, models.AccountInfo{
		User: models.Profile{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			CreatedAt: user.CreatedAt,
		},
		ActiveSubscriptions: count,
		DeletionInfo: models.DeletionInfo{
			DataTypes: deletionDataTypes,
			Process:   deletionProcess,
		},
	})
}

// DeleteAccount permanently removes the caller's account: it cancels every
// active subscription, purges stored data and documents, removes the user
// at the identity provider, and records an audit row. When the request asks
// for an export, a snapshot is assembled before anything is purged and
// returned in the response.
func (api *Api) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	var req models.DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Account deletion must be confirmed")
		return
	}
	if !req.ConfirmDeletion {
		respondError(w, http.StatusBadRequest, "Account deletion must be confirmed")
		return
	}

	user, err := api.identity.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "User account not found")
			return
		}
		log.Printf("[DELETE] Failed to fetch profile for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to delete account. Please contact support for assistance.")
		return
	}

	// Snapshot before purging; after the purge there is nothing left to
	// export.
	var export *models.DataExport
	if req.ExportData {
		export, err = database.BuildUserExport(userID)
		if err != nil {
			log.Printf("[DELETE] Failed to build export for %s: %v", userID, err)
			respondError(w, http.StatusInternalServerError, "Failed to delete account. Please contact support for assistance.")
			return
		}
		export.Email = user.Email
		export.FirstName = user.FirstName
		export.LastName = user.LastName
		if export.CreatedAt == 0 {
			export.CreatedAt = user.CreatedAt
		}
	}

	// Cancel subscriptions before deleting anything, so a billing failure
	// never strands a paying subscription on a deleted account. Individual
	// cancel failures are logged and skipped; deletion proceeds.
	_, subs, err := api.billing.CountActiveSubscriptionsByEmail(r.Context(), user.Email)
	if err != nil {
		log.Printf("[DELETE] Error listing subscriptions for %s: %v", user.Email, err)
	}
	for _, sub := range subs {
		if _, err := api.billing.CancelNow(r.Context(), sub.ID); err != nil {
			log.Printf("[DELETE] Error canceling subscription %s: %v", sub.ID, err)
			continue
		}
		log.Printf("[DELETE] Canceled subscription %s for %s", sub.ID, userID)
	}

	if err := database.PurgeUserData(userID); err != nil {
		log.Printf("[DELETE] Failed to purge data for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to delete account. Please contact support for assistance.")
		return
	}

	if api.storage != nil {
		if n, err := api.storage.PurgeUserDocuments(r.Context(), userID); err != nil {
			log.Printf("[DELETE] Error purging documents for %s: %v", userID, err)
		} else if n > 0 {
			log.Printf("[DELETE] Purged %d documents for %s", n, userID)
		}
	}

	if err := api.identity.DeleteUser(r.Context(), userID); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "User account not found")
			return
		}
		log.Printf("[DELETE] Failed to delete identity for %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to delete account. Please contact support for assistance.")
		return
	}

	deletedAt := time.Now().UTC()
	audit := &models.DeletionAudit{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     user.Email,
		Exported:  export != nil,
		DeletedAt: deletedAt,
	}
	if err := database.RecordDeletion(audit); err != nil {
		log.Printf("[DELETE] Failed to record deletion audit for %s: %v", userID, err)
	}

	if api.mailer != nil {
		if err := api.mailer.SendDeletionConfirmation(user.Email, user.FirstName, deletedAt.Format(time.RFC3339), export != nil); err != nil {
			log.Printf("[EMAIL] Failed to send deletion confirmation to %s: %v", user.Email, err)
		}
	}

	log.Printf("[DELETE] Account %s deleted (exported=%v)", userID, export != nil)

	respondJSON(w, http.StatusOK, models.DeleteAccountResponse{
		Success:    true,
		Message:    "Your account has been permanently deleted. All your data has been removed from our systems.",
		ExportData: export,
		DeletedAt:  deletedAt.Format(time.RFC3339),
	})
}

// GetCurrentUser returns the caller's usage record, seeding a local mirror
// from the identity provider on first sight.
func (api *Api) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserFromContext(r.Context())

	user, err := database.GetUserByID(userID)
	if err != nil {
		log.Printf("[USER] Failed to load user %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}

	if user == nil {
		profile, err := api.identity.GetUser(r.Context(), userID)
		if err != nil {
			log.Printf("[USER] Failed to fetch profile for %s: %v", userID, err)
			respondError(w, http.StatusInternalServerError, "Failed to get user")
			return
		}

		now := time.Now().UTC()
		user = &models.User{
			ID:         profile.ID,
			Email:      profile.Email,
			FirstName:  profile.FirstName,
			LastName:   profile.LastName,
			Tier:       models.TierFree,
			QueryCount: 0,
			QueryLimit: 5,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := database.UpsertUser(user); err != nil {
			log.Printf("[USER] Failed to seed user %s: %v", userID, err)
			respondError(w, http.StatusInternalServerError, "Failed to get user")
			return
		}
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdateCurrentUser updates the mutable profile fields on the local mirror
func (api *Api) UpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, email := UserFromContext(r.Context())

	var req struct {
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := database.GetUserByID(userID)
	if err != nil {
		log.Printf("[USER] Failed to load user %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	now := time.Now().UTC()
	if user == nil {
		user = &models.User{
			ID:         userID,
			Email:      email,
			Tier:       models.TierFree,
			QueryLimit: 5,
			CreatedAt:  now,
		}
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.UpdatedAt = now

	if err := database.UpsertUser(user); err != nil {
		log.Printf("[USER] Failed to update user %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
