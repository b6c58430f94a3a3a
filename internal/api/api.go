package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/myaibookkeeper/bookkeeper/internal/config"
	"github.com/myaibookkeeper/bookkeeper/internal/identity"
	"github.com/myaibookkeeper/bookkeeper/internal/models"
	"github.com/myaibookkeeper/bookkeeper/internal/storage"
)

// IdentityService is the slice of the identity provider contract the API
// consumes.
type IdentityService interface {
	GetUser(ctx context.Context, userID string) (*identity.ProviderUser, error)
	DeleteUser(ctx context.Context, userID string) error
}

// BillingService is the slice of the billing provider contract the API
// consumes.
type BillingService interface {
	CountActiveSubscriptionsByEmail(ctx context.Context, email string) (int, []models.Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	CancelNow(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*models.Subscription, error)
}

// DocumentStore holds a user's uploaded documents: new uploads land here,
// and everything under the user's prefix is purged during account deletion.
type DocumentStore interface {
	UploadDocument(ctx context.Context, userID, filename string, reader io.Reader) (*storage.UploadResult, error)
	PurgeUserDocuments(ctx context.Context, userID string) (int, error)
}

// Mailer sends the post-deletion confirmation email
type Mailer interface {
	SendDeletionConfirmation(toEmail, firstName, deletedAt string, exported bool) error
}

type Api struct {
	Config   *config.Config
	Router   *chi.Mux
	identity IdentityService
	billing  BillingService
	storage  DocumentStore
	mailer   Mailer
	verifier *identity.TokenVerifier
}

// NewApi wires the account API against its external collaborators
func NewApi(cfg *config.Config, identitySvc IdentityService, billingSvc BillingService, docs DocumentStore, mailer Mailer) (*Api, error) {
	if identitySvc == nil {
		return nil, fmt.Errorf("identity service is required")
	}
	if billingSvc == nil {
		return nil, fmt.Errorf("billing service is required")
	}

	api := &Api{
		Config:   cfg,
		Router:   chi.NewRouter(),
		identity: identitySvc,
		billing:  billingSvc,
		storage:  docs,
		mailer:   mailer,
		verifier: identity.NewTokenVerifier(cfg.Identity.TokenSecret),
	}

	api.setupRoutes()
	return api, nil
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/heartbeat", api.Heartbeat)

	// Public routes
	r.Get("/api/popular-uses", api.ListPopularUses)
	r.Get("/api/popular-uses/{id}", api.GetPopularUse)

	// Billing provider webhook, authenticated by signature rather than session
	r.Post("/api/webhook/billing", api.BillingWebhook)

	// Internal operations guarded by the internal API key
	r.Group(func(r chi.Router) {
		r.Use(api.InternalKeyMiddleware)
		r.Post("/api/reset-usage", api.ResetUsage)
	})

	// Account routes require an identity-provider session
	r.Group(func(r chi.Router) {
		r.Use(api.SessionAuthMiddleware)

		r.Get("/api/user", api.GetCurrentUser)
		r.Post("/api/user", api.UpdateCurrentUser)

		r.Get("/api/documents", api.ListDocuments)
		r.Post("/api/documents", api.UploadDocument)

		// GET and POST share this path; the GET is the informational read
		// the account panel loads on mount.
		r.Get("/api/account/delete", api.GetAccountInfo)
		r.Post("/api/account/delete", api.DeleteAccount)

		r.Post("/api/subscription/cancel", api.CancelSubscription)
		r.Get("/api/subscription/cancel", api.GetSubscriptionStatus)
	})
}

// Serve starts the API server and blocks
func (api *Api) Serve() {
	addr := fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort)
	log.Printf("Starting API server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, api.Router))
}

func (api *Api) Heartbeat(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// respondError writes the uniform error body surfaced verbatim to users
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, models.ErrorResponse{Error: message})
}
