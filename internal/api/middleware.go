package api

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	emailKey  contextKey = "email"
)

// SessionAuthMiddleware verifies the identity provider's session token on
// the Authorization header and stashes the caller's identity in the request
// context.
func (api *Api) SessionAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := api.verifier.VerifyToken(tokenString)
		if err != nil {
			log.Printf("[AUTH] Token rejected: %v", err)
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
		ctx = context.WithValue(ctx, emailKey, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// InternalKeyMiddleware guards operational endpoints that are called by
// schedulers and deploy tooling, not by end users.
func (api *Api) InternalKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Internal-API-Key")
		if api.Config.InternalAPIKey == "" ||
			subtle.ConstantTimeCompare([]byte(key), []byte(api.Config.InternalAPIKey)) != 1 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext returns the authenticated caller's user ID and email
func UserFromContext(ctx context.Context) (userID, email string) {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		userID = v
	}
	if v, ok := ctx.Value(emailKey).(string); ok {
		email = v
	}
	return userID, email
}
