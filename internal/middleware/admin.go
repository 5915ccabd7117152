package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"bankledger/internal/store"
)

type AdminStore interface {
	Lookup(ctx context.Context, userID string) (store.Admin, bool, error)
}

// RequireAdmin admits admins holding role. Super admins pass every check and
// an empty role admits any admin.
func RequireAdmin(adminStore AdminStore, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			admin, isAdmin, err := adminStore.Lookup(r.Context(), userID)
			if err != nil {
				slog.Error("admin lookup failed", "user_id", userID, "error", err)
				http.Error(w, "unable to verify admin", http.StatusInternalServerError)
				return
			}
			if !isAdmin {
				http.Error(w, "admin privileges required", http.StatusForbidden)
				return
			}
			if !admin.Can(role) {
				http.Error(w, "missing required role", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
