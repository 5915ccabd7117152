package middleware

import (
	"context"
	"net/http"
	"strings"

	"bankledger/internal/auth"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	tokenKey  contextKey = "token"
	claimsKey contextKey = "claims"
)

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}

// TokenFromContext returns the raw bearer token of the request, for
// forwarding to the user service.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// WithIdentity stores an authenticated identity on ctx.
func WithIdentity(ctx context.Context, claims *auth.Claims, token string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, claims.UserID)
	ctx = context.WithValue(ctx, tokenKey, token)
	return context.WithValue(ctx, claimsKey, claims)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Authenticate parses token and rejects revoked tokens.
func Authenticate(secret string, revocations *auth.RevocationList, token string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(secret, token)
	if err != nil {
		return nil, err
	}
	if revocations.Revoked(claims.ID) {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

func Auth(secret string, revocations *auth.RevocationList) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			token, ok := BearerToken(r)
			if !ok {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}
			claims, err := Authenticate(secret, revocations, token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims, token)))
		})
	}
}
