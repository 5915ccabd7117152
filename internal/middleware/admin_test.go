package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bankledger/internal/store"
)

type stubAdminStore struct {
	lookupFn func(ctx context.Context, userID string) (store.Admin, bool, error)
}

func (s stubAdminStore) Lookup(ctx context.Context, userID string) (store.Admin, bool, error) {
	return s.lookupFn(ctx, userID)
}

func serveAdmin(t *testing.T, admins AdminStore, role string, withUser bool) int {
	t.Helper()
	handler := RequireAdmin(admins, role)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if withUser {
		req = req.WithContext(contextWithUser(req.Context(), "user-1"))
	}
	handler.ServeHTTP(rr, req)
	return rr.Code
}

func TestRequireAdminMissingUser(t *testing.T) {
	code := serveAdmin(t, stubAdminStore{
		lookupFn: func(context.Context, string) (store.Admin, bool, error) {
			t.Fatalf("unexpected call")
			return store.Admin{}, false, nil
		},
	}, store.RoleManageLoans, false)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireAdminNotAdmin(t *testing.T) {
	code := serveAdmin(t, stubAdminStore{
		lookupFn: func(context.Context, string) (store.Admin, bool, error) {
			return store.Admin{}, false, nil
		},
	}, store.RoleManageLoans, true)
	if code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAdminLookupError(t *testing.T) {
	code := serveAdmin(t, stubAdminStore{
		lookupFn: func(context.Context, string) (store.Admin, bool, error) {
			return store.Admin{}, false, errors.New("db down")
		},
	}, store.RoleManageLoans, true)
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
}

func TestRequireAdminSuperUser(t *testing.T) {
	code := serveAdmin(t, stubAdminStore{
		lookupFn: func(context.Context, string) (store.Admin, bool, error) {
			return store.Admin{UserID: "user-1", IsSuper: true}, true, nil
		},
	}, store.RoleManageLoans, true)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAdminMissingRole(t *testing.T) {
	code := serveAdmin(t, stubAdminStore{
		lookupFn: func(context.Context, string) (store.Admin, bool, error) {
			return store.Admin{UserID: "user-1", Roles: []string{store.RoleViewAudit}}, true, nil
		},
	}, store.RoleManageLoans, true)
	if code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAdminWithRole(t *testing.T) {
	code := serveAdmin(t, stubAdminStore{
		lookupFn: func(context.Context, string) (store.Admin, bool, error) {
			return store.Admin{UserID: "user-1", Roles: []string{store.RoleManageLoans}}, true, nil
		},
	}, store.RoleManageLoans, true)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func contextWithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
