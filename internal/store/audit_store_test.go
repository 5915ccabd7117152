package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
)

func TestAuditStoreLogMarshalsData(t *testing.T) {
	db := stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO audit_logs") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 6 || args[1] != "user-1" || args[2] != "account.debit" || args[4] != "acc-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			var data map[string]string
			if err := json.Unmarshal([]byte(args[5].(string)), &data); err != nil {
				t.Fatalf("data is not json: %v", err)
			}
			if data["balance"] != "90.00" {
				t.Fatalf("unexpected data: %#v", data)
			}
			return stubResult{rows: 1}, nil
		},
	}
	err := NewAuditStore(db).Log(context.Background(), db, "user-1", "account.debit", "account", "acc-1",
		map[string]string{"balance": "90.00"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuditStoreListFilters(t *testing.T) {
	tests := []struct {
		name       string
		entityType string
		entityID   string
		fragment   string
		args       []any
	}{
		{"all", "", "", "ORDER BY created_at DESC LIMIT $1 OFFSET $2", []any{10, 5}},
		{"type", "loan", "", "WHERE entity_type = $1", []any{"loan", 10, 5}},
		{"entity", "loan", "loan-1", "AND entity_id = $2", []any{"loan", "loan-1", 10, 5}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := NewAuditStore(stubDB{
				selectFn: func(_ context.Context, dest any, query string, args ...any) error {
					if !strings.Contains(query, tc.fragment) {
						t.Fatalf("query %q missing %q", query, tc.fragment)
					}
					assertArgs(t, args, tc.args...)
					*dest.(*[]AuditEntry) = []AuditEntry{{ID: "log-1"}}
					return nil
				},
			})
			rows, err := store.List(context.Background(), tc.entityType, tc.entityID, Page{Limit: 10, Offset: 5})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(rows) != 1 || rows[0].ID != "log-1" {
				t.Fatalf("unexpected rows: %#v", rows)
			}
		})
	}
}
