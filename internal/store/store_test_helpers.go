package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

type stubDB struct {
	getFn    func(ctx context.Context, dest any, query string, args ...any) error
	selectFn func(ctx context.Context, dest any, query string, args ...any) error
	execFn   func(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s stubDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	if s.getFn == nil {
		return nil
	}
	return s.getFn(ctx, dest, query, args...)
}

func (s stubDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	if s.selectFn == nil {
		return nil
	}
	return s.selectFn(ctx, dest, query, args...)
}

func (s stubDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.execFn == nil {
		return stubResult{}, nil
	}
	return s.execFn(ctx, query, args...)
}

type stubResult struct {
	rows int64
	err  error
}

func (r stubResult) LastInsertId() (int64, error) {
	return 0, r.err
}

func (r stubResult) RowsAffected() (int64, error) {
	return r.rows, r.err
}

// expectExec returns a stub whose single exec must contain fragment and carry
// want as its arguments.
func expectExec(t *testing.T, fragment string, want ...any) stubDB {
	t.Helper()
	return stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			t.Helper()
			if !strings.Contains(query, fragment) {
				t.Fatalf("query %q does not contain %q", query, fragment)
			}
			assertArgs(t, args, want...)
			return stubResult{rows: 1}, nil
		},
	}
}

func assertArgs(t *testing.T, got []any, want ...any) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d args, got %d: %#v", len(want), len(got), got)
	}
	for i := range want {
		if wd, ok := want[i].(decimal.Decimal); ok {
			gd, ok := got[i].(decimal.Decimal)
			if !ok || !gd.Equal(wd) {
				t.Fatalf("arg %d: expected %s, got %#v", i, wd, got[i])
			}
			continue
		}
		if got[i] != want[i] {
			t.Fatalf("arg %d: expected %#v, got %#v", i, want[i], got[i])
		}
	}
}
