package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const maxAttempts = 5

var ErrRetryLimit = errors.New("transaction retry limit exceeded")

type TxRunner interface {
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
}

type SQLXTxRunner struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewTxRunner(db *sqlx.DB, logger *slog.Logger) SQLXTxRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return SQLXTxRunner{db: db, logger: logger}
}

func (r SQLXTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return withTx(ctx, r.db, r.logger, fn)
}

func Connect(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// WithTx runs fn in a serializable transaction. Serialization failures and
// deadlocks are retried with backoff; any other error rolls back and is
// returned unchanged.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	return withTx(ctx, db, slog.Default(), fn)
}

func withTx(ctx context.Context, db *sqlx.DB, logger *slog.Logger, fn func(*sqlx.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if isRetryablePGError(err) && attempt < maxAttempts {
				lastErr = err
				logger.Warn("retrying transaction", "attempt", attempt, "error", err)
				if err := sleepWithBackoff(ctx, attempt); err != nil {
					return err
				}
				continue
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			lastErr = err
			if isRetryablePGError(err) && attempt < maxAttempts {
				logger.Warn("retrying commit", "attempt", attempt, "error", err)
				if err := sleepWithBackoff(ctx, attempt); err != nil {
					return err
				}
				continue
			}
			if isRetryablePGError(err) {
				break
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRetryLimit, lastErr)
}

func isRetryablePGError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

func sleepWithBackoff(ctx context.Context, attempt int) error {
	base := 20 * time.Millisecond
	backoff := time.Duration(attempt*attempt) * base
	jitter := time.Duration(rand.Int63n(int64(10 * time.Millisecond)))
	timer := time.NewTimer(backoff + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
