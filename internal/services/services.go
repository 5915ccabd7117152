package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"bankledger/internal/apperrors"
	"bankledger/internal/store"
	"bankledger/internal/userclient"
	"bankledger/internal/websocket"
)

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID string, data any) error
}

type BalanceHub interface {
	BroadcastBalance(ownerID string, update websocket.BalanceUpdate)
}

// TokenValidator is the user service's token check.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (userclient.Validation, error)
}

// Options carries the knobs shared by the services.
type Options struct {
	Logger      *slog.Logger
	Now         func() time.Time
	AuthTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.AuthTimeout <= 0 {
		o.AuthTimeout = userclient.DefaultTimeout
	}
	return o
}

func (o Options) now() time.Time {
	return o.Now().UTC()
}

// notFound maps a missing row to ErrNotFound and passes other errors through.
func notFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.Wrap(apperrors.ErrNotFound, "%s %s not found", entity, id)
	}
	return err
}

// owned reports a foreign entity as missing so callers cannot probe for ids
// they do not own.
func owned(entityOwner, callerID, entity, id string) error {
	if entityOwner != callerID {
		return apperrors.Wrap(apperrors.ErrNotFound, "%s %s not found", entity, id)
	}
	return nil
}

// validateOwner asks the user service to confirm token belongs to an active
// ownerID. Errors, timeouts and negative answers all fail the operation.
func validateOwner(ctx context.Context, validator TokenValidator, opts Options, token, ownerID string) error {
	if validator == nil {
		return apperrors.Wrap(apperrors.ErrAuthValidationFailed, "no token validator configured")
	}
	ctx, cancel := context.WithTimeout(ctx, opts.AuthTimeout)
	defer cancel()

	v, err := validator.Validate(ctx, token)
	if err != nil {
		opts.Logger.Error("token validation failed", "owner_id", ownerID, "error", err)
		if errors.Is(err, apperrors.ErrAuthValidationFailed) {
			return err
		}
		return apperrors.Wrap(apperrors.ErrAuthValidationFailed, "%v", err)
	}
	if !v.Valid || !v.Active {
		return apperrors.Wrap(apperrors.ErrAuthValidationFailed, "token rejected for owner %s", ownerID)
	}
	if v.OwnerID != ownerID {
		return apperrors.Wrap(apperrors.ErrAuthValidationFailed, "token does not belong to owner %s", ownerID)
	}
	return nil
}

// logRejection records a refused mutation at Warn and unexpected failures at
// Error.
func logRejection(logger *slog.Logger, msg string, err error, attrs ...any) {
	if apperrors.Known(err) {
		logger.Warn(msg, append(attrs, "code", apperrors.Code(err), "error", err)...)
		return
	}
	logger.Error(msg, append(attrs, "error", err)...)
}
