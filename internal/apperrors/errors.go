package apperrors

import (
	"errors"
	"fmt"
)

// Failure taxonomy shared by the ledger, card and loan services. Operations
// wrap these with context; callers match them with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrQuotaExceeded        = errors.New("quota exceeded")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidState         = errors.New("invalid state")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrGenerationExhausted  = errors.New("identifier generation exhausted")
	ErrAuthValidationFailed = errors.New("auth validation failed")
)

type ErrorCode string

const (
	CodeNotFound             ErrorCode = "not_found"
	CodeQuotaExceeded        ErrorCode = "quota_exceeded"
	CodeInsufficientBalance  ErrorCode = "insufficient_balance"
	CodeInvalidState         ErrorCode = "invalid_state"
	CodeInvalidArgument      ErrorCode = "invalid_argument"
	CodeGenerationExhausted  ErrorCode = "generation_exhausted"
	CodeAuthValidationFailed ErrorCode = "auth_validation_failed"
	CodeInternal             ErrorCode = "internal_error"
)

var codes = []struct {
	err  error
	code ErrorCode
}{
	{ErrNotFound, CodeNotFound},
	{ErrQuotaExceeded, CodeQuotaExceeded},
	{ErrInsufficientBalance, CodeInsufficientBalance},
	{ErrInvalidState, CodeInvalidState},
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrGenerationExhausted, CodeGenerationExhausted},
	{ErrAuthValidationFailed, CodeAuthValidationFailed},
}

// Code returns the stable code for err, or CodeInternal when err is not
// part of the taxonomy.
func Code(err error) ErrorCode {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// Known reports whether err belongs to the taxonomy.
func Known(err error) bool {
	return Code(err) != CodeInternal
}

// Wrap attaches a message to one of the sentinels above.
func Wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
