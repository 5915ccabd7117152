package apperrors

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeMatchesWrappedSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorCode
	}{
		{Wrap(ErrNotFound, "account %s", "a-1"), CodeNotFound},
		{Wrap(ErrQuotaExceeded, "max 3 checking accounts"), CodeQuotaExceeded},
		{fmt.Errorf("close: %w", Wrap(ErrInsufficientBalance, "balance 10.00")), CodeInsufficientBalance},
		{ErrInvalidState, CodeInvalidState},
		{ErrInvalidArgument, CodeInvalidArgument},
		{ErrGenerationExhausted, CodeGenerationExhausted},
		{ErrAuthValidationFailed, CodeAuthValidationFailed},
		{sql.ErrConnDone, CodeInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Code(tc.err), tc.err.Error())
	}
}

func TestWrapKeepsMessage(t *testing.T) {
	err := Wrap(ErrNotFound, "card %s", "c-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "not found: card c-1", err.Error())
	assert.True(t, Known(err))
	assert.False(t, Known(sql.ErrNoRows))
}
