package idgen

import (
	"context"
	"errors"
	"testing"

	"bankledger/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestGenerateProducesDigitsOfRequestedLength(t *testing.T) {
	gen := New(DefaultMaxAttempts)
	id, err := gen.Generate(context.Background(), CardNumberLength, func(context.Context, string) (bool, error) {
		return false, nil
	})
	require.NoError(t, err)
	assert.Len(t, id, CardNumberLength)
	for _, r := range id {
		assert.True(t, r >= '0' && r <= '9', "unexpected rune %q", r)
	}
}

func TestGenerateNeverRepeatsAgainstRecordingStore(t *testing.T) {
	gen := New(DefaultMaxAttempts)
	seen := map[string]struct{}{}
	exists := func(_ context.Context, candidate string) (bool, error) {
		_, ok := seen[candidate]
		return ok, nil
	}
	for i := 0; i < DefaultMaxAttempts; i++ {
		id, err := gen.Generate(context.Background(), AccountNumberLength, exists)
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate identifier %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, DefaultMaxAttempts)
}

func TestGenerateExhaustsAfterCap(t *testing.T) {
	gen := NewWithReader(zeroReader{}, 7)
	calls := 0
	_, err := gen.Generate(context.Background(), 4, func(_ context.Context, candidate string) (bool, error) {
		calls++
		assert.Equal(t, "0000", candidate)
		return true, nil
	})
	assert.ErrorIs(t, err, apperrors.ErrGenerationExhausted)
	assert.Equal(t, 7, calls)
}

func TestGenerateRetriesUntilFree(t *testing.T) {
	gen := New(DefaultMaxAttempts)
	calls := 0
	id, err := gen.Generate(context.Background(), 6, func(context.Context, string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	require.NoError(t, err)
	assert.Len(t, id, 6)
	assert.Equal(t, 3, calls)
}

func TestGeneratePropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	_, err := New(0).Generate(context.Background(), 6, func(context.Context, string) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestGenerateRejectsBadLength(t *testing.T) {
	_, err := New(0).Generate(context.Background(), 0, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestGenerateStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(0).Generate(ctx, 6, func(context.Context, string) (bool, error) {
		t.Fatalf("lookup should not run")
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
