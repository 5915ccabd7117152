// Package idgen allocates random fixed-length numeric identifiers such as
// account and card numbers.
package idgen

import (
	"context"
	"crypto/rand"
	"io"
	"math/big"
	"strings"

	"bankledger/internal/apperrors"
)

const (
	DefaultMaxAttempts  = 100
	AccountNumberLength = 12
	CardNumberLength    = 16
)

var ten = big.NewInt(10)

// ExistsFunc reports whether candidate is already taken in the store.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

type Generator struct {
	random      io.Reader
	maxAttempts int
}

func New(maxAttempts int) *Generator {
	return NewWithReader(rand.Reader, maxAttempts)
}

func NewWithReader(random io.Reader, maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{random: random, maxAttempts: maxAttempts}
}

func (g *Generator) MaxAttempts() int {
	return g.maxAttempts
}

// Generate draws candidates until exists reports a free one. It gives up with
// ErrGenerationExhausted after maxAttempts collisions.
func (g *Generator) Generate(ctx context.Context, length int, exists ExistsFunc) (string, error) {
	if length <= 0 {
		return "", apperrors.Wrap(apperrors.ErrInvalidArgument, "identifier length must be positive")
	}
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate, err := g.candidate(length)
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperrors.Wrap(apperrors.ErrGenerationExhausted, "no free %d-digit identifier after %d attempts", length, g.maxAttempts)
}

func (g *Generator) candidate(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		digit, err := rand.Int(g.random, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + digit.Int64()))
	}
	return b.String(), nil
}
