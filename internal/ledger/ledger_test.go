package ledger

import (
	"testing"

	"bankledger/internal/apperrors"
	"bankledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyAccountCreditAndDebit(t *testing.T) {
	balance, err := ApplyAccount(decimal.Zero, models.Credit, d("100.50"))
	require.NoError(t, err)
	assert.Equal(t, "100.50", balance.StringFixed(2))

	balance, err = ApplyAccount(balance, models.Debit, d("100.50"))
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestApplyAccountRejectsOverdraft(t *testing.T) {
	balance, err := ApplyAccount(d("10"), models.Debit, d("10.01"))
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
	assert.True(t, balance.Equal(d("10")))
}

func TestApplyAccountRejectsBadAmounts(t *testing.T) {
	for _, amount := range []string{"0", "-5", "1.005"} {
		_, err := ApplyAccount(d("100"), models.Credit, d(amount))
		assert.ErrorIs(t, err, apperrors.ErrInvalidArgument, amount)
	}
	_, err := ApplyAccount(d("100"), models.TransactionKind("REFUND"), d("1"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestBalanceEqualsCreditsMinusDebits(t *testing.T) {
	ops := []struct {
		kind   models.TransactionKind
		amount string
	}{
		{models.Credit, "250.00"},
		{models.Debit, "75.25"},
		{models.Credit, "0.75"},
		{models.Debit, "500.00"},
		{models.Debit, "175.50"},
		{models.Credit, "12.34"},
	}
	balance := decimal.Zero
	credits, debits := decimal.Zero, decimal.Zero
	for _, op := range ops {
		next, err := ApplyAccount(balance, op.kind, d(op.amount))
		if err != nil {
			assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
			continue
		}
		balance = next
		if op.kind == models.Credit {
			credits = credits.Add(d(op.amount))
		} else {
			debits = debits.Add(d(op.amount))
		}
		assert.False(t, balance.IsNegative())
	}
	assert.True(t, balance.Equal(credits.Sub(debits)), "balance %s", balance)
	assert.Equal(t, "12.34", balance.StringFixed(2))
}

func TestRequireZero(t *testing.T) {
	assert.NoError(t, RequireZero(decimal.Zero))
	assert.ErrorIs(t, RequireZero(d("0.01")), apperrors.ErrInsufficientBalance)
}

func TestApplyCardPurchase(t *testing.T) {
	b := CardBalances{CreditLimit: d("1000"), Current: decimal.Zero, Available: d("1000")}

	next, err := ApplyCard(b, models.Debit, d("400"))
	require.NoError(t, err)
	assert.True(t, next.Current.Equal(d("400")))
	assert.True(t, next.Available.Equal(d("600")))
	assert.True(t, next.CreditLimit.Equal(d("1000")))

	_, err = ApplyCard(next, models.Debit, d("600.01"))
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
}

func TestApplyCardRepaymentFloorsCurrent(t *testing.T) {
	b := CardBalances{CreditLimit: d("1000"), Current: d("100"), Available: d("900")}

	next, err := ApplyCard(b, models.Credit, d("150"))
	require.NoError(t, err)
	assert.True(t, next.Current.IsZero())
	assert.True(t, next.Available.Equal(d("1050")))
	assert.True(t, next.OverLimit())
}

func TestCardLimitChanges(t *testing.T) {
	b := CardBalances{CreditLimit: d("1000"), Current: d("300"), Available: d("700")}

	up, err := IncreaseLimit(b, d("500"))
	require.NoError(t, err)
	assert.True(t, up.CreditLimit.Equal(d("1500")))
	assert.True(t, up.Available.Equal(d("1200")))

	down, err := DecreaseLimit(b, d("700"))
	require.NoError(t, err)
	assert.True(t, down.CreditLimit.Equal(d("300")))
	assert.True(t, down.Available.IsZero())

	_, err = DecreaseLimit(b, d("700.01"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = IncreaseLimit(b, decimal.Zero)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}
