package billing

import (
	"testing"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(t *testing.T, amount float64) *Payment {
	t.Helper()
	payment, err := NewPayment(uuid.New(), MethodCash,
		valueobject.NewMoneyPENFromFloat(amount), time.Now(), uuid.New())
	require.NoError(t, err)
	return payment
}

func TestNewPayment(t *testing.T) {
	t.Run("creates registered payment with account code from method", func(t *testing.T) {
		payment := newTestPayment(t, 150)
		assert.Equal(t, PaymentStatusRegistered, payment.Status)
		assert.Equal(t, "1001", payment.AccountCode)
		assert.Empty(t, payment.Allocations)
		assert.True(t, payment.WalletContribution.IsZero())
		assert.True(t, payment.WalletAmountUsed.IsZero())
	})

	t.Run("bank transfer maps to the bank account code", func(t *testing.T) {
		payment, err := NewPayment(uuid.New(), MethodBankTransfer,
			valueobject.NewMoneyPENFromFloat(150), time.Now(), uuid.New())
		require.NoError(t, err)
		assert.Equal(t, "1002", payment.AccountCode)
	})

	t.Run("fails with non-positive amount", func(t *testing.T) {
		_, err := NewPayment(uuid.New(), MethodCash, valueobject.ZeroPEN(), time.Now(), uuid.New())
		require.Error(t, err)
	})

	t.Run("fails with unknown method", func(t *testing.T) {
		_, err := NewPayment(uuid.New(), PaymentMethod("CHECK"),
			valueobject.NewMoneyPENFromFloat(10), time.Now(), uuid.New())
		require.Error(t, err)
	})
}

func TestPaymentAllocate(t *testing.T) {
	t.Run("records balance before and after on the line", func(t *testing.T) {
		payment := newTestPayment(t, 50)
		charge := newTestCharge(t, 120)

		applied, err := payment.Allocate(charge, valueobject.NewMoneyPENFromFloat(50))
		require.NoError(t, err)

		assert.True(t, applied.Equal(decimal.NewFromInt(50)))
		require.Len(t, payment.Allocations, 1)
		line := payment.Allocations[0]
		assert.Equal(t, charge.ID, line.ChargeID)
		assert.True(t, line.BalanceBefore.Equal(decimal.NewFromInt(120)))
		assert.True(t, line.BalanceAfter.Equal(decimal.NewFromInt(70)))
		assert.Equal(t, AllocationStatusApplied, line.Status)
	})

	t.Run("allocated total sums applied lines only", func(t *testing.T) {
		payment := newTestPayment(t, 150)
		first := newTestCharge(t, 100)
		second := newTestCharge(t, 100)

		_, err := payment.Allocate(first, valueobject.NewMoneyPENFromFloat(100))
		require.NoError(t, err)
		_, err = payment.Allocate(second, valueobject.NewMoneyPENFromFloat(50))
		require.NoError(t, err)
		assert.True(t, payment.AllocatedTotal().Equal(decimal.NewFromInt(150)))

		payment.Allocations[1].MarkReversed()
		assert.True(t, payment.AllocatedTotal().Equal(decimal.NewFromInt(100)))
	})

	t.Run("voided payment rejects further allocation", func(t *testing.T) {
		payment := newTestPayment(t, 50)
		_, err := payment.Void(uuid.New())
		require.NoError(t, err)

		_, err = payment.Allocate(newTestCharge(t, 100), valueobject.NewMoneyPENFromFloat(50))
		assert.ErrorIs(t, err, shared.ErrAlreadyVoided)
	})
}

func TestPaymentMarkApplied(t *testing.T) {
	t.Run("balances allocations against the total", func(t *testing.T) {
		payment := newTestPayment(t, 120)
		charge := newTestCharge(t, 120)
		_, err := payment.Allocate(charge, valueobject.NewMoneyPENFromFloat(120))
		require.NoError(t, err)

		require.NoError(t, payment.MarkApplied())
		assert.Equal(t, PaymentStatusApplied, payment.Status)
	})

	t.Run("wallet contribution closes the gap", func(t *testing.T) {
		payment := newTestPayment(t, 100)
		charge := newTestCharge(t, 80)
		_, err := payment.Allocate(charge, valueobject.NewMoneyPENFromFloat(80))
		require.NoError(t, err)
		require.NoError(t, payment.BookWalletContribution(decimal.NewFromInt(20)))

		require.NoError(t, payment.MarkApplied())
	})

	t.Run("wallet usage stretches the total", func(t *testing.T) {
		// 100 fresh money + 50 wallet settles 150 of charges
		payment := newTestPayment(t, 100)
		charge := newTestCharge(t, 150)
		_, err := payment.Allocate(charge, valueobject.NewMoneyPENFromFloat(150))
		require.NoError(t, err)
		require.NoError(t, payment.UseWallet(decimal.NewFromInt(50)))

		require.NoError(t, payment.MarkApplied())
	})

	t.Run("fails when the books do not balance", func(t *testing.T) {
		payment := newTestPayment(t, 100)
		charge := newTestCharge(t, 80)
		_, err := payment.Allocate(charge, valueobject.NewMoneyPENFromFloat(80))
		require.NoError(t, err)

		err = payment.MarkApplied()
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "AMOUNT_MISMATCH", domainErr.Code)
	})
}

func TestPaymentVoid(t *testing.T) {
	t.Run("returns net wallet delta", func(t *testing.T) {
		payment := newTestPayment(t, 100)
		require.NoError(t, payment.UseWallet(decimal.NewFromInt(30)))
		require.NoError(t, payment.BookWalletContribution(decimal.NewFromInt(10)))

		actor := uuid.New()
		delta, err := payment.Void(actor)
		require.NoError(t, err)

		// 30 came out of the wallet, 10 went in: reversal restores net 20
		assert.True(t, delta.Equal(decimal.NewFromInt(20)))
		assert.Equal(t, PaymentStatusVoided, payment.Status)
		require.NotNil(t, payment.VoidedAt)
		require.NotNil(t, payment.VoidedBy)
		assert.Equal(t, actor, *payment.VoidedBy)
	})

	t.Run("second void fails without side effects", func(t *testing.T) {
		payment := newTestPayment(t, 100)
		_, err := payment.Void(uuid.New())
		require.NoError(t, err)

		firstVoidedAt := *payment.VoidedAt
		delta, err := payment.Void(uuid.New())
		assert.ErrorIs(t, err, shared.ErrAlreadyVoided)
		assert.True(t, delta.IsZero())
		assert.True(t, payment.VoidedAt.Equal(firstVoidedAt))
	})
}

func TestPaymentDeposit(t *testing.T) {
	t.Run("links once", func(t *testing.T) {
		payment := newTestPayment(t, 100)
		depositID := uuid.New()
		require.NoError(t, payment.LinkDeposit(depositID))
		require.NotNil(t, payment.DepositID)
		assert.Equal(t, depositID, *payment.DepositID)

		assert.Error(t, payment.LinkDeposit(uuid.New()))
	})

	t.Run("voided payments cannot be deposited", func(t *testing.T) {
		payment := newTestPayment(t, 100)
		_, err := payment.Void(uuid.New())
		require.NoError(t, err)
		assert.Error(t, payment.LinkDeposit(uuid.New()))
	})
}
