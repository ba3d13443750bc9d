package billing

import (
	"testing"
	"time"

	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContract(t *testing.T) {
	payerID := uuid.New()
	unitID := uuid.New()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("creates active contract with zero wallet", func(t *testing.T) {
		contract, err := NewContract(payerID, unitID, valueobject.NewMoneyPENFromFloat(350), start)
		require.NoError(t, err)
		require.NotNil(t, contract)

		assert.Equal(t, payerID, contract.PayerID)
		assert.Equal(t, unitID, contract.UnitID)
		assert.True(t, contract.MonthlyAmount.Equal(decimal.NewFromInt(350)))
		assert.True(t, contract.WalletBalance.IsZero())
		assert.Equal(t, ContractStatusActive, contract.Status)
		assert.Nil(t, contract.EndDate)
		assert.Equal(t, 1, contract.GetVersion())
	})

	t.Run("fails with empty payer", func(t *testing.T) {
		_, err := NewContract(uuid.Nil, unitID, valueobject.NewMoneyPENFromFloat(350), start)
		require.Error(t, err)
	})

	t.Run("fails with negative monthly amount", func(t *testing.T) {
		_, err := NewContract(payerID, unitID, valueobject.NewMoneyPENFromFloat(-1), start)
		require.Error(t, err)
	})

	t.Run("allows zero monthly amount", func(t *testing.T) {
		contract, err := NewContract(payerID, unitID, valueobject.ZeroPEN(), start)
		require.NoError(t, err)
		assert.False(t, contract.HasMonthlyAmount())
	})
}

func TestContractWallet(t *testing.T) {
	newContract := func(t *testing.T) *Contract {
		contract, err := NewContract(uuid.New(), uuid.New(), valueobject.NewMoneyPENFromFloat(100), time.Now())
		require.NoError(t, err)
		return contract
	}

	t.Run("credit increases balance", func(t *testing.T) {
		contract := newContract(t)
		require.NoError(t, contract.CreditWallet(valueobject.NewMoneyPENFromFloat(50)))
		assert.True(t, contract.WalletBalance.Equal(decimal.NewFromInt(50)))
	})

	t.Run("debit decreases balance", func(t *testing.T) {
		contract := newContract(t)
		require.NoError(t, contract.CreditWallet(valueobject.NewMoneyPENFromFloat(50)))
		require.NoError(t, contract.DebitWallet(valueobject.NewMoneyPENFromFloat(20)))
		assert.True(t, contract.WalletBalance.Equal(decimal.NewFromInt(30)))
	})

	t.Run("debit beyond balance fails", func(t *testing.T) {
		contract := newContract(t)
		require.NoError(t, contract.CreditWallet(valueobject.NewMoneyPENFromFloat(10)))
		err := contract.DebitWallet(valueobject.NewMoneyPENFromFloat(10.50))
		require.Error(t, err)
	})

	t.Run("debit within rounding tolerance clamps to zero", func(t *testing.T) {
		contract := newContract(t)
		require.NoError(t, contract.CreditWallet(valueobject.NewMoneyPENFromFloat(9.995)))
		require.NoError(t, contract.DebitWallet(valueobject.NewMoneyPENFromFloat(10)))
		assert.True(t, contract.WalletBalance.IsZero())
	})

	t.Run("adjust applies signed net movement", func(t *testing.T) {
		contract := newContract(t)
		require.NoError(t, contract.CreditWallet(valueobject.NewMoneyPENFromFloat(30)))

		contract.AdjustWallet(decimal.NewFromInt(20))
		assert.True(t, contract.WalletBalance.Equal(decimal.NewFromInt(50)))

		contract.AdjustWallet(decimal.NewFromInt(-50))
		assert.True(t, contract.WalletBalance.IsZero())
	})
}

func TestContractLifecycle(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("terminate sets end date and status", func(t *testing.T) {
		contract, err := NewContract(uuid.New(), uuid.New(), valueobject.NewMoneyPENFromFloat(100), start)
		require.NoError(t, err)

		end := start.AddDate(0, 6, 0)
		require.NoError(t, contract.Terminate(end))
		assert.Equal(t, ContractStatusInactive, contract.Status)
		require.NotNil(t, contract.EndDate)
		assert.True(t, contract.EndDate.Equal(end))
	})

	t.Run("terminate twice fails", func(t *testing.T) {
		contract, err := NewContract(uuid.New(), uuid.New(), valueobject.NewMoneyPENFromFloat(100), start)
		require.NoError(t, err)
		require.NoError(t, contract.Terminate(start.AddDate(0, 1, 0)))
		assert.Error(t, contract.Terminate(start.AddDate(0, 2, 0)))
	})

	t.Run("terminate before start fails", func(t *testing.T) {
		contract, err := NewContract(uuid.New(), uuid.New(), valueobject.NewMoneyPENFromFloat(100), start)
		require.NoError(t, err)
		assert.Error(t, contract.Terminate(start.AddDate(0, 0, -1)))
	})

	t.Run("current-at honors the date window", func(t *testing.T) {
		contract, err := NewContract(uuid.New(), uuid.New(), valueobject.NewMoneyPENFromFloat(100), start)
		require.NoError(t, err)

		assert.False(t, contract.IsCurrentAt(start.AddDate(0, 0, -1)))
		assert.True(t, contract.IsCurrentAt(start.AddDate(0, 3, 0)))

		require.NoError(t, contract.Terminate(start.AddDate(0, 6, 0)))
		assert.False(t, contract.IsCurrentAt(start.AddDate(0, 7, 0)))
	})
}
