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

func chargeForPayer(t *testing.T, payerID uuid.UUID, amount float64, period Period) *Charge {
	t.Helper()
	charge, err := NewCharge(uuid.New(), payerID, uuid.New(), period,
		valueobject.NewMoneyPENFromFloat(amount), period.DueDate(5))
	require.NoError(t, err)
	return charge
}

func TestValidateInstructions(t *testing.T) {
	svc := NewAllocationService()
	payerID := uuid.New()
	contract, err := NewContract(payerID, uuid.New(), valueobject.NewMoneyPENFromFloat(100), time.Now())
	require.NoError(t, err)
	period := Period{Year: 2025, Month: 3}

	t.Run("accepts a balanced instruction set", func(t *testing.T) {
		charge := chargeForPayer(t, payerID, 120, period)
		err := svc.ValidateInstructions(contract, decimal.NewFromInt(120), decimal.Zero,
			[]AllocationInstruction{{ChargeID: charge.ID, Amount: decimal.NewFromInt(120)}},
			map[uuid.UUID]*Charge{charge.ID: charge})
		require.NoError(t, err)
	})

	t.Run("wallet top-up counts toward the total", func(t *testing.T) {
		charge := chargeForPayer(t, payerID, 80, period)
		err := svc.ValidateInstructions(contract, decimal.NewFromInt(100), decimal.NewFromInt(20),
			[]AllocationInstruction{{ChargeID: charge.ID, Amount: decimal.NewFromInt(80)}},
			map[uuid.UUID]*Charge{charge.ID: charge})
		require.NoError(t, err)
	})

	t.Run("rejects line exceeding remaining balance", func(t *testing.T) {
		charge := chargeForPayer(t, payerID, 100, period)
		err := svc.ValidateInstructions(contract, decimal.NewFromInt(150), decimal.Zero,
			[]AllocationInstruction{{ChargeID: charge.ID, Amount: decimal.NewFromInt(150)}},
			map[uuid.UUID]*Charge{charge.ID: charge})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALLOCATION_EXCEEDS_BALANCE", domainErr.Code)
	})

	t.Run("rejects sum mismatch against total", func(t *testing.T) {
		charge := chargeForPayer(t, payerID, 100, period)
		err := svc.ValidateInstructions(contract, decimal.NewFromInt(90), decimal.Zero,
			[]AllocationInstruction{{ChargeID: charge.ID, Amount: decimal.NewFromInt(80)}},
			map[uuid.UUID]*Charge{charge.ID: charge})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "AMOUNT_MISMATCH", domainErr.Code)
	})

	t.Run("rejects charges of another payer", func(t *testing.T) {
		foreign := chargeForPayer(t, uuid.New(), 100, period)
		err := svc.ValidateInstructions(contract, decimal.NewFromInt(100), decimal.Zero,
			[]AllocationInstruction{{ChargeID: foreign.ID, Amount: decimal.NewFromInt(100)}},
			map[uuid.UUID]*Charge{foreign.ID: foreign})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "FOREIGN_CHARGE", domainErr.Code)
	})

	t.Run("rejects unknown charge reference", func(t *testing.T) {
		err := svc.ValidateInstructions(contract, decimal.NewFromInt(100), decimal.Zero,
			[]AllocationInstruction{{ChargeID: uuid.New(), Amount: decimal.NewFromInt(100)}},
			map[uuid.UUID]*Charge{})
		require.Error(t, err)
	})
}

func TestApplyInstructions(t *testing.T) {
	svc := NewAllocationService()
	payerID := uuid.New()
	period := Period{Year: 2025, Month: 3}

	t.Run("applies lines in order and reports remainder", func(t *testing.T) {
		payment := newTestPayment(t, 150)
		first := chargeForPayer(t, payerID, 100, period)
		second := chargeForPayer(t, payerID, 100, period.Next())

		remaining, last, err := svc.ApplyInstructions(payment,
			[]AllocationInstruction{
				{ChargeID: first.ID, Amount: decimal.NewFromInt(100)},
				{ChargeID: second.ID, Amount: decimal.NewFromInt(50)},
			},
			map[uuid.UUID]*Charge{first.ID: first, second.ID: second})
		require.NoError(t, err)

		assert.True(t, remaining.IsZero())
		assert.Equal(t, second.ID, last.ID)
		assert.Equal(t, ChargeStatusPaid, first.Status)
		assert.Equal(t, ChargeStatusPartiallyPaid, second.Status)
		assert.True(t, second.RemainingBalance.Equal(decimal.NewFromInt(50)))
	})
}

func TestDistributeAuto(t *testing.T) {
	svc := NewAllocationService()
	payerID := uuid.New()
	march := Period{Year: 2025, Month: 3}
	april := march.Next()

	t.Run("covers oldest charge first", func(t *testing.T) {
		payment := newTestPayment(t, 150)
		older := chargeForPayer(t, payerID, 100, march)
		newer := chargeForPayer(t, payerID, 100, april)

		remaining, touched, err := svc.DistributeAuto(payment, payment.TotalAmount, []*Charge{older, newer})
		require.NoError(t, err)

		assert.True(t, remaining.IsZero())
		require.Len(t, touched, 2)
		assert.Equal(t, older.ID, touched[0].ID)
		assert.Equal(t, newer.ID, touched[1].ID)
		assert.True(t, older.RemainingBalance.IsZero())
		assert.Equal(t, ChargeStatusPaid, older.Status)
		assert.True(t, newer.RemainingBalance.Equal(decimal.NewFromInt(50)))
		assert.Equal(t, ChargeStatusPartiallyPaid, newer.Status)
	})

	t.Run("surplus survives as remainder", func(t *testing.T) {
		payment := newTestPayment(t, 130)
		only := chargeForPayer(t, payerID, 100, march)

		remaining, touched, err := svc.DistributeAuto(payment, payment.TotalAmount, []*Charge{only})
		require.NoError(t, err)

		assert.True(t, remaining.Equal(decimal.NewFromInt(30)))
		require.Len(t, touched, 1)
		assert.Equal(t, only.ID, touched[0].ID)
		assert.Equal(t, ChargeStatusPaid, only.Status)
	})

	t.Run("skips settled and voided charges", func(t *testing.T) {
		payment := newTestPayment(t, 100)
		settled := chargeForPayer(t, payerID, 50, march)
		_, err := settled.ApplyAmount(valueobject.NewMoneyPENFromFloat(50))
		require.NoError(t, err)
		voided := chargeForPayer(t, payerID, 50, march)
		require.NoError(t, voided.Void())
		open := chargeForPayer(t, payerID, 100, april)

		remaining, touched, err := svc.DistributeAuto(payment, payment.TotalAmount, []*Charge{settled, voided, open})
		require.NoError(t, err)

		assert.True(t, remaining.IsZero())
		require.Len(t, touched, 1)
		assert.Equal(t, open.ID, touched[0].ID)
		assert.Equal(t, ChargeStatusPaid, open.Status)
	})

	t.Run("wallet-funded portion rides on top of the total", func(t *testing.T) {
		payment := newTestPayment(t, 100)
		only := chargeForPayer(t, payerID, 150, march)

		remaining, touched, err := svc.DistributeAuto(payment,
			payment.TotalAmount.Add(decimal.NewFromInt(50)), []*Charge{only})
		require.NoError(t, err)

		assert.True(t, remaining.IsZero())
		require.Len(t, touched, 1)
		assert.Equal(t, ChargeStatusPaid, only.Status)
	})

	t.Run("no open charges leaves everything as remainder", func(t *testing.T) {
		payment := newTestPayment(t, 100)
		remaining, touched, err := svc.DistributeAuto(payment, payment.TotalAmount, nil)
		require.NoError(t, err)
		assert.True(t, remaining.Equal(decimal.NewFromInt(100)))
		assert.Empty(t, touched)
	})
}
