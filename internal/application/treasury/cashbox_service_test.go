package treasury

import (
	"context"
	"testing"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/billing/backend/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCashboxService(store *MockStore) *CashboxService {
	return NewCashboxService(store, nil, zap.NewNop())
}

func cashTotals(receipts, expenses, deposits float64) treasury.CashTotals {
	return treasury.CashTotals{
		CashReceipts: valueobject.NewMoneyPENFromFloat(receipts),
		Expenses:     valueobject.NewMoneyPENFromFloat(expenses),
		Deposits:     valueobject.NewMoneyPENFromFloat(deposits),
	}
}

func appliedCashPayment(t *testing.T, amount float64) billing.Payment {
	t.Helper()
	payment, err := billing.NewPayment(uuid.New(), billing.MethodCash,
		valueobject.NewMoneyPENFromFloat(amount), time.Now(), uuid.New())
	require.NoError(t, err)
	require.NoError(t, payment.BookWalletContribution(decimal.NewFromFloat(amount)))
	require.NoError(t, payment.MarkApplied())
	return *payment
}

func TestCashboxServiceBalance(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc := newCashboxService(store)

	store.On("CashTotals", ctx).Return(cashTotals(1000, 300, 200), nil)

	balance, err := svc.Balance(ctx)
	require.NoError(t, err)

	assert.True(t, balance.CashReceipts.Equal(decimal.NewFromInt(1000)))
	assert.True(t, balance.Expenses.Equal(decimal.NewFromInt(300)))
	assert.True(t, balance.Deposits.Equal(decimal.NewFromInt(200)))
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(500)))
}

func TestCashboxServiceAssertSufficientFunds(t *testing.T) {
	ctx := context.Background()

	t.Run("balance covers the amount exactly", func(t *testing.T) {
		store := newMockStore()
		svc := newCashboxService(store)
		store.On("CashTotals", ctx).Return(cashTotals(40, 0, 0), nil)

		assert.NoError(t, svc.AssertSufficientFunds(ctx, decimal.NewFromInt(40)))
	})

	t.Run("one sol over the balance fails", func(t *testing.T) {
		store := newMockStore()
		svc := newCashboxService(store)
		store.On("CashTotals", ctx).Return(cashTotals(40, 0, 0), nil)

		err := svc.AssertSufficientFunds(ctx, decimal.NewFromInt(41))
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_FUNDS", domainErr.Code)
	})

	t.Run("a cent of slack is allowed", func(t *testing.T) {
		store := newMockStore()
		svc := newCashboxService(store)
		store.On("CashTotals", ctx).Return(cashTotals(40, 0, 0), nil)

		assert.NoError(t, svc.AssertSufficientFunds(ctx, decimal.NewFromFloat(40.01)))
	})
}

func TestCashboxServiceRecordExpense(t *testing.T) {
	ctx := context.Background()

	request := func(code string, amount float64) RecordExpenseRequest {
		return RecordExpenseRequest{
			CategoryID:  uuid.New(),
			AccountCode: code,
			Amount:      decimal.NewFromFloat(amount),
			ExpenseDate: time.Now(),
			Beneficiary: "Ferreteria Central",
			ActorID:     uuid.New(),
		}
	}

	t.Run("registers an expense when funds cover it", func(t *testing.T) {
		store := newMockStore()
		svc := newCashboxService(store)

		store.On("CashTotals", ctx).Return(cashTotals(500, 0, 0), nil)
		store.expenses.On("Create", ctx, mock.AnythingOfType("*treasury.Expense")).Return(nil)

		expense, err := svc.RecordExpense(ctx, request("6011", 120))
		require.NoError(t, err)

		assert.Equal(t, treasury.ExpenseStatusRegistered, expense.Status)
		assert.True(t, expense.Amount.Amount().Equal(decimal.NewFromInt(120)))
		store.expenses.AssertExpectations(t)
	})

	t.Run("receipt account codes are rejected", func(t *testing.T) {
		store := newMockStore()
		svc := newCashboxService(store)

		_, err := svc.RecordExpense(ctx, request("1001", 120))
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_INPUT", domainErr.Code)
		store.expenses.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("insufficient funds blocks the expense", func(t *testing.T) {
		store := newMockStore()
		svc := newCashboxService(store)

		store.On("CashTotals", ctx).Return(cashTotals(40, 0, 0), nil)

		_, err := svc.RecordExpense(ctx, request("5020", 41))
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_FUNDS", domainErr.Code)
		store.expenses.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCashboxServiceCancelExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels a registered expense", func(t *testing.T) {
		store := newMockStore()
		svc := newCashboxService(store)

		expense, err := treasury.NewExpense(uuid.New(), "6011",
			valueobject.NewMoneyPENFromFloat(80), time.Now(),
			"Ferreteria Central", "F001-220", "", uuid.New())
		require.NoError(t, err)

		store.expenses.On("FindByID", ctx, expense.ID).Return(expense, nil)
		store.expenses.On("SaveWithLock", ctx, expense).Return(nil)

		cancelled, err := svc.CancelExpense(ctx, expense.ID, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, treasury.ExpenseStatusCancelled, cancelled.Status)
	})

	t.Run("second cancellation fails", func(t *testing.T) {
		store := newMockStore()
		svc := newCashboxService(store)

		expense, err := treasury.NewExpense(uuid.New(), "6011",
			valueobject.NewMoneyPENFromFloat(80), time.Now(),
			"Ferreteria Central", "", "", uuid.New())
		require.NoError(t, err)
		require.NoError(t, expense.Cancel(uuid.New()))

		store.expenses.On("FindByID", ctx, expense.ID).Return(expense, nil)

		_, err = svc.CancelExpense(ctx, expense.ID, uuid.New())
		assert.ErrorIs(t, err, shared.ErrAlreadyVoided)
		store.expenses.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestCashboxServiceSealDeposit(t *testing.T) {
	ctx := context.Background()

	request := func(amount float64, ids ...uuid.UUID) SealDepositRequest {
		return SealDepositRequest{
			Amount:             decimal.NewFromFloat(amount),
			DepositDate:        time.Now(),
			ReferenceNumber:    "OP-48112",
			Bank:               "BCP",
			DestinationAccount: "191-555555-0-01",
			PaymentIDs:         ids,
			ActorID:            uuid.New(),
		}
	}

	t.Run("seals selected receipts into a confirmed deposit", func(t *testing.T) {
		store := newMockStore()
		svc := newCashboxService(store)

		first := appliedCashPayment(t, 300)
		second := appliedCashPayment(t, 200)
		ids := []uuid.UUID{first.ID, second.ID}

		store.payments.On("FindByIDs", ctx, ids).Return([]billing.Payment{first, second}, nil)
		store.deposits.On("Create", ctx, mock.AnythingOfType("*treasury.Deposit")).Return(nil)
		store.payments.On("SaveWithLock", ctx, mock.AnythingOfType("*billing.Payment")).Return(nil)

		deposit, err := svc.SealDeposit(ctx, request(500, ids...))
		require.NoError(t, err)

		assert.Equal(t, treasury.DepositStatusConfirmed, deposit.Status)
		assert.True(t, deposit.Amount.Amount().Equal(decimal.NewFromInt(500)))
		assert.Equal(t, ids, deposit.PaymentIDs)
		store.payments.AssertNumberOfCalls(t, "SaveWithLock", 2)
	})

	t.Run("voucher within ten cents still reconciles", func(t *testing.T) {
		store := newMockStore()
		svc := newCashboxService(store)

		receipt := appliedCashPayment(t, 500)
		store.payments.On("FindByIDs", ctx, []uuid.UUID{receipt.ID}).
			Return([]billing.Payment{receipt}, nil)
		store.deposits.On("Create", ctx, mock.AnythingOfType("*treasury.Deposit")).Return(nil)
		store.payments.On("SaveWithLock", ctx, mock.AnythingOfType("*billing.Payment")).Return(nil)

		_, err := svc.SealDeposit(ctx, request(500.10, receipt.ID))
		assert.NoError(t, err)
	})

	t.Run("voucher beyond ten cents fails to reconcile", func(t *testing.T) {
		store := newMockStore()
		svc := newCashboxService(store)

		receipt := appliedCashPayment(t, 500)
		store.payments.On("FindByIDs", ctx, []uuid.UUID{receipt.ID}).
			Return([]billing.Payment{receipt}, nil)

		_, err := svc.SealDeposit(ctx, request(500.11, receipt.ID))
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "AMOUNT_MISMATCH", domainErr.Code)
		store.deposits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("missing receipts fail the whole close", func(t *testing.T) {
		store := newMockStore()
		svc := newCashboxService(store)

		receipt := appliedCashPayment(t, 300)
		ghost := uuid.New()
		store.payments.On("FindByIDs", ctx, []uuid.UUID{receipt.ID, ghost}).
			Return([]billing.Payment{receipt}, nil)

		_, err := svc.SealDeposit(ctx, request(300, receipt.ID, ghost))
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})

	t.Run("non-cash receipts cannot be deposited", func(t *testing.T) {
		store := newMockStore()
		svc := newCashboxService(store)

		transfer, err := billing.NewPayment(uuid.New(), billing.MethodBankTransfer,
			valueobject.NewMoneyPENFromFloat(300), time.Now(), uuid.New())
		require.NoError(t, err)
		require.NoError(t, transfer.BookWalletContribution(decimal.NewFromInt(300)))
		require.NoError(t, transfer.MarkApplied())

		store.payments.On("FindByIDs", ctx, []uuid.UUID{transfer.ID}).
			Return([]billing.Payment{*transfer}, nil)

		_, err = svc.SealDeposit(ctx, request(300, transfer.ID))
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})

	t.Run("already deposited receipts are rejected", func(t *testing.T) {
		store := newMockStore()
		svc := newCashboxService(store)

		receipt := appliedCashPayment(t, 300)
		require.NoError(t, receipt.LinkDeposit(uuid.New()))

		store.payments.On("FindByIDs", ctx, []uuid.UUID{receipt.ID}).
			Return([]billing.Payment{receipt}, nil)

		_, err := svc.SealDeposit(ctx, request(300, receipt.ID))
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})

	t.Run("a deposit needs receipts", func(t *testing.T) {
		store := newMockStore()
		svc := newCashboxService(store)

		_, err := svc.SealDeposit(ctx, request(300))
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_INPUT", domainErr.Code)
	})
}

func TestCashboxServiceDailyBook(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc := newCashboxService(store)

	receipt := appliedCashPayment(t, 300)
	receipt.CreatedAt = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	expense, err := treasury.NewExpense(uuid.New(), "6011",
		valueobject.NewMoneyPENFromFloat(80), time.Now(),
		"Ferreteria Central", "F001-220", "", uuid.New())
	require.NoError(t, err)
	expense.CreatedAt = time.Date(2025, 3, 11, 14, 0, 0, 0, time.UTC)

	deposit, err := treasury.NewDeposit(valueobject.NewMoneyPENFromFloat(100),
		time.Now(), "OP-48112", "BCP", "191-555555-0-01",
		valueobject.NewMoneyPENFromFloat(100), uuid.New())
	require.NoError(t, err)
	deposit.CreatedAt = time.Date(2025, 3, 12, 17, 0, 0, 0, time.UTC)

	store.payments.On("FindAll", ctx, mock.AnythingOfType("billing.PaymentFilter")).
		Return([]billing.Payment{receipt}, nil)
	store.expenses.On("FindAll", ctx, mock.AnythingOfType("treasury.ExpenseFilter")).
		Return([]treasury.Expense{*expense}, nil)
	store.deposits.On("FindAll", ctx, mock.AnythingOfType("treasury.DepositFilter")).
		Return([]treasury.Deposit{*deposit}, nil)
	store.On("CashTotals", ctx).Return(cashTotals(300, 80, 100), nil)

	book, err := svc.DailyBook(ctx)
	require.NoError(t, err)

	assert.True(t, book.Balance.Equal(decimal.NewFromInt(120)))
	require.Len(t, book.Movements, 3)
	// newest first
	assert.Equal(t, MovementDeposit, book.Movements[0].Type)
	assert.Equal(t, MovementExpense, book.Movements[1].Type)
	assert.Equal(t, MovementReceipt, book.Movements[2].Type)
	assert.True(t, book.Movements[2].In.Equal(decimal.NewFromInt(300)))
	assert.True(t, book.Movements[1].Out.Equal(decimal.NewFromInt(80)))
	assert.True(t, book.Movements[0].Out.Equal(decimal.NewFromInt(100)))
}
