package treasury

import (
	"context"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockExpenseRepository struct {
	mock.Mock
}

func (m *MockExpenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.Expense, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.Expense), args.Error(1)
}

func (m *MockExpenseRepository) FindAll(ctx context.Context, filter treasury.ExpenseFilter) ([]treasury.Expense, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]treasury.Expense), args.Error(1)
}

func (m *MockExpenseRepository) Create(ctx context.Context, expense *treasury.Expense) error {
	args := m.Called(ctx, expense)
	return args.Error(0)
}

func (m *MockExpenseRepository) SaveWithLock(ctx context.Context, expense *treasury.Expense) error {
	args := m.Called(ctx, expense)
	return args.Error(0)
}

type MockDepositRepository struct {
	mock.Mock
}

func (m *MockDepositRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.Deposit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.Deposit), args.Error(1)
}

func (m *MockDepositRepository) FindAll(ctx context.Context, filter treasury.DepositFilter) ([]treasury.Deposit, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]treasury.Deposit), args.Error(1)
}

func (m *MockDepositRepository) Create(ctx context.Context, deposit *treasury.Deposit) error {
	args := m.Called(ctx, deposit)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]billing.Payment, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByContract(ctx context.Context, contractID uuid.UUID, filter billing.PaymentFilter) ([]billing.Payment, error) {
	args := m.Called(ctx, contractID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindAll(ctx context.Context, filter billing.PaymentFilter) ([]billing.Payment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindUnsealedCash(ctx context.Context) ([]billing.Payment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *billing.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) SaveWithLock(ctx context.Context, payment *billing.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockStore executes transactions inline against its own repositories.
type MockStore struct {
	mock.Mock
	expenses *MockExpenseRepository
	deposits *MockDepositRepository
	payments *MockPaymentRepository
}

func newMockStore() *MockStore {
	return &MockStore{
		expenses: new(MockExpenseRepository),
		deposits: new(MockDepositRepository),
		payments: new(MockPaymentRepository),
	}
}

func (s *MockStore) Expenses() treasury.ExpenseRepository { return s.expenses }

func (s *MockStore) Deposits() treasury.DepositRepository { return s.deposits }

func (s *MockStore) Payments() billing.PaymentRepository { return s.payments }

func (s *MockStore) CashTotals(ctx context.Context) (treasury.CashTotals, error) {
	args := s.Called(ctx)
	return args.Get(0).(treasury.CashTotals), args.Error(1)
}

func (s *MockStore) InTransaction(ctx context.Context, fn func(treasury.Store) error) error {
	return fn(s)
}
