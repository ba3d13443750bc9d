package billing

import (
	"context"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockContractRepository is a mock implementation of billing.ContractRepository
type MockContractRepository struct {
	mock.Mock
}

func (m *MockContractRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Contract), args.Error(1)
}

func (m *MockContractRepository) FindActiveByUnit(ctx context.Context, unitID uuid.UUID) (*billing.Contract, error) {
	args := m.Called(ctx, unitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Contract), args.Error(1)
}

func (m *MockContractRepository) FindActiveByPayerAndUnit(ctx context.Context, payerID, unitID uuid.UUID) (*billing.Contract, error) {
	args := m.Called(ctx, payerID, unitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Contract), args.Error(1)
}

func (m *MockContractRepository) FindAllActive(ctx context.Context) ([]billing.Contract, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Contract), args.Error(1)
}

func (m *MockContractRepository) FindAll(ctx context.Context, filter billing.ContractFilter) ([]billing.Contract, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Contract), args.Error(1)
}

func (m *MockContractRepository) ExistsActiveForUnit(ctx context.Context, unitID uuid.UUID) (bool, error) {
	args := m.Called(ctx, unitID)
	return args.Bool(0), args.Error(1)
}

func (m *MockContractRepository) Save(ctx context.Context, contract *billing.Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *MockContractRepository) SaveWithLock(ctx context.Context, contract *billing.Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

// MockChargeRepository is a mock implementation of billing.ChargeRepository
type MockChargeRepository struct {
	mock.Mock
}

func (m *MockChargeRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Charge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]billing.Charge, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindOutstanding(ctx context.Context, payerID, unitID uuid.UUID) ([]billing.Charge, error) {
	args := m.Called(ctx, payerID, unitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindLiveByUnitConceptPeriod(ctx context.Context, unitID, conceptID uuid.UUID, period billing.Period) (*billing.Charge, error) {
	args := m.Called(ctx, unitID, conceptID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Charge), args.Error(1)
}

func (m *MockChargeRepository) LatestPeriod(ctx context.Context, unitID, conceptID uuid.UUID) (billing.Period, error) {
	args := m.Called(ctx, unitID, conceptID)
	return args.Get(0).(billing.Period), args.Error(1)
}

func (m *MockChargeRepository) FindPendingDueBefore(ctx context.Context, date time.Time) ([]billing.Charge, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindAll(ctx context.Context, filter billing.ChargeFilter) ([]billing.Charge, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Charge), args.Error(1)
}

func (m *MockChargeRepository) Create(ctx context.Context, charge *billing.Charge) error {
	args := m.Called(ctx, charge)
	return args.Error(0)
}

func (m *MockChargeRepository) Save(ctx context.Context, charge *billing.Charge) error {
	args := m.Called(ctx, charge)
	return args.Error(0)
}

func (m *MockChargeRepository) SaveWithLock(ctx context.Context, charge *billing.Charge) error {
	args := m.Called(ctx, charge)
	return args.Error(0)
}

// MockPaymentRepository is a mock implementation of billing.PaymentRepository
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

// MockStore bundles the repository mocks and runs transactions inline
type MockStore struct {
	contracts *MockContractRepository
	charges   *MockChargeRepository
	payments  *MockPaymentRepository
}

func newMockStore() *MockStore {
	return &MockStore{
		contracts: new(MockContractRepository),
		charges:   new(MockChargeRepository),
		payments:  new(MockPaymentRepository),
	}
}

func (s *MockStore) Contracts() billing.ContractRepository { return s.contracts }
func (s *MockStore) Charges() billing.ChargeRepository     { return s.charges }
func (s *MockStore) Payments() billing.PaymentRepository   { return s.payments }

func (s *MockStore) InTransaction(ctx context.Context, fn func(billing.Store) error) error {
	return fn(s)
}
