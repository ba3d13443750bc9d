package persistence

import (
	"context"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/billing/backend/internal/domain/treasury"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormStore bundles the billing repositories behind one *gorm.DB so
// InTransaction can hand the callback a store whose repositories all
// share the same transaction.
type GormStore struct {
	db        *gorm.DB
	contracts *GormContractRepository
	charges   *GormChargeRepository
	payments  *GormPaymentRepository
}

// NewGormStore creates a new GormStore
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:        db,
		contracts: NewGormContractRepository(db),
		charges:   NewGormChargeRepository(db),
		payments:  NewGormPaymentRepository(db),
	}
}

// Contracts returns the contract repository
func (s *GormStore) Contracts() billing.ContractRepository { return s.contracts }

// Charges returns the charge repository
func (s *GormStore) Charges() billing.ChargeRepository { return s.charges }

// Payments returns the payment repository
func (s *GormStore) Payments() billing.PaymentRepository { return s.payments }

// InTransaction runs fn against a store bound to a single database
// transaction. A non-nil error from fn rolls everything back.
func (s *GormStore) InTransaction(ctx context.Context, fn func(billing.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStore(tx))
	})
}

// GormTreasuryStore bundles the treasury repositories with the billing
// payment repository that deposit sealing mutates.
type GormTreasuryStore struct {
	db       *gorm.DB
	expenses *GormExpenseRepository
	deposits *GormDepositRepository
	payments *GormPaymentRepository
}

// NewGormTreasuryStore creates a new GormTreasuryStore
func NewGormTreasuryStore(db *gorm.DB) *GormTreasuryStore {
	return &GormTreasuryStore{
		db:       db,
		expenses: NewGormExpenseRepository(db),
		deposits: NewGormDepositRepository(db),
		payments: NewGormPaymentRepository(db),
	}
}

// Expenses returns the expense repository
func (s *GormTreasuryStore) Expenses() treasury.ExpenseRepository { return s.expenses }

// Deposits returns the deposit repository
func (s *GormTreasuryStore) Deposits() treasury.DepositRepository { return s.deposits }

// Payments returns the payment repository
func (s *GormTreasuryStore) Payments() billing.PaymentRepository { return s.payments }

type cashTotalsRow struct {
	CashReceipts decimal.Decimal
	Expenses     decimal.Decimal
	Deposits     decimal.Decimal
}

// CashTotals computes the three aggregate sums the cash balance derives
// from in one round trip: applied cash receipts, registered expenses
// and confirmed deposits.
func (s *GormTreasuryStore) CashTotals(ctx context.Context) (treasury.CashTotals, error) {
	var row cashTotalsRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE((SELECT SUM(total_amount) FROM payments WHERE method = ? AND status = ?), 0) AS cash_receipts,
			COALESCE((SELECT SUM(amount) FROM expenses WHERE status = ?), 0) AS expenses,
			COALESCE((SELECT SUM(amount) FROM deposits WHERE status = ?), 0) AS deposits`,
		billing.MethodCash, billing.PaymentStatusApplied,
		treasury.ExpenseStatusRegistered, treasury.DepositStatusConfirmed,
	).Scan(&row).Error
	if err != nil {
		return treasury.CashTotals{}, err
	}
	return treasury.CashTotals{
		CashReceipts: valueobject.NewMoneyPEN(row.CashReceipts),
		Expenses:     valueobject.NewMoneyPEN(row.Expenses),
		Deposits:     valueobject.NewMoneyPEN(row.Deposits),
	}, nil
}

// InTransaction runs fn against a store bound to a single database
// transaction. A non-nil error from fn rolls everything back.
func (s *GormTreasuryStore) InTransaction(ctx context.Context, fn func(treasury.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormTreasuryStore(tx))
	})
}
