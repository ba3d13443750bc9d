package treasury

import (
	"context"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ExpenseFilter defines filtering options for expense queries
type ExpenseFilter struct {
	shared.Filter
	CategoryID *uuid.UUID
	Status     *ExpenseStatus
	FromDate   *time.Time
	ToDate     *time.Time
}

// DepositFilter defines filtering options for deposit queries
type DepositFilter struct {
	shared.Filter
	Status   *DepositStatus
	FromDate *time.Time
	ToDate   *time.Time
}

// CashTotals carries the three aggregate sums the cash balance derives from
type CashTotals struct {
	CashReceipts valueobject.Money
	Expenses     valueobject.Money
	Deposits     valueobject.Money
}

// Balance computes receipts − expenses − deposits
func (t CashTotals) Balance() valueobject.Money {
	return t.CashReceipts.MustSubtract(t.Expenses).MustSubtract(t.Deposits)
}

// ExpenseRepository defines the interface for expense persistence
type ExpenseRepository interface {
	// FindByID finds an expense by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Expense, error)

	// FindAll finds expenses with filtering
	FindAll(ctx context.Context, filter ExpenseFilter) ([]Expense, error)

	// Create inserts a new expense
	Create(ctx context.Context, expense *Expense) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, expense *Expense) error
}

// DepositRepository defines the interface for deposit persistence
type DepositRepository interface {
	// FindByID finds a deposit by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Deposit, error)

	// FindAll finds deposits with filtering
	FindAll(ctx context.Context, filter DepositFilter) ([]Deposit, error)

	// Create inserts a new deposit
	Create(ctx context.Context, deposit *Deposit) error
}

// Store bundles the treasury repositories with the billing payment
// repository they settle against, behind one transactional boundary.
type Store interface {
	Expenses() ExpenseRepository
	Deposits() DepositRepository
	Payments() billing.PaymentRepository

	// CashTotals computes the aggregate sums in one round trip:
	// applied cash receipts, registered expenses, confirmed deposits.
	CashTotals(ctx context.Context) (CashTotals, error)

	InTransaction(ctx context.Context, fn func(Store) error) error
}
