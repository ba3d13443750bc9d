package treasury

import (
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ExpenseStatus represents the lifecycle state of a cash expense
type ExpenseStatus string

const (
	ExpenseStatusRegistered ExpenseStatus = "registered"
	ExpenseStatusCancelled  ExpenseStatus = "cancelled"
)

// IsValid checks if the status is a valid expense status
func (s ExpenseStatus) IsValid() bool {
	switch s {
	case ExpenseStatusRegistered, ExpenseStatusCancelled:
		return true
	}
	return false
}

// Expense represents a cash outflow paid from the cashbox.
// Only registered expenses count against the cash balance.
type Expense struct {
	shared.BaseAggregateRoot
	CategoryID     uuid.UUID
	AccountCode    string
	Amount         valueobject.Money
	ExpenseDate    time.Time
	Beneficiary    string
	DocumentNumber string
	Description    string
	Status         ExpenseStatus
	CancelledAt    *time.Time
	CancelledBy    *uuid.UUID
}

// NewExpense creates a registered expense
func NewExpense(categoryID uuid.UUID, accountCode string, amount valueobject.Money, expenseDate time.Time, beneficiary, documentNumber, description string, createdBy uuid.UUID) (*Expense, error) {
	if accountCode == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "account code is required")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "expense amount must be positive")
	}
	return &Expense{
		BaseAggregateRoot: shared.NewBaseAggregateRootWithCreator(createdBy),
		CategoryID:        categoryID,
		AccountCode:       accountCode,
		Amount:            amount,
		ExpenseDate:       expenseDate,
		Beneficiary:       beneficiary,
		DocumentNumber:    documentNumber,
		Description:       description,
		Status:            ExpenseStatusRegistered,
	}, nil
}

// IsRegistered reports whether the expense still counts against the balance
func (e *Expense) IsRegistered() bool {
	return e.Status == ExpenseStatusRegistered
}

// Cancel takes the expense out of the cash balance. Idempotent calls fail
// so callers can surface the double-cancel to the operator.
func (e *Expense) Cancel(actor uuid.UUID) error {
	if e.Status == ExpenseStatusCancelled {
		return shared.ErrAlreadyVoided
	}
	now := time.Now()
	e.Status = ExpenseStatusCancelled
	e.CancelledAt = &now
	e.CancelledBy = &actor
	e.IncrementVersion()
	return nil
}
