package billing

import (
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tolerances used across the billing domain. Settlement comparisons use a
// cent-level tolerance; sum checks across allocation lines use a tighter one.
var (
	SettleTolerance  = decimal.NewFromFloat(0.01)
	BalanceTolerance = decimal.NewFromFloat(0.001)
)

// ChargeStatus represents the lifecycle state of a charge
type ChargeStatus string

const (
	ChargeStatusPending       ChargeStatus = "pending"
	ChargeStatusPartiallyPaid ChargeStatus = "partially_paid"
	ChargeStatusPaid          ChargeStatus = "paid"
	ChargeStatusOverdue       ChargeStatus = "overdue"
	ChargeStatusVoided        ChargeStatus = "voided"
	ChargeStatusCancelled     ChargeStatus = "cancelled"
)

// IsValid checks if the status is a valid ChargeStatus
func (s ChargeStatus) IsValid() bool {
	switch s {
	case ChargeStatusPending, ChargeStatusPartiallyPaid, ChargeStatusPaid,
		ChargeStatusOverdue, ChargeStatusVoided, ChargeStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ChargeStatus
func (s ChargeStatus) String() string {
	return string(s)
}

// IsOpen returns true if the charge can still receive payments
func (s ChargeStatus) IsOpen() bool {
	return s == ChargeStatusPending || s == ChargeStatusPartiallyPaid || s == ChargeStatusOverdue
}

// IsTerminal returns true if the charge is in a terminal state
func (s ChargeStatus) IsTerminal() bool {
	return s == ChargeStatusPaid || s == ChargeStatusVoided || s == ChargeStatusCancelled
}

// Charge represents a billable obligation for one concept, one period,
// one unit and one payer.
type Charge struct {
	shared.BaseAggregateRoot
	UnitID           uuid.UUID       `json:"unit_id"`
	PayerID          uuid.UUID       `json:"payer_id"`
	ConceptID        uuid.UUID       `json:"concept_id"`
	Period           Period          `json:"period"`
	BaseAmount       decimal.Decimal `json:"base_amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Status           ChargeStatus    `json:"status"`
	DueDate          time.Time       `json:"due_date"`
}

// NewCharge creates a new pending charge with the full base amount outstanding
func NewCharge(unitID, payerID, conceptID uuid.UUID, period Period, baseAmount valueobject.Money, dueDate time.Time) (*Charge, error) {
	if unitID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_UNIT", "Unit ID cannot be empty")
	}
	if payerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PAYER", "Payer ID cannot be empty")
	}
	if conceptID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONCEPT", "Concept ID cannot be empty")
	}
	if period.IsZero() {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period is required")
	}
	if !baseAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Base amount must be positive")
	}

	return &Charge{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UnitID:            unitID,
		PayerID:           payerID,
		ConceptID:         conceptID,
		Period:            period,
		BaseAmount:        baseAmount.Amount(),
		RemainingBalance:  baseAmount.Amount(),
		Status:            ChargeStatusPending,
		DueDate:           dueDate,
	}, nil
}

// HasBalance reports whether any amount remains outstanding
func (ch *Charge) HasBalance() bool {
	return ch.RemainingBalance.GreaterThan(BalanceTolerance)
}

// ApplyAmount decreases the remaining balance by up to the given amount,
// clamping to the outstanding balance, and returns the amount actually applied.
func (ch *Charge) ApplyAmount(amount valueobject.Money) (decimal.Decimal, error) {
	if !ch.Status.IsOpen() {
		return decimal.Zero, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot apply payment to charge in %s status", ch.Status))
	}
	if !amount.IsPositive() {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Applied amount must be positive")
	}

	applied := decimal.Min(amount.Amount(), ch.RemainingBalance)
	ch.RemainingBalance = ch.RemainingBalance.Sub(applied)

	if ch.RemainingBalance.LessThanOrEqual(SettleTolerance) {
		ch.RemainingBalance = decimal.Zero
		ch.Status = ChargeStatusPaid
	} else {
		ch.Status = ChargeStatusPartiallyPaid
	}

	ch.UpdatedAt = time.Now()
	ch.IncrementVersion()
	return applied, nil
}

// RestoreAmount increases the remaining balance by the given amount,
// reversing a previously applied payment.
func (ch *Charge) RestoreAmount(amount valueobject.Money) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Restored amount must be positive")
	}

	ch.RemainingBalance = ch.RemainingBalance.Add(amount.Amount())
	if ch.RemainingBalance.GreaterThanOrEqual(ch.BaseAmount.Sub(SettleTolerance)) {
		ch.RemainingBalance = ch.BaseAmount
		ch.Status = ChargeStatusPending
	} else {
		ch.Status = ChargeStatusPartiallyPaid
	}

	ch.UpdatedAt = time.Now()
	ch.IncrementVersion()
	return nil
}

// MarkOverdue flips a pending charge past its due date to overdue.
// It is idempotent and has no effect on charges in any other state.
func (ch *Charge) MarkOverdue(today time.Time) bool {
	if ch.Status != ChargeStatusPending {
		return false
	}
	if !ch.DueDate.Before(today) {
		return false
	}
	ch.Status = ChargeStatusOverdue
	ch.UpdatedAt = time.Now()
	ch.IncrementVersion()
	return true
}

// Void administratively annuls the charge. Fully paid charges cannot be voided.
func (ch *Charge) Void() error {
	if ch.Status == ChargeStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Cannot void a fully paid charge")
	}
	if ch.Status == ChargeStatusVoided {
		return shared.NewDomainError("INVALID_STATE", "Charge is already voided")
	}
	ch.RemainingBalance = decimal.Zero
	ch.Status = ChargeStatusVoided
	ch.UpdatedAt = time.Now()
	ch.IncrementVersion()
	return nil
}

// Cancel writes off the charge. Only open charges with no payments applied
// can be cancelled.
func (ch *Charge) Cancel() error {
	if !ch.Status.IsOpen() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel charge in %s status", ch.Status))
	}
	if ch.RemainingBalance.LessThan(ch.BaseAmount) {
		return shared.NewDomainError("HAS_PAYMENTS", "Cannot cancel a charge with payments applied")
	}
	ch.RemainingBalance = decimal.Zero
	ch.Status = ChargeStatusCancelled
	ch.UpdatedAt = time.Now()
	ch.IncrementVersion()
	return nil
}
