package billing

import (
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractStatus represents the lifecycle state of a billing contract
type ContractStatus string

const (
	ContractStatusActive   ContractStatus = "ACTIVE"
	ContractStatusInactive ContractStatus = "INACTIVE"
)

// IsValid checks if the status is a valid ContractStatus
func (s ContractStatus) IsValid() bool {
	return s == ContractStatusActive || s == ContractStatusInactive
}

// String returns the string representation of ContractStatus
func (s ContractStatus) String() string {
	return string(s)
}

// Contract represents the billing relationship between a payer and a unit.
// It owns the recurring monthly amount and the wallet, a credit balance that
// offsets future charges automatically.
type Contract struct {
	shared.BaseAggregateRoot
	PayerID       uuid.UUID       `json:"payer_id"`
	UnitID        uuid.UUID       `json:"unit_id"`
	MonthlyAmount decimal.Decimal `json:"monthly_amount"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	Status        ContractStatus  `json:"status"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       *time.Time      `json:"end_date"`
}

// NewContract creates a new active contract
func NewContract(payerID, unitID uuid.UUID, monthlyAmount valueobject.Money, startDate time.Time) (*Contract, error) {
	if payerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PAYER", "Payer ID cannot be empty")
	}
	if unitID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_UNIT", "Unit ID cannot be empty")
	}
	if monthlyAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Monthly amount cannot be negative")
	}

	return &Contract{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PayerID:           payerID,
		UnitID:            unitID,
		MonthlyAmount:     monthlyAmount.Amount(),
		WalletBalance:     decimal.Zero,
		Status:            ContractStatusActive,
		StartDate:         startDate,
	}, nil
}

// IsActive returns true if the contract is currently active
func (c *Contract) IsActive() bool {
	return c.Status == ContractStatusActive
}

// IsCurrentAt reports whether the contract is in force at the given date
func (c *Contract) IsCurrentAt(at time.Time) bool {
	if !c.IsActive() {
		return false
	}
	if c.StartDate.After(at) {
		return false
	}
	if c.EndDate != nil && c.EndDate.Before(at) {
		return false
	}
	return true
}

// HasMonthlyAmount reports whether a recurring amount is configured
func (c *Contract) HasMonthlyAmount() bool {
	return c.MonthlyAmount.GreaterThan(decimal.Zero)
}

// CreditWallet adds the given amount to the wallet balance
func (c *Contract) CreditWallet(amount valueobject.Money) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Wallet credit must not be negative")
	}
	c.WalletBalance = c.WalletBalance.Add(amount.Amount())
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// DebitWallet removes the given amount from the wallet balance.
// The balance is allowed to dip slightly below zero within rounding tolerance
// and is clamped back to zero in that case.
func (c *Contract) DebitWallet(amount valueobject.Money) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Wallet debit must not be negative")
	}
	next := c.WalletBalance.Sub(amount.Amount())
	if next.LessThan(SettleTolerance.Neg()) {
		return shared.NewDomainError("INSUFFICIENT_WALLET",
			fmt.Sprintf("Wallet balance %s is less than debit %s", c.WalletBalance.StringFixed(2), amount.Amount().StringFixed(2)))
	}
	if next.IsNegative() {
		next = decimal.Zero
	}
	c.WalletBalance = next
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// AdjustWallet applies a signed net adjustment to the wallet balance.
// Used by payment voidance, where wallet usage and wallet contribution
// must be reversed as a single net movement.
func (c *Contract) AdjustWallet(delta decimal.Decimal) {
	next := c.WalletBalance.Add(delta)
	if next.IsNegative() && next.GreaterThanOrEqual(SettleTolerance.Neg()) {
		next = decimal.Zero
	}
	c.WalletBalance = next
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// Terminate soft-ends the contract
func (c *Contract) Terminate(endDate time.Time) error {
	if !c.IsActive() {
		return shared.NewDomainError("INVALID_STATE", "Contract is not active")
	}
	if endDate.Before(c.StartDate) {
		return shared.NewDomainError("INVALID_DATE", "End date cannot precede start date")
	}
	c.Status = ContractStatusInactive
	c.EndDate = &endDate
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// SetMonthlyAmount updates the recurring monthly amount
func (c *Contract) SetMonthlyAmount(amount valueobject.Money) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Monthly amount cannot be negative")
	}
	c.MonthlyAmount = amount.Amount()
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}
