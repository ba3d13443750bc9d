package billing

import (
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a payment was received
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCard         PaymentMethod = "CARD"
	MethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the method is a valid PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCard, MethodOther:
		return true
	}
	return false
}

// IsCash returns true for payments received in physical cash
func (m PaymentMethod) IsCash() bool {
	return m == MethodCash
}

// AccountCode returns the accounting category the method books against
func (m PaymentMethod) AccountCode() string {
	switch m {
	case MethodCash:
		return "1001"
	case MethodBankTransfer:
		return "1002"
	case MethodCard:
		return "1003"
	default:
		return "1009"
	}
}

// PaymentStatus represents the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentStatusRegistered PaymentStatus = "REGISTERED"
	PaymentStatusApplied    PaymentStatus = "APPLIED"
	PaymentStatusVoided     PaymentStatus = "VOIDED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusRegistered || s == PaymentStatusApplied || s == PaymentStatusVoided
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// AllocationStatus represents the state of a single allocation line
type AllocationStatus string

const (
	AllocationStatusApplied  AllocationStatus = "APPLIED"
	AllocationStatusReversed AllocationStatus = "REVERSED"
)

// Allocation links a payment to one charge. It records the charge balance
// before and after application and is the audit trail that makes exact
// reversal possible. Lines are immutable except for the status flip on
// voidance.
type Allocation struct {
	shared.BaseEntity
	PaymentID     uuid.UUID        `json:"payment_id"`
	ChargeID      uuid.UUID        `json:"charge_id"`
	AppliedAmount decimal.Decimal  `json:"applied_amount"`
	BalanceBefore decimal.Decimal  `json:"balance_before"`
	BalanceAfter  decimal.Decimal  `json:"balance_after"`
	Status        AllocationStatus `json:"status"`
}

// IsApplied returns true if the line has not been reversed
func (a *Allocation) IsApplied() bool {
	return a.Status == AllocationStatusApplied
}

// MarkReversed flips the line to reversed
func (a *Allocation) MarkReversed() {
	a.Status = AllocationStatusReversed
	a.UpdatedAt = time.Now()
}

// Payment represents a single money-receipt event against a contract.
// WalletContribution is the part of the total that ended up in the contract
// wallet; WalletAmountUsed is the part of the allocation that was funded from
// the wallet rather than fresh money. Both are tracked so voidance can
// reverse the wallet as a net movement.
type Payment struct {
	shared.BaseAggregateRoot
	ContractID         uuid.UUID       `json:"contract_id"`
	Method             PaymentMethod   `json:"method"`
	AccountCode        string          `json:"account_code"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	WalletContribution decimal.Decimal `json:"wallet_contribution"`
	WalletAmountUsed   decimal.Decimal `json:"wallet_amount_used"`
	Status             PaymentStatus   `json:"status"`
	ReceiptDate        time.Time       `json:"receipt_date"`
	DocumentNumber     string          `json:"document_number"`
	Description        string          `json:"description"`
	DepositID          *uuid.UUID      `json:"deposit_id"`
	VoidedAt           *time.Time      `json:"voided_at"`
	VoidedBy           *uuid.UUID      `json:"voided_by"`
	Allocations        []Allocation    `json:"allocations"`
}

// NewPayment creates a new registered payment header with no allocations
func NewPayment(contractID uuid.UUID, method PaymentMethod, totalAmount valueobject.Money, receiptDate time.Time, createdBy uuid.UUID) (*Payment, error) {
	if contractID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONTRACT", "Contract ID cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", fmt.Sprintf("Unknown payment method %q", method))
	}
	if !totalAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	return &Payment{
		BaseAggregateRoot:  shared.NewBaseAggregateRootWithCreator(createdBy),
		ContractID:         contractID,
		Method:             method,
		AccountCode:        method.AccountCode(),
		TotalAmount:        totalAmount.Amount(),
		WalletContribution: decimal.Zero,
		WalletAmountUsed:   decimal.Zero,
		Status:             PaymentStatusRegistered,
		ReceiptDate:        receiptDate,
		Allocations:        []Allocation{},
	}, nil
}

// Allocate applies up to the given amount to the charge and records an
// allocation line with the charge balance before and after.
func (p *Payment) Allocate(charge *Charge, amount valueobject.Money) (decimal.Decimal, error) {
	if p.Status == PaymentStatusVoided {
		return decimal.Zero, shared.ErrAlreadyVoided
	}

	before := charge.RemainingBalance
	applied, err := charge.ApplyAmount(amount)
	if err != nil {
		return decimal.Zero, err
	}

	line := Allocation{
		BaseEntity:    shared.NewBaseEntity(),
		PaymentID:     p.ID,
		ChargeID:      charge.ID,
		AppliedAmount: applied,
		BalanceBefore: before,
		BalanceAfter:  charge.RemainingBalance,
		Status:        AllocationStatusApplied,
	}
	p.Allocations = append(p.Allocations, line)
	return applied, nil
}

// AllocatedTotal returns the sum of all non-reversed allocation lines
func (p *Payment) AllocatedTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range p.Allocations {
		if p.Allocations[i].IsApplied() {
			total = total.Add(p.Allocations[i].AppliedAmount)
		}
	}
	return total
}

// BookWalletContribution records the part of the total booked to the wallet
func (p *Payment) BookWalletContribution(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Wallet contribution cannot be negative")
	}
	p.WalletContribution = amount
	return nil
}

// UseWallet records the portion of the allocation funded from the wallet
func (p *Payment) UseWallet(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Wallet usage cannot be negative")
	}
	p.WalletAmountUsed = amount
	return nil
}

// MarkApplied transitions the payment to applied after verifying the
// balancing invariant: allocations plus wallet contribution must add up to
// the payment total within tolerance.
func (p *Payment) MarkApplied() error {
	if p.Status == PaymentStatusVoided {
		return shared.ErrAlreadyVoided
	}
	consumed := p.AllocatedTotal().Add(p.WalletContribution).Sub(p.WalletAmountUsed)
	if consumed.Sub(p.TotalAmount).Abs().GreaterThan(BalanceTolerance) {
		return shared.NewDomainError("AMOUNT_MISMATCH",
			fmt.Sprintf("Allocated %s plus wallet %s does not balance payment total %s",
				p.AllocatedTotal().StringFixed(2), p.WalletContribution.StringFixed(2), p.TotalAmount.StringFixed(2)))
	}
	p.Status = PaymentStatusApplied
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// Void transitions the payment to its terminal voided state and returns the
// net wallet adjustment the contract must absorb: wallet usage flows back in,
// the payment's own contribution flows out.
func (p *Payment) Void(actor uuid.UUID) (decimal.Decimal, error) {
	if p.Status == PaymentStatusVoided {
		return decimal.Zero, shared.ErrAlreadyVoided
	}

	now := time.Now()
	p.Status = PaymentStatusVoided
	p.VoidedAt = &now
	p.VoidedBy = &actor
	p.UpdatedAt = now
	p.IncrementVersion()

	return p.WalletAmountUsed.Sub(p.WalletContribution), nil
}

// CanDelete reports whether the payment may be physically deleted.
// Only headers that never produced an allocation line qualify.
func (p *Payment) CanDelete() bool {
	return len(p.Allocations) == 0
}

// LinkDeposit seals the payment against a bank deposit
func (p *Payment) LinkDeposit(depositID uuid.UUID) error {
	if p.Status == PaymentStatusVoided {
		return shared.NewDomainError("INVALID_STATE", "Voided payments cannot be deposited")
	}
	if p.DepositID != nil {
		return shared.NewDomainError("ALREADY_DEPOSITED",
			fmt.Sprintf("Payment %s is already linked to a deposit", p.ID))
	}
	p.DepositID = &depositID
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}
