package treasury

import (
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// reconcileTolerance is the break allowed between the voucher amount and
// the system sum of the sealed receipts (coin rounding at the teller).
var reconcileTolerance = decimal.NewFromFloat(0.10)

// DepositStatus represents the lifecycle state of a bank deposit
type DepositStatus string

const (
	DepositStatusConfirmed DepositStatus = "confirmed"
	DepositStatusCancelled DepositStatus = "cancelled"
)

// IsValid checks if the status is a valid deposit status
func (s DepositStatus) IsValid() bool {
	switch s {
	case DepositStatusConfirmed, DepositStatusCancelled:
		return true
	}
	return false
}

// Deposit represents cash swept out of the cashbox into a bank account.
// Confirmed deposits reduce the cash balance by their voucher amount.
type Deposit struct {
	shared.BaseAggregateRoot
	Amount             valueobject.Money
	DepositDate        time.Time
	ReferenceNumber    string
	Bank               string
	DestinationAccount string
	Status             DepositStatus
	PaymentIDs         []uuid.UUID
}

// NewDeposit creates a confirmed deposit after reconciling the voucher
// amount against systemTotal, the sum of the selected receipts.
func NewDeposit(amount valueobject.Money, depositDate time.Time, referenceNumber, bank, destinationAccount string, systemTotal valueobject.Money, createdBy uuid.UUID) (*Deposit, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "deposit amount must be positive")
	}
	if referenceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "deposit reference number is required")
	}
	if !amount.EqualsWithin(systemTotal, reconcileTolerance) {
		return nil, shared.NewDomainError("AMOUNT_MISMATCH",
			"voucher amount "+amount.String()+" does not reconcile with selected receipts "+systemTotal.String())
	}
	return &Deposit{
		BaseAggregateRoot:  shared.NewBaseAggregateRootWithCreator(createdBy),
		Amount:             amount,
		DepositDate:        depositDate,
		ReferenceNumber:    referenceNumber,
		Bank:               bank,
		DestinationAccount: destinationAccount,
		Status:             DepositStatusConfirmed,
	}, nil
}

// IsConfirmed reports whether the deposit reduces the cash balance
func (d *Deposit) IsConfirmed() bool {
	return d.Status == DepositStatusConfirmed
}

// LinkPayments records which receipts the deposit sealed
func (d *Deposit) LinkPayments(ids []uuid.UUID) {
	d.PaymentIDs = append(d.PaymentIDs[:0], ids...)
}
