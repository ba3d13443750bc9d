package billing

import (
	"fmt"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationInstruction is one caller-supplied line directing part of a
// payment at a specific charge.
type AllocationInstruction struct {
	ChargeID uuid.UUID
	Amount   decimal.Decimal
}

// AllocationService is a domain service that distributes a payment amount
// across charges. It owns the balancing rules:
//  1. a single line may not exceed the charge's remaining balance
//  2. lines must target charges of the contract's payer
//  3. the sum of lines plus any wallet top-up must equal the payment total
//
// Oldest-due-first ordering of the automatic path is the repository's
// responsibility; the service applies greedily in the order given.
type AllocationService struct{}

// NewAllocationService creates a new AllocationService
func NewAllocationService() *AllocationService {
	return &AllocationService{}
}

// ValidateInstructions checks caller-supplied allocation lines against the
// contract, the referenced charges and the payment total.
func (s *AllocationService) ValidateInstructions(
	contract *Contract,
	total decimal.Decimal,
	walletTopUp decimal.Decimal,
	instructions []AllocationInstruction,
	charges map[uuid.UUID]*Charge,
) error {
	if walletTopUp.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Wallet top-up cannot be negative")
	}

	sum := walletTopUp
	for _, in := range instructions {
		charge, ok := charges[in.ChargeID]
		if !ok {
			return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Charge %s not found", in.ChargeID))
		}
		if charge.PayerID != contract.PayerID {
			return shared.NewDomainError("FOREIGN_CHARGE",
				fmt.Sprintf("Charge %s does not belong to the contract's payer", in.ChargeID))
		}
		if !in.Amount.IsPositive() {
			return shared.NewDomainError("INVALID_AMOUNT", "Allocation amounts must be positive")
		}
		if in.Amount.GreaterThan(charge.RemainingBalance.Add(SettleTolerance)) {
			return shared.NewDomainError("ALLOCATION_EXCEEDS_BALANCE",
				fmt.Sprintf("Allocation %s exceeds remaining balance %s of charge %s",
					in.Amount.StringFixed(2), charge.RemainingBalance.StringFixed(2), in.ChargeID))
		}
		sum = sum.Add(in.Amount)
	}

	if sum.Sub(total).Abs().GreaterThan(BalanceTolerance) {
		return shared.NewDomainError("AMOUNT_MISMATCH",
			fmt.Sprintf("Allocation sum %s does not match payment total %s", sum.StringFixed(2), total.StringFixed(2)))
	}
	return nil
}

// ApplyInstructions applies validated instructions to their charges in order.
// It returns the unapplied remainder and the last charge touched.
func (s *AllocationService) ApplyInstructions(
	payment *Payment,
	instructions []AllocationInstruction,
	charges map[uuid.UUID]*Charge,
) (decimal.Decimal, *Charge, error) {
	remaining := payment.TotalAmount
	var last *Charge

	for _, in := range instructions {
		charge := charges[in.ChargeID]
		if charge == nil {
			return decimal.Zero, nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Charge %s not found", in.ChargeID))
		}
		applied, err := payment.Allocate(charge, valueobject.NewMoneyPEN(in.Amount))
		if err != nil {
			return decimal.Zero, nil, err
		}
		remaining = remaining.Sub(applied)
		last = charge
	}
	return remaining, last, nil
}

// DistributeAuto greedily applies the given amount across the charges,
// oldest first, until money or charges run out. It returns the unapplied
// remainder and the charges it touched, in application order.
func (s *AllocationService) DistributeAuto(
	payment *Payment,
	amount decimal.Decimal,
	charges []*Charge,
) (decimal.Decimal, []*Charge, error) {
	remaining := amount
	var touched []*Charge

	for _, charge := range charges {
		if remaining.LessThanOrEqual(BalanceTolerance) {
			break
		}
		if !charge.HasBalance() || !charge.Status.IsOpen() {
			continue
		}
		applied, err := payment.Allocate(charge, valueobject.NewMoneyPEN(remaining))
		if err != nil {
			return decimal.Zero, nil, err
		}
		remaining = remaining.Sub(applied)
		touched = append(touched, charge)
	}
	return remaining, touched, nil
}
