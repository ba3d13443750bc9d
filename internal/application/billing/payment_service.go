package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/billing/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// carryForwardHorizon bounds the future-period loop so a wall of already
// settled future charges cannot spin it forever.
const carryForwardHorizon = 120

// BalanceInvalidator drops a cached cash balance so the next read derives
// it fresh. Applying, voiding or deleting a cash payment moves the cash
// position, and a stale cached balance would let the funds gate pass
// against money that is no longer there.
type BalanceInvalidator interface {
	Invalidate(ctx context.Context) error
}

// PaymentService registers payments, allocates them across charges and
// reverses them.
type PaymentService struct {
	store   billing.Store
	alloc   *billing.AllocationService
	balance BalanceInvalidator
	logger  *zap.Logger
}

// NewPaymentService creates a new PaymentService. The balance invalidator
// is optional.
func NewPaymentService(store billing.Store, alloc *billing.AllocationService, balance BalanceInvalidator, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		store:   store,
		alloc:   alloc,
		balance: balance,
		logger:  logger,
	}
}

func (s *PaymentService) invalidateBalance(ctx context.Context) {
	if s.balance == nil {
		return
	}
	if err := s.balance.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate cash balance cache", zap.Error(err))
	}
}

// AllocationLine is one explicit instruction directing part of a payment
// at a charge.
type AllocationLine struct {
	ChargeID uuid.UUID       `json:"charge_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// ApplyPaymentRequest represents a request to register and allocate a payment
type ApplyPaymentRequest struct {
	ContractID     uuid.UUID
	Method         billing.PaymentMethod
	TotalAmount    decimal.Decimal
	ReceiptDate    time.Time
	DocumentNumber string
	Description    string
	// Allocations empty means automatic oldest-due-first distribution
	Allocations []AllocationLine
	// WalletTopUp is the part of the total the payer wants parked in the
	// wallet on the explicit path
	WalletTopUp decimal.Decimal
	// WalletUse funds part of the settlement from the wallet instead of
	// fresh money
	WalletUse decimal.Decimal
	// ConceptID anchors carry-forward when the contract has no charges yet
	ConceptID *uuid.UUID
	ActorID   uuid.UUID
}

// ApplyPaymentResult reports where the money went
type ApplyPaymentResult struct {
	Payment          *billing.Payment `json:"payment"`
	AllocatedTotal   decimal.Decimal  `json:"allocated_total"`
	WalletCredited   decimal.Decimal  `json:"wallet_credited"`
	WalletUsed       decimal.Decimal  `json:"wallet_used"`
	GeneratedCharges []uuid.UUID      `json:"generated_charges,omitempty"`
}

// Apply registers a payment and distributes it across the contract's
// charges in a single unit of work: header, allocation lines, charge
// mutations, generated future charges and wallet movements commit together
// or not at all.
func (s *PaymentService) Apply(ctx context.Context, req ApplyPaymentRequest) (*ApplyPaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "apply")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrContractID, req.ContractID.String(),
		telemetry.SpanAttrAmount, req.TotalAmount.String(),
		telemetry.SpanAttrMethod, string(req.Method),
		"explicit_lines", len(req.Allocations),
	)

	if req.WalletUse.IsNegative() || req.WalletTopUp.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Wallet amounts cannot be negative")
	}

	var result *ApplyPaymentResult
	err := s.store.InTransaction(ctx, func(tx billing.Store) error {
		var txErr error
		result, txErr = s.applyInTx(ctx, tx, req)
		return txErr
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if req.Method.IsCash() {
		s.invalidateBalance(ctx)
	}
	s.logger.Info("payment applied",
		zap.String("payment_id", result.Payment.ID.String()),
		zap.String("contract_id", req.ContractID.String()),
		zap.String("total", req.TotalAmount.StringFixed(2)),
		zap.String("allocated", result.AllocatedTotal.StringFixed(2)),
		zap.String("wallet_credited", result.WalletCredited.StringFixed(2)),
		zap.Int("generated_charges", len(result.GeneratedCharges)),
	)
	return result, nil
}

func (s *PaymentService) applyInTx(ctx context.Context, tx billing.Store, req ApplyPaymentRequest) (*ApplyPaymentResult, error) {
	contract, err := tx.Contracts().FindByID(ctx, req.ContractID)
	if err != nil {
		return nil, err
	}
	if !contract.IsActive() {
		return nil, shared.NewDomainError("INVALID_STATE", "Contract is not active")
	}

	payment, err := billing.NewPayment(req.ContractID, req.Method,
		valueobject.NewMoneyPEN(req.TotalAmount), req.ReceiptDate, req.ActorID)
	if err != nil {
		return nil, err
	}
	payment.DocumentNumber = req.DocumentNumber
	payment.Description = req.Description

	// Wallet-funded portion comes out of the wallet up front.
	if req.WalletUse.GreaterThan(billing.BalanceTolerance) {
		if err := contract.DebitWallet(valueobject.NewMoneyPEN(req.WalletUse)); err != nil {
			return nil, err
		}
		if err := payment.UseWallet(req.WalletUse); err != nil {
			return nil, err
		}
	}

	// Everything allocatable: fresh money plus the wallet-funded portion.
	available := req.TotalAmount.Add(req.WalletUse)

	var (
		remaining decimal.Decimal
		touched   []*billing.Charge
		generated []uuid.UUID
	)

	if len(req.Allocations) > 0 {
		remaining, touched, err = s.applyExplicit(ctx, tx, contract, payment, req, available)
	} else {
		remaining, touched, generated, err = s.applyAuto(ctx, tx, contract, payment, req, available)
	}
	if err != nil {
		return nil, err
	}

	// Remainder rule: whatever no charge absorbed lands in the wallet.
	walletCredited := decimal.Zero
	if remaining.GreaterThan(billing.BalanceTolerance) {
		if err := payment.BookWalletContribution(remaining); err != nil {
			return nil, err
		}
		if err := contract.CreditWallet(valueobject.NewMoneyPEN(remaining)); err != nil {
			return nil, err
		}
		walletCredited = remaining
	}

	if err := payment.MarkApplied(); err != nil {
		return nil, err
	}

	for _, charge := range touched {
		if err := tx.Charges().SaveWithLock(ctx, charge); err != nil {
			return nil, err
		}
	}
	if err := tx.Contracts().SaveWithLock(ctx, contract); err != nil {
		return nil, err
	}
	if err := tx.Payments().Create(ctx, payment); err != nil {
		return nil, err
	}

	return &ApplyPaymentResult{
		Payment:          payment,
		AllocatedTotal:   payment.AllocatedTotal(),
		WalletCredited:   walletCredited,
		WalletUsed:       req.WalletUse,
		GeneratedCharges: generated,
	}, nil
}

// applyExplicit validates and applies caller-directed allocation lines.
func (s *PaymentService) applyExplicit(
	ctx context.Context,
	tx billing.Store,
	contract *billing.Contract,
	payment *billing.Payment,
	req ApplyPaymentRequest,
	available decimal.Decimal,
) (decimal.Decimal, []*billing.Charge, error) {
	ids := make([]uuid.UUID, 0, len(req.Allocations))
	instructions := make([]billing.AllocationInstruction, 0, len(req.Allocations))
	for _, line := range req.Allocations {
		ids = append(ids, line.ChargeID)
		instructions = append(instructions, billing.AllocationInstruction{
			ChargeID: line.ChargeID,
			Amount:   line.Amount,
		})
	}

	found, err := tx.Charges().FindByIDs(ctx, ids)
	if err != nil {
		return decimal.Zero, nil, err
	}
	charges := make(map[uuid.UUID]*billing.Charge, len(found))
	touched := make([]*billing.Charge, 0, len(found))
	for i := range found {
		charges[found[i].ID] = &found[i]
		touched = append(touched, &found[i])
	}

	if err := s.alloc.ValidateInstructions(contract, available, req.WalletTopUp, instructions, charges); err != nil {
		return decimal.Zero, nil, err
	}

	if _, _, err := s.alloc.ApplyInstructions(payment, instructions, charges); err != nil {
		return decimal.Zero, nil, err
	}

	remaining := available.Sub(payment.AllocatedTotal())
	return remaining, touched, nil
}

// applyAuto distributes the payment oldest-due-first across outstanding
// charges, then carries any surplus forward into future periods.
func (s *PaymentService) applyAuto(
	ctx context.Context,
	tx billing.Store,
	contract *billing.Contract,
	payment *billing.Payment,
	req ApplyPaymentRequest,
	available decimal.Decimal,
) (decimal.Decimal, []*billing.Charge, []uuid.UUID, error) {
	outstanding, err := tx.Charges().FindOutstanding(ctx, contract.PayerID, contract.UnitID)
	if err != nil {
		return decimal.Zero, nil, nil, err
	}

	charges := make([]*billing.Charge, 0, len(outstanding))
	for i := range outstanding {
		charges = append(charges, &outstanding[i])
	}

	remaining, touched, err := s.alloc.DistributeAuto(payment, available, charges)
	if err != nil {
		return decimal.Zero, nil, nil, err
	}

	var last *billing.Charge
	if len(touched) > 0 {
		last = touched[len(touched)-1]
	}

	remaining, futureTouched, generated, err := s.carryForward(ctx, tx, contract, payment, req, remaining, last)
	if err != nil {
		return decimal.Zero, nil, nil, err
	}
	touched = append(touched, futureTouched...)
	return remaining, touched, generated, nil
}

// carryForward advances the surplus period by period past the last touched
// charge, settling existing future charges and minting new ones from the
// contract's monthly amount. A new future charge is only created while the
// surplus still covers it in full; a smaller tail belongs in the wallet.
func (s *PaymentService) carryForward(
	ctx context.Context,
	tx billing.Store,
	contract *billing.Contract,
	payment *billing.Payment,
	req ApplyPaymentRequest,
	remaining decimal.Decimal,
	last *billing.Charge,
) (decimal.Decimal, []*billing.Charge, []uuid.UUID, error) {
	var (
		period    billing.Period
		conceptID uuid.UUID
		touched   []*billing.Charge
		generated []uuid.UUID
	)

	switch {
	case last != nil:
		period = last.Period
		conceptID = last.ConceptID
	case req.ConceptID != nil:
		period = billing.PeriodOf(time.Now())
		conceptID = *req.ConceptID
	default:
		// Nothing to anchor future periods on; the surplus stays for the wallet.
		return remaining, nil, nil, nil
	}

	for hops := 0; remaining.GreaterThan(billing.BalanceTolerance) && hops < carryForwardHorizon; hops++ {
		period = period.Next()

		charge, err := tx.Charges().FindLiveByUnitConceptPeriod(ctx, contract.UnitID, conceptID, period)
		minted := false
		if errors.Is(err, shared.ErrNotFound) {
			if !contract.HasMonthlyAmount() {
				break
			}
			if remaining.LessThan(contract.MonthlyAmount.Sub(billing.SettleTolerance)) {
				break
			}
			charge, err = billing.NewCharge(contract.UnitID, contract.PayerID, conceptID, period,
				valueobject.NewMoneyPEN(contract.MonthlyAmount), period.DueDate(defaultDueDay))
			if err != nil {
				return decimal.Zero, nil, nil, err
			}
			minted = true
		} else if err != nil {
			return decimal.Zero, nil, nil, err
		} else if !charge.HasBalance() || !charge.Status.IsOpen() {
			continue
		}

		applied, err := payment.Allocate(charge, valueobject.NewMoneyPEN(remaining))
		if err != nil {
			return decimal.Zero, nil, nil, err
		}
		remaining = remaining.Sub(applied)

		if minted {
			// Insert after allocation so the stored balance reflects it.
			if err := tx.Charges().Create(ctx, charge); err != nil {
				return decimal.Zero, nil, nil, err
			}
			generated = append(generated, charge.ID)
		} else {
			touched = append(touched, charge)
		}
	}

	return remaining, touched, generated, nil
}

// Void reverses an applied payment: every applied line restores its
// charge's balance, the wallet absorbs the net movement, and the payment
// becomes terminally voided.
func (s *PaymentService) Void(ctx context.Context, paymentID, actorID uuid.UUID) (*billing.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "void")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, paymentID.String())

	var voided *billing.Payment
	err := s.store.InTransaction(ctx, func(tx billing.Store) error {
		payment, err := tx.Payments().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status == billing.PaymentStatusVoided {
			return shared.ErrAlreadyVoided
		}

		contract, err := tx.Contracts().FindByID(ctx, payment.ContractID)
		if err != nil {
			return err
		}

		for i := range payment.Allocations {
			line := &payment.Allocations[i]
			if !line.IsApplied() {
				continue
			}
			charge, err := tx.Charges().FindByID(ctx, line.ChargeID)
			if err != nil {
				return fmt.Errorf("failed to load charge %s for reversal: %w", line.ChargeID, err)
			}
			if err := charge.RestoreAmount(valueobject.NewMoneyPEN(line.AppliedAmount)); err != nil {
				return err
			}
			if err := tx.Charges().SaveWithLock(ctx, charge); err != nil {
				return err
			}
			line.MarkReversed()
		}

		walletDelta, err := payment.Void(actorID)
		if err != nil {
			return err
		}
		if !walletDelta.IsZero() {
			contract.AdjustWallet(walletDelta)
			if err := tx.Contracts().SaveWithLock(ctx, contract); err != nil {
				return err
			}
		}

		if err := tx.Payments().SaveWithLock(ctx, payment); err != nil {
			return err
		}
		voided = payment
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if voided.Method.IsCash() {
		s.invalidateBalance(ctx)
	}
	s.logger.Info("payment voided",
		zap.String("payment_id", paymentID.String()),
		zap.String("actor_id", actorID.String()),
	)
	return voided, nil
}

// Delete physically removes a payment header. Only payments that never
// produced an allocation line qualify; anything else must be voided so the
// audit trail survives.
func (s *PaymentService) Delete(ctx context.Context, paymentID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "delete")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, paymentID.String())

	var movedCash bool
	err := s.store.InTransaction(ctx, func(tx billing.Store) error {
		payment, err := tx.Payments().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if !payment.CanDelete() {
			return shared.NewDomainError("INVALID_STATE",
				"Payment has allocation lines and must be voided instead of deleted")
		}
		// A lineless cash payment (everything parked in the wallet) still
		// counts toward the cash position while applied.
		movedCash = payment.Method.IsCash() && payment.Status == billing.PaymentStatusApplied
		return tx.Payments().Delete(ctx, paymentID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if movedCash {
		s.invalidateBalance(ctx)
	}
	s.logger.Info("payment deleted", zap.String("payment_id", paymentID.String()))
	return nil
}

// GetPayment fetches one payment with its allocation lines
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	return s.store.Payments().FindByID(ctx, id)
}

// ListPayments fetches payments matching the filter
func (s *PaymentService) ListPayments(ctx context.Context, filter billing.PaymentFilter) ([]billing.Payment, error) {
	return s.store.Payments().FindAll(ctx, filter)
}
