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

// defaultDueDay is the day of month recurring charges fall due,
// clamped to shorter months.
const defaultDueDay = 5

// ChargeService generates and maintains billable charges
type ChargeService struct {
	store  billing.Store
	logger *zap.Logger
}

// NewChargeService creates a new ChargeService
func NewChargeService(store billing.Store, logger *zap.Logger) *ChargeService {
	return &ChargeService{
		store:  store,
		logger: logger,
	}
}

// GenerateChargeRequest represents a request to generate a single charge
type GenerateChargeRequest struct {
	UnitID    uuid.UUID
	ConceptID uuid.UUID
	Period    string
	// PayerID and Amount default from the unit's active contract when omitted
	PayerID *uuid.UUID
	Amount  *decimal.Decimal
	DueDate *time.Time
}

// GenerateChargeResult reports the created charge and any wallet offset
type GenerateChargeResult struct {
	Charge        *billing.Charge `json:"charge"`
	WalletApplied decimal.Decimal `json:"wallet_applied"`
}

// BatchOutcome classifies the fate of one item in a batch generation run
type BatchOutcome string

const (
	BatchOutcomeCreated  BatchOutcome = "CREATED"
	BatchOutcomeSkipped  BatchOutcome = "SKIPPED"
	BatchOutcomeExisting BatchOutcome = "EXISTING"
	BatchOutcomeError    BatchOutcome = "ERROR"
)

// BatchItemResult reports the outcome for one period or contract in a batch
type BatchItemResult struct {
	Period     string       `json:"period"`
	ContractID *uuid.UUID   `json:"contract_id,omitempty"`
	ChargeID   *uuid.UUID   `json:"charge_id,omitempty"`
	Outcome    BatchOutcome `json:"outcome"`
	Error      string       `json:"error,omitempty"`
}

// Generate creates one charge and immediately offsets it against the
// contract wallet. The insert and the wallet debit commit together.
func (s *ChargeService) Generate(ctx context.Context, req GenerateChargeRequest) (*GenerateChargeResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "charge", "generate")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrUnitID, req.UnitID.String(),
		telemetry.SpanAttrConceptID, req.ConceptID.String(),
		telemetry.SpanAttrPeriod, req.Period,
	)

	period, err := billing.ParsePeriod(req.Period)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *GenerateChargeResult
	err = s.store.InTransaction(ctx, func(tx billing.Store) error {
		var txErr error
		result, txErr = s.generateInTx(ctx, tx, req, period)
		return txErr
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("charge generated",
		zap.String("charge_id", result.Charge.ID.String()),
		zap.String("period", period.String()),
		zap.String("wallet_applied", result.WalletApplied.StringFixed(2)),
	)
	return result, nil
}

// generateInTx holds the shared create-and-offset path used by Generate and
// the batch entry points. It must run inside a transaction.
func (s *ChargeService) generateInTx(ctx context.Context, tx billing.Store, req GenerateChargeRequest, period billing.Period) (*GenerateChargeResult, error) {
	if _, err := tx.Charges().FindLiveByUnitConceptPeriod(ctx, req.UnitID, req.ConceptID, period); err == nil {
		return nil, shared.ErrDuplicateCharge
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	contract, err := tx.Contracts().FindActiveByUnit(ctx, req.UnitID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	payerID, amount, err := resolveChargeDefaults(req, contract)
	if err != nil {
		return nil, err
	}

	dueDate := period.DueDate(defaultDueDay)
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}

	charge, err := billing.NewCharge(req.UnitID, payerID, req.ConceptID, period,
		valueobject.NewMoneyPEN(amount), dueDate)
	if err != nil {
		return nil, err
	}

	walletApplied := decimal.Zero
	if contract != nil && contract.WalletBalance.GreaterThan(billing.BalanceTolerance) {
		offset := decimal.Min(contract.WalletBalance, charge.RemainingBalance)
		if _, err := charge.ApplyAmount(valueobject.NewMoneyPEN(offset)); err != nil {
			return nil, err
		}
		if err := contract.DebitWallet(valueobject.NewMoneyPEN(offset)); err != nil {
			return nil, err
		}
		if err := tx.Contracts().SaveWithLock(ctx, contract); err != nil {
			return nil, err
		}
		walletApplied = offset
	}

	if err := tx.Charges().Create(ctx, charge); err != nil {
		return nil, err
	}

	return &GenerateChargeResult{Charge: charge, WalletApplied: walletApplied}, nil
}

// resolveChargeDefaults fills payer and amount from the active contract
// when the request leaves them out.
func resolveChargeDefaults(req GenerateChargeRequest, contract *billing.Contract) (uuid.UUID, decimal.Decimal, error) {
	payerID := uuid.Nil
	if req.PayerID != nil {
		payerID = *req.PayerID
	} else if contract != nil {
		payerID = contract.PayerID
	}
	if payerID == uuid.Nil {
		return uuid.Nil, decimal.Zero, shared.NewDomainError("NOT_FOUND",
			"No payer given and no active contract for the unit")
	}

	var amount decimal.Decimal
	switch {
	case req.Amount != nil:
		amount = *req.Amount
	case contract != nil && contract.HasMonthlyAmount():
		amount = contract.MonthlyAmount
	default:
		return uuid.Nil, decimal.Zero, shared.NewDomainError("NOT_FOUND",
			"No amount given and no monthly amount configured for the unit")
	}
	return payerID, amount, nil
}

// GenerateBatchRequest asks for charges over consecutive periods
type GenerateBatchRequest struct {
	UnitID      uuid.UUID
	ConceptID   uuid.UUID
	StartPeriod string // optional; defaults to the month after the latest existing period
	Count       int
	PayerID     *uuid.UUID
	Amount      *decimal.Decimal
}

// GenerateBatch creates charges for consecutive periods, with the last day
// of each month as due date. Duplicates are skipped, other failures are
// recorded per item, and the run continues either way.
func (s *ChargeService) GenerateBatch(ctx context.Context, req GenerateBatchRequest) ([]BatchItemResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "charge", "generate_batch")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrUnitID, req.UnitID.String(),
		"count", req.Count,
	)

	if req.Count <= 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Batch count must be positive")
	}

	start, err := s.resolveStartPeriod(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	results := make([]BatchItemResult, 0, req.Count)
	period := start
	for i := 0; i < req.Count; i++ {
		dueDate := period.EndOfMonth()
		item := GenerateChargeRequest{
			UnitID:    req.UnitID,
			ConceptID: req.ConceptID,
			Period:    period.String(),
			PayerID:   req.PayerID,
			Amount:    req.Amount,
			DueDate:   &dueDate,
		}

		var created *GenerateChargeResult
		genErr := s.store.InTransaction(ctx, func(tx billing.Store) error {
			var txErr error
			created, txErr = s.generateInTx(ctx, tx, item, period)
			return txErr
		})

		switch {
		case genErr == nil:
			results = append(results, BatchItemResult{
				Period:   period.String(),
				ChargeID: &created.Charge.ID,
				Outcome:  BatchOutcomeCreated,
			})
		case errors.Is(genErr, shared.ErrDuplicateCharge):
			results = append(results, BatchItemResult{
				Period:  period.String(),
				Outcome: BatchOutcomeSkipped,
			})
		default:
			s.logger.Warn("batch charge generation item failed",
				zap.String("period", period.String()), zap.Error(genErr))
			results = append(results, BatchItemResult{
				Period:  period.String(),
				Outcome: BatchOutcomeError,
				Error:   genErr.Error(),
			})
		}
		period = period.Next()
	}
	return results, nil
}

// resolveStartPeriod picks the first period of a batch run: the explicit
// start, else the month after the latest non-voided charge, else the
// current month.
func (s *ChargeService) resolveStartPeriod(ctx context.Context, req GenerateBatchRequest) (billing.Period, error) {
	if req.StartPeriod != "" {
		return billing.ParsePeriod(req.StartPeriod)
	}
	latest, err := s.store.Charges().LatestPeriod(ctx, req.UnitID, req.ConceptID)
	if err != nil {
		return billing.Period{}, err
	}
	if latest.IsZero() {
		return billing.PeriodOf(time.Now()), nil
	}
	return latest.Next(), nil
}

// GenerateRetroactiveRequest backfills charges from an explicit start period
type GenerateRetroactiveRequest struct {
	PayerID     uuid.UUID
	UnitID      uuid.UUID
	ConceptID   uuid.UUID
	StartPeriod string
	Count       int
	Amount      *decimal.Decimal
}

// GenerateRetroactive backfills charges for past periods. Periods that
// already carry a charge are reported as EXISTING rather than skipped, so
// the caller can tell backfill gaps from already-billed months.
func (s *ChargeService) GenerateRetroactive(ctx context.Context, req GenerateRetroactiveRequest) ([]BatchItemResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "charge", "generate_retroactive")
	defer span.End()

	if req.Count <= 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Retroactive count must be positive")
	}
	start, err := billing.ParsePeriod(req.StartPeriod)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	results := make([]BatchItemResult, 0, req.Count)
	period := start
	for i := 0; i < req.Count; i++ {
		dueDate := period.EndOfMonth()
		item := GenerateChargeRequest{
			UnitID:    req.UnitID,
			ConceptID: req.ConceptID,
			Period:    period.String(),
			PayerID:   &req.PayerID,
			Amount:    req.Amount,
			DueDate:   &dueDate,
		}

		var created *GenerateChargeResult
		genErr := s.store.InTransaction(ctx, func(tx billing.Store) error {
			var txErr error
			created, txErr = s.generateInTx(ctx, tx, item, period)
			return txErr
		})

		switch {
		case genErr == nil:
			results = append(results, BatchItemResult{
				Period:   period.String(),
				ChargeID: &created.Charge.ID,
				Outcome:  BatchOutcomeCreated,
			})
		case errors.Is(genErr, shared.ErrDuplicateCharge):
			results = append(results, BatchItemResult{
				Period:  period.String(),
				Outcome: BatchOutcomeExisting,
			})
		default:
			results = append(results, BatchItemResult{
				Period:  period.String(),
				Outcome: BatchOutcomeError,
				Error:   genErr.Error(),
			})
		}
		period = period.Next()
	}
	return results, nil
}

// GenerateForAllActive creates the period's charge for every active
// contract current at that period, one outcome record per contract.
func (s *ChargeService) GenerateForAllActive(ctx context.Context, conceptID uuid.UUID, periodStr string) ([]BatchItemResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "charge", "generate_for_all_active")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPeriod, periodStr)

	period, err := billing.ParsePeriod(periodStr)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	contracts, err := s.store.Contracts().FindAllActive(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	results := make([]BatchItemResult, 0, len(contracts))
	for i := range contracts {
		contract := &contracts[i]
		if !contract.IsCurrentAt(period.EndOfMonth()) || !contract.HasMonthlyAmount() {
			continue
		}

		item := GenerateChargeRequest{
			UnitID:    contract.UnitID,
			ConceptID: conceptID,
			Period:    period.String(),
		}

		var created *GenerateChargeResult
		genErr := s.store.InTransaction(ctx, func(tx billing.Store) error {
			var txErr error
			created, txErr = s.generateInTx(ctx, tx, item, period)
			return txErr
		})

		result := BatchItemResult{Period: period.String(), ContractID: &contract.ID}
		switch {
		case genErr == nil:
			result.ChargeID = &created.Charge.ID
			result.Outcome = BatchOutcomeCreated
		case errors.Is(genErr, shared.ErrDuplicateCharge):
			result.Outcome = BatchOutcomeSkipped
		default:
			result.Outcome = BatchOutcomeError
			result.Error = genErr.Error()
		}
		results = append(results, result)
	}

	s.logger.Info("period charges generated for active contracts",
		zap.String("period", period.String()),
		zap.Int("contracts", len(results)),
	)
	return results, nil
}

// MarkOverdue sweeps pending charges whose due date has passed and flips
// them to overdue. The sweep is idempotent.
func (s *ChargeService) MarkOverdue(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "charge", "mark_overdue")
	defer span.End()

	today := time.Now()
	marked := 0
	err := s.store.InTransaction(ctx, func(tx billing.Store) error {
		due, err := tx.Charges().FindPendingDueBefore(ctx, today)
		if err != nil {
			return err
		}
		for i := range due {
			charge := &due[i]
			if !charge.MarkOverdue(today) {
				continue
			}
			if err := tx.Charges().SaveWithLock(ctx, charge); err != nil {
				return fmt.Errorf("failed to mark charge %s overdue: %w", charge.ID, err)
			}
			marked++
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	if marked > 0 {
		s.logger.Info("overdue sweep finished", zap.Int("marked", marked))
	}
	return marked, nil
}

// GetCharge fetches one charge by ID
func (s *ChargeService) GetCharge(ctx context.Context, id uuid.UUID) (*billing.Charge, error) {
	return s.store.Charges().FindByID(ctx, id)
}

// ListCharges fetches charges matching the filter
func (s *ChargeService) ListCharges(ctx context.Context, filter billing.ChargeFilter) ([]billing.Charge, error) {
	return s.store.Charges().FindAll(ctx, filter)
}

// VoidCharge administratively annuls a charge that has not been fully paid
func (s *ChargeService) VoidCharge(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "charge", "void")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrChargeID, id.String())

	err := s.store.InTransaction(ctx, func(tx billing.Store) error {
		charge, err := tx.Charges().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := charge.Void(); err != nil {
			return err
		}
		return tx.Charges().SaveWithLock(ctx, charge)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	s.logger.Info("charge voided", zap.String("charge_id", id.String()))
	return nil
}
