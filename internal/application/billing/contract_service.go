package billing

import (
	"context"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/billing/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ContractService manages payer-unit contracts and their wallets
type ContractService struct {
	store  billing.Store
	logger *zap.Logger
}

// NewContractService creates a new ContractService
func NewContractService(store billing.Store, logger *zap.Logger) *ContractService {
	return &ContractService{
		store:  store,
		logger: logger,
	}
}

// CreateContractRequest represents a request to open a contract
type CreateContractRequest struct {
	PayerID       uuid.UUID
	UnitID        uuid.UUID
	MonthlyAmount decimal.Decimal
	StartDate     time.Time
}

// Create opens a contract for a unit. A unit holds at most one active
// contract; the check and the insert run in the same transaction, backed
// by a partial unique index on the table.
func (s *ContractService) Create(ctx context.Context, req CreateContractRequest) (*billing.Contract, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "contract", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrUnitID, req.UnitID.String(),
		"payer_id", req.PayerID.String(),
	)

	var contract *billing.Contract
	err := s.store.InTransaction(ctx, func(tx billing.Store) error {
		exists, err := tx.Contracts().ExistsActiveForUnit(ctx, req.UnitID)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError("INVALID_STATE", "Unit already has an active contract")
		}

		contract, err = billing.NewContract(req.PayerID, req.UnitID,
			valueobject.NewMoneyPEN(req.MonthlyAmount), req.StartDate)
		if err != nil {
			return err
		}
		return tx.Contracts().Save(ctx, contract)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("contract created",
		zap.String("contract_id", contract.ID.String()),
		zap.String("unit_id", req.UnitID.String()),
	)
	return contract, nil
}

// Terminate soft-ends a contract at the given date
func (s *ContractService) Terminate(ctx context.Context, contractID uuid.UUID, endDate time.Time) (*billing.Contract, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "contract", "terminate")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrContractID, contractID.String())

	var contract *billing.Contract
	err := s.store.InTransaction(ctx, func(tx billing.Store) error {
		var err error
		contract, err = tx.Contracts().FindByID(ctx, contractID)
		if err != nil {
			return err
		}
		if err := contract.Terminate(endDate); err != nil {
			return err
		}
		return tx.Contracts().SaveWithLock(ctx, contract)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("contract terminated", zap.String("contract_id", contractID.String()))
	return contract, nil
}

// SetMonthlyAmount updates the recurring amount used for generation and
// carry-forward
func (s *ContractService) SetMonthlyAmount(ctx context.Context, contractID uuid.UUID, amount decimal.Decimal) (*billing.Contract, error) {
	var contract *billing.Contract
	err := s.store.InTransaction(ctx, func(tx billing.Store) error {
		var err error
		contract, err = tx.Contracts().FindByID(ctx, contractID)
		if err != nil {
			return err
		}
		if err := contract.SetMonthlyAmount(valueobject.NewMoneyPEN(amount)); err != nil {
			return err
		}
		return tx.Contracts().SaveWithLock(ctx, contract)
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}

// Get fetches one contract by ID
func (s *ContractService) Get(ctx context.Context, id uuid.UUID) (*billing.Contract, error) {
	return s.store.Contracts().FindByID(ctx, id)
}

// List fetches contracts matching the filter
func (s *ContractService) List(ctx context.Context, filter billing.ContractFilter) ([]billing.Contract, error) {
	return s.store.Contracts().FindAll(ctx, filter)
}
