package billing

import (
	"context"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ContractFilter defines filtering options for contract queries
type ContractFilter struct {
	shared.Filter
	PayerID *uuid.UUID
	UnitID  *uuid.UUID
	Status  *ContractStatus
}

// ChargeFilter defines filtering options for charge queries
type ChargeFilter struct {
	shared.Filter
	PayerID *uuid.UUID
	UnitID  *uuid.UUID
	Status  *ChargeStatus
	Period  *Period
	DueFrom *time.Time
	DueTo   *time.Time
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	ContractID *uuid.UUID
	Status     *PaymentStatus
	Method     *PaymentMethod
	FromDate   *time.Time
	ToDate     *time.Time
}

// ContractRepository defines the interface for contract persistence
type ContractRepository interface {
	// FindByID finds a contract by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Contract, error)

	// FindActiveByUnit finds the single active contract for a unit
	FindActiveByUnit(ctx context.Context, unitID uuid.UUID) (*Contract, error)

	// FindActiveByPayerAndUnit finds the active contract between a payer and a unit
	FindActiveByPayerAndUnit(ctx context.Context, payerID, unitID uuid.UUID) (*Contract, error)

	// FindAllActive finds all active contracts
	FindAllActive(ctx context.Context) ([]Contract, error)

	// FindAll finds contracts with filtering
	FindAll(ctx context.Context, filter ContractFilter) ([]Contract, error)

	// ExistsActiveForUnit checks whether a unit already has an active contract
	ExistsActiveForUnit(ctx context.Context, unitID uuid.UUID) (bool, error)

	// Save creates or updates a contract
	Save(ctx context.Context, contract *Contract) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, contract *Contract) error
}

// ChargeRepository defines the interface for charge persistence
type ChargeRepository interface {
	// FindByID finds a charge by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Charge, error)

	// FindByIDs finds charges by ID set
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Charge, error)

	// FindOutstanding finds a payer/unit's open charges with a balance,
	// ordered by due date ascending with id as a stable tie-break
	FindOutstanding(ctx context.Context, payerID, unitID uuid.UUID) ([]Charge, error)

	// FindLiveByUnitConceptPeriod finds the non-voided charge for the
	// (unit, concept, period) key, or ErrNotFound
	FindLiveByUnitConceptPeriod(ctx context.Context, unitID, conceptID uuid.UUID, period Period) (*Charge, error)

	// LatestPeriod returns the most recent non-voided period for a
	// unit/concept pair; the zero Period when none exists
	LatestPeriod(ctx context.Context, unitID, conceptID uuid.UUID) (Period, error)

	// FindPendingDueBefore finds pending charges whose due date has passed
	FindPendingDueBefore(ctx context.Context, date time.Time) ([]Charge, error)

	// FindAll finds charges with filtering
	FindAll(ctx context.Context, filter ChargeFilter) ([]Charge, error)

	// Create inserts a new charge
	Create(ctx context.Context, charge *Charge) error

	// Save creates or updates a charge
	Save(ctx context.Context, charge *Charge) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, charge *Charge) error
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by ID, allocations included
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByIDs finds payments by ID set, allocations included
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Payment, error)

	// FindByContract finds payments for a contract
	FindByContract(ctx context.Context, contractID uuid.UUID, filter PaymentFilter) ([]Payment, error)

	// FindAll finds payments with filtering
	FindAll(ctx context.Context, filter PaymentFilter) ([]Payment, error)

	// FindUnsealedCash finds applied cash payments not yet linked to a deposit
	FindUnsealedCash(ctx context.Context) ([]Payment, error)

	// Create inserts the payment header and all of its allocation lines
	Create(ctx context.Context, payment *Payment) error

	// SaveWithLock saves the header and line statuses with optimistic locking
	SaveWithLock(ctx context.Context, payment *Payment) error

	// Delete physically removes a payment header without allocations
	Delete(ctx context.Context, id uuid.UUID) error
}

// Store bundles the billing repositories behind a single transactional
// boundary. InTransaction runs fn against a store whose repositories share
// one database transaction; any error rolls the whole unit of work back.
type Store interface {
	Contracts() ContractRepository
	Charges() ChargeRepository
	Payments() PaymentRepository
	InTransaction(ctx context.Context, fn func(Store) error) error
}
