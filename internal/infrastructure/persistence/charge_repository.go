package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var chargeSortColumns = map[string]bool{
	"created_at":        true,
	"due_date":          true,
	"period":            true,
	"base_amount":       true,
	"remaining_balance": true,
	"status":            true,
}

// GormChargeRepository implements billing.ChargeRepository using GORM
type GormChargeRepository struct {
	db *gorm.DB
}

// NewGormChargeRepository creates a new GormChargeRepository
func NewGormChargeRepository(db *gorm.DB) *GormChargeRepository {
	return &GormChargeRepository{db: db}
}

// FindByID finds a charge by ID
func (r *GormChargeRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Charge, error) {
	var model models.ChargeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByIDs finds charges by ID set
func (r *GormChargeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]billing.Charge, error) {
	if len(ids) == 0 {
		return []billing.Charge{}, nil
	}
	var chargeModels []models.ChargeModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&chargeModels).Error; err != nil {
		return nil, err
	}
	return toDomainCharges(chargeModels)
}

// FindOutstanding finds a payer/unit's open charges with a balance, ordered
// by due date ascending with id as a stable tie-break
func (r *GormChargeRepository) FindOutstanding(ctx context.Context, payerID, unitID uuid.UUID) ([]billing.Charge, error) {
	var chargeModels []models.ChargeModel
	if err := r.db.WithContext(ctx).
		Where("payer_id = ? AND unit_id = ?", payerID, unitID).
		Where("status IN ?", []billing.ChargeStatus{
			billing.ChargeStatusPending,
			billing.ChargeStatusPartiallyPaid,
			billing.ChargeStatusOverdue,
		}).
		Where("remaining_balance > 0").
		Order("due_date ASC, id ASC").
		Find(&chargeModels).Error; err != nil {
		return nil, err
	}
	return toDomainCharges(chargeModels)
}

// FindLiveByUnitConceptPeriod finds the non-voided charge for the
// (unit, concept, period) key, or ErrNotFound
func (r *GormChargeRepository) FindLiveByUnitConceptPeriod(ctx context.Context, unitID, conceptID uuid.UUID, period billing.Period) (*billing.Charge, error) {
	var model models.ChargeModel
	if err := r.db.WithContext(ctx).
		First(&model, "unit_id = ? AND concept_id = ? AND period = ? AND status <> ?",
			unitID, conceptID, period.String(), billing.ChargeStatusVoided).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// LatestPeriod returns the most recent non-voided period for a unit/concept
// pair; the zero Period when none exists
func (r *GormChargeRepository) LatestPeriod(ctx context.Context, unitID, conceptID uuid.UUID) (billing.Period, error) {
	var latest *string
	err := r.db.WithContext(ctx).
		Model(&models.ChargeModel{}).
		Where("unit_id = ? AND concept_id = ? AND status <> ?",
			unitID, conceptID, billing.ChargeStatusVoided).
		Select("MAX(period)").
		Scan(&latest).Error
	if err != nil {
		return billing.Period{}, err
	}
	if latest == nil || *latest == "" {
		return billing.Period{}, nil
	}
	return billing.ParsePeriod(*latest)
}

// FindPendingDueBefore finds pending charges whose due date has passed
func (r *GormChargeRepository) FindPendingDueBefore(ctx context.Context, date time.Time) ([]billing.Charge, error) {
	var chargeModels []models.ChargeModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", billing.ChargeStatusPending, date).
		Order("due_date ASC").
		Find(&chargeModels).Error; err != nil {
		return nil, err
	}
	return toDomainCharges(chargeModels)
}

// FindAll finds charges with filtering
func (r *GormChargeRepository) FindAll(ctx context.Context, filter billing.ChargeFilter) ([]billing.Charge, error) {
	query := r.db.WithContext(ctx).Model(&models.ChargeModel{})

	if filter.PayerID != nil {
		query = query.Where("payer_id = ?", *filter.PayerID)
	}
	if filter.UnitID != nil {
		query = query.Where("unit_id = ?", *filter.UnitID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Period != nil {
		query = query.Where("period = ?", filter.Period.String())
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}

	query = query.Order(orderClause(filter.Filter, chargeSortColumns))
	if filter.PageSize > 0 {
		query = query.Limit(filter.Limit()).Offset(filter.Offset())
	}

	var chargeModels []models.ChargeModel
	if err := query.Find(&chargeModels).Error; err != nil {
		return nil, err
	}
	return toDomainCharges(chargeModels)
}

// Create inserts a new charge
func (r *GormChargeRepository) Create(ctx context.Context, charge *billing.Charge) error {
	model := models.ChargeModelFromDomain(charge)
	return r.db.WithContext(ctx).Create(model).Error
}

// Save creates or updates a charge
func (r *GormChargeRepository) Save(ctx context.Context, charge *billing.Charge) error {
	model := models.ChargeModelFromDomain(charge)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking. The domain increments the
// version on every mutation, so the guard accepts any in-memory version
// strictly ahead of the stored one.
func (r *GormChargeRepository) SaveWithLock(ctx context.Context, charge *billing.Charge) error {
	model := models.ChargeModelFromDomain(charge)
	result := r.db.WithContext(ctx).
		Model(&models.ChargeModel{}).
		Where("id = ? AND version < ?", charge.ID, charge.Version).
		Select("*").Omit("id", "created_at", "created_by").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func toDomainCharges(chargeModels []models.ChargeModel) ([]billing.Charge, error) {
	charges := make([]billing.Charge, len(chargeModels))
	for i := range chargeModels {
		charge, err := chargeModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		charges[i] = *charge
	}
	return charges, nil
}
