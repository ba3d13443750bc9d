package persistence

import (
	"context"
	"errors"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var contractSortColumns = map[string]bool{
	"created_at":     true,
	"start_date":     true,
	"monthly_amount": true,
	"status":         true,
}

// GormContractRepository implements billing.ContractRepository using GORM
type GormContractRepository struct {
	db *gorm.DB
}

// NewGormContractRepository creates a new GormContractRepository
func NewGormContractRepository(db *gorm.DB) *GormContractRepository {
	return &GormContractRepository{db: db}
}

// FindByID finds a contract by ID
func (r *GormContractRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Contract, error) {
	var model models.ContractModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByUnit finds the single active contract for a unit
func (r *GormContractRepository) FindActiveByUnit(ctx context.Context, unitID uuid.UUID) (*billing.Contract, error) {
	var model models.ContractModel
	if err := r.db.WithContext(ctx).
		First(&model, "unit_id = ? AND status = ?", unitID, billing.ContractStatusActive).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByPayerAndUnit finds the active contract between a payer and a unit
func (r *GormContractRepository) FindActiveByPayerAndUnit(ctx context.Context, payerID, unitID uuid.UUID) (*billing.Contract, error) {
	var model models.ContractModel
	if err := r.db.WithContext(ctx).
		First(&model, "payer_id = ? AND unit_id = ? AND status = ?",
			payerID, unitID, billing.ContractStatusActive).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllActive finds all active contracts
func (r *GormContractRepository) FindAllActive(ctx context.Context) ([]billing.Contract, error) {
	var contractModels []models.ContractModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", billing.ContractStatusActive).
		Order("created_at ASC").
		Find(&contractModels).Error; err != nil {
		return nil, err
	}
	return toDomainContracts(contractModels), nil
}

// FindAll finds contracts with filtering
func (r *GormContractRepository) FindAll(ctx context.Context, filter billing.ContractFilter) ([]billing.Contract, error) {
	query := r.db.WithContext(ctx).Model(&models.ContractModel{})

	if filter.PayerID != nil {
		query = query.Where("payer_id = ?", *filter.PayerID)
	}
	if filter.UnitID != nil {
		query = query.Where("unit_id = ?", *filter.UnitID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	query = query.Order(orderClause(filter.Filter, contractSortColumns))
	if filter.PageSize > 0 {
		query = query.Limit(filter.Limit()).Offset(filter.Offset())
	}

	var contractModels []models.ContractModel
	if err := query.Find(&contractModels).Error; err != nil {
		return nil, err
	}
	return toDomainContracts(contractModels), nil
}

// ExistsActiveForUnit checks whether a unit already has an active contract
func (r *GormContractRepository) ExistsActiveForUnit(ctx context.Context, unitID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ContractModel{}).
		Where("unit_id = ? AND status = ?", unitID, billing.ContractStatusActive).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a contract
func (r *GormContractRepository) Save(ctx context.Context, contract *billing.Contract) error {
	model := models.ContractModelFromDomain(contract)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking. The domain increments the
// version on every mutation, so the guard accepts any in-memory version
// strictly ahead of the stored one.
func (r *GormContractRepository) SaveWithLock(ctx context.Context, contract *billing.Contract) error {
	model := models.ContractModelFromDomain(contract)
	result := r.db.WithContext(ctx).
		Model(&models.ContractModel{}).
		Where("id = ? AND version < ?", contract.ID, contract.Version).
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

func toDomainContracts(contractModels []models.ContractModel) []billing.Contract {
	contracts := make([]billing.Contract, len(contractModels))
	for i := range contractModels {
		contracts[i] = *contractModels[i].ToDomain()
	}
	return contracts
}
