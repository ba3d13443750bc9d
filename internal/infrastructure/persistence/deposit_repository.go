package persistence

import (
	"context"
	"errors"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/treasury"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var depositSortColumns = map[string]bool{
	"created_at":   true,
	"deposit_date": true,
	"amount":       true,
	"status":       true,
}

// GormDepositRepository implements treasury.DepositRepository using GORM
type GormDepositRepository struct {
	db *gorm.DB
}

// NewGormDepositRepository creates a new GormDepositRepository
func NewGormDepositRepository(db *gorm.DB) *GormDepositRepository {
	return &GormDepositRepository{db: db}
}

// FindByID finds a deposit by ID. The sealed receipt IDs live on
// payments.deposit_id, so they come back in a second query.
func (r *GormDepositRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.Deposit, error) {
	var model models.DepositModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	deposit := model.ToDomain()

	var paymentIDs []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("deposit_id = ?", id).
		Order("receipt_date ASC").
		Pluck("id", &paymentIDs).Error
	if err != nil {
		return nil, err
	}
	deposit.PaymentIDs = paymentIDs
	return deposit, nil
}

// FindAll finds deposits with filtering
func (r *GormDepositRepository) FindAll(ctx context.Context, filter treasury.DepositFilter) ([]treasury.Deposit, error) {
	query := r.db.WithContext(ctx).Model(&models.DepositModel{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("deposit_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("deposit_date <= ?", *filter.ToDate)
	}

	query = query.Order(orderClause(filter.Filter, depositSortColumns))
	if filter.PageSize > 0 {
		query = query.Limit(filter.Limit()).Offset(filter.Offset())
	}

	var depositModels []models.DepositModel
	if err := query.Find(&depositModels).Error; err != nil {
		return nil, err
	}
	deposits := make([]treasury.Deposit, len(depositModels))
	for i := range depositModels {
		deposits[i] = *depositModels[i].ToDomain()
	}
	return deposits, nil
}

// Create inserts a new deposit
func (r *GormDepositRepository) Create(ctx context.Context, deposit *treasury.Deposit) error {
	model := models.DepositModelFromDomain(deposit)
	return r.db.WithContext(ctx).Create(model).Error
}
