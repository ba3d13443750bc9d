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

var paymentSortColumns = map[string]bool{
	"created_at":   true,
	"receipt_date": true,
	"total_amount": true,
	"status":       true,
	"method":       true,
}

// GormPaymentRepository implements billing.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID, allocations included
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds payments by ID set, allocations included
func (r *GormPaymentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]billing.Payment, error) {
	if len(ids) == 0 {
		return []billing.Payment{}, nil
	}
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		Where("id IN ?", ids).
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return toDomainPayments(paymentModels), nil
}

// FindByContract finds payments for a contract
func (r *GormPaymentRepository) FindByContract(ctx context.Context, contractID uuid.UUID, filter billing.PaymentFilter) ([]billing.Payment, error) {
	filter.ContractID = &contractID
	return r.FindAll(ctx, filter)
}

// FindAll finds payments with filtering
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter billing.PaymentFilter) ([]billing.Payment, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{})

	if filter.ContractID != nil {
		query = query.Where("contract_id = ?", *filter.ContractID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", *filter.Method)
	}
	if filter.FromDate != nil {
		query = query.Where("receipt_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("receipt_date <= ?", *filter.ToDate)
	}

	query = query.Order(orderClause(filter.Filter, paymentSortColumns))
	if filter.PageSize > 0 {
		query = query.Limit(filter.Limit()).Offset(filter.Offset())
	}

	var paymentModels []models.PaymentModel
	if err := query.Preload("Allocations").Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return toDomainPayments(paymentModels), nil
}

// FindUnsealedCash finds applied cash payments not yet linked to a deposit
func (r *GormPaymentRepository) FindUnsealedCash(ctx context.Context) ([]billing.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("method = ? AND status = ? AND deposit_id IS NULL",
			billing.MethodCash, billing.PaymentStatusApplied).
		Order("receipt_date ASC").
		Preload("Allocations").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return toDomainPayments(paymentModels), nil
}

// Create inserts the payment header and all of its allocation lines
func (r *GormPaymentRepository) Create(ctx context.Context, payment *billing.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	return r.db.WithContext(ctx).Create(model).Error
}

// SaveWithLock saves the header and line statuses with optimistic locking.
// The domain increments the version on every mutation, so the guard accepts
// any in-memory version strictly ahead of the stored one.
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *billing.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ? AND version < ?", payment.ID, payment.Version).
		Select("*").Omit("id", "created_at", "created_by", "Allocations").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	// Line statuses flip on reversal; persist them alongside the header.
	for i := range model.Allocations {
		line := &model.Allocations[i]
		if err := r.db.WithContext(ctx).
			Model(&models.AllocationModel{}).
			Where("id = ?", line.ID).
			Updates(map[string]any{
				"status":     line.Status,
				"updated_at": line.UpdatedAt,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete physically removes a payment header without allocations
func (r *GormPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PaymentModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toDomainPayments(paymentModels []models.PaymentModel) []billing.Payment {
	payments := make([]billing.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = *paymentModels[i].ToDomain()
	}
	return payments
}
