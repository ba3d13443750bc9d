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

var expenseSortColumns = map[string]bool{
	"created_at":   true,
	"expense_date": true,
	"amount":       true,
	"account_code": true,
	"status":       true,
}

// GormExpenseRepository implements treasury.ExpenseRepository using GORM
type GormExpenseRepository struct {
	db *gorm.DB
}

// NewGormExpenseRepository creates a new GormExpenseRepository
func NewGormExpenseRepository(db *gorm.DB) *GormExpenseRepository {
	return &GormExpenseRepository{db: db}
}

// FindByID finds an expense by ID
func (r *GormExpenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.Expense, error) {
	var model models.ExpenseModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds expenses with filtering
func (r *GormExpenseRepository) FindAll(ctx context.Context, filter treasury.ExpenseFilter) ([]treasury.Expense, error) {
	query := r.db.WithContext(ctx).Model(&models.ExpenseModel{})

	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("expense_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("expense_date <= ?", *filter.ToDate)
	}

	query = query.Order(orderClause(filter.Filter, expenseSortColumns))
	if filter.PageSize > 0 {
		query = query.Limit(filter.Limit()).Offset(filter.Offset())
	}

	var expenseModels []models.ExpenseModel
	if err := query.Find(&expenseModels).Error; err != nil {
		return nil, err
	}
	expenses := make([]treasury.Expense, len(expenseModels))
	for i := range expenseModels {
		expenses[i] = *expenseModels[i].ToDomain()
	}
	return expenses, nil
}

// Create inserts a new expense
func (r *GormExpenseRepository) Create(ctx context.Context, expense *treasury.Expense) error {
	model := models.ExpenseModelFromDomain(expense)
	return r.db.WithContext(ctx).Create(model).Error
}

// SaveWithLock saves with optimistic locking. The domain increments the
// version on every mutation, so the guard accepts any in-memory version
// strictly ahead of the stored one.
func (r *GormExpenseRepository) SaveWithLock(ctx context.Context, expense *treasury.Expense) error {
	model := models.ExpenseModelFromDomain(expense)
	result := r.db.WithContext(ctx).
		Model(&models.ExpenseModel{}).
		Where("id = ? AND version < ?", expense.ID, expense.Version).
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
