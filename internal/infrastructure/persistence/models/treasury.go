package models

import (
	"time"

	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/billing/backend/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseModel is the persistence model for the Expense aggregate root.
type ExpenseModel struct {
	AggregateModel
	CategoryID     uuid.UUID              `gorm:"type:uuid;not null;index"`
	AccountCode    string                 `gorm:"type:varchar(10);not null;index"`
	Amount         decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	ExpenseDate    time.Time              `gorm:"not null;index"`
	Beneficiary    string                 `gorm:"type:varchar(200);not null"`
	DocumentNumber string                 `gorm:"type:varchar(50)"`
	Description    string                 `gorm:"type:varchar(500)"`
	Status         treasury.ExpenseStatus `gorm:"type:varchar(20);not null;index"`
	CancelledAt    *time.Time
	CancelledBy    *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ExpenseModel) TableName() string {
	return "expenses"
}

// ToDomain converts the persistence model to a domain Expense.
func (m *ExpenseModel) ToDomain() *treasury.Expense {
	return &treasury.Expense{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		CategoryID:        m.CategoryID,
		AccountCode:       m.AccountCode,
		Amount:            valueobject.NewMoneyPEN(m.Amount),
		ExpenseDate:       m.ExpenseDate,
		Beneficiary:       m.Beneficiary,
		DocumentNumber:    m.DocumentNumber,
		Description:       m.Description,
		Status:            m.Status,
		CancelledAt:       m.CancelledAt,
		CancelledBy:       m.CancelledBy,
	}
}

// FromDomain populates the persistence model from a domain Expense.
func (m *ExpenseModel) FromDomain(e *treasury.Expense) {
	m.FromDomainAggregateRoot(e.BaseAggregateRoot)
	m.CategoryID = e.CategoryID
	m.AccountCode = e.AccountCode
	m.Amount = e.Amount.Amount()
	m.ExpenseDate = e.ExpenseDate
	m.Beneficiary = e.Beneficiary
	m.DocumentNumber = e.DocumentNumber
	m.Description = e.Description
	m.Status = e.Status
	m.CancelledAt = e.CancelledAt
	m.CancelledBy = e.CancelledBy
}

// ExpenseModelFromDomain creates a new persistence model from a domain Expense.
func ExpenseModelFromDomain(e *treasury.Expense) *ExpenseModel {
	m := &ExpenseModel{}
	m.FromDomain(e)
	return m
}

// DepositModel is the persistence model for the Deposit aggregate root.
// The receipts a deposit sealed hang off payments.deposit_id; ToDomain
// callers that need them load the linked payment IDs separately.
type DepositModel struct {
	AggregateModel
	Amount             decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	DepositDate        time.Time              `gorm:"not null;index"`
	ReferenceNumber    string                 `gorm:"type:varchar(50);not null;index"`
	Bank               string                 `gorm:"type:varchar(100)"`
	DestinationAccount string                 `gorm:"type:varchar(50)"`
	Status             treasury.DepositStatus `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (DepositModel) TableName() string {
	return "deposits"
}

// ToDomain converts the persistence model to a domain Deposit.
func (m *DepositModel) ToDomain() *treasury.Deposit {
	return &treasury.Deposit{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		Amount:             valueobject.NewMoneyPEN(m.Amount),
		DepositDate:        m.DepositDate,
		ReferenceNumber:    m.ReferenceNumber,
		Bank:               m.Bank,
		DestinationAccount: m.DestinationAccount,
		Status:             m.Status,
	}
}

// FromDomain populates the persistence model from a domain Deposit.
func (m *DepositModel) FromDomain(d *treasury.Deposit) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.Amount = d.Amount.Amount()
	m.DepositDate = d.DepositDate
	m.ReferenceNumber = d.ReferenceNumber
	m.Bank = d.Bank
	m.DestinationAccount = d.DestinationAccount
	m.Status = d.Status
}

// DepositModelFromDomain creates a new persistence model from a domain Deposit.
func DepositModelFromDomain(d *treasury.Deposit) *DepositModel {
	m := &DepositModel{}
	m.FromDomain(d)
	return m
}
