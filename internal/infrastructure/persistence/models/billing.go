package models

import (
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractModel is the persistence model for the Contract aggregate root.
type ContractModel struct {
	AggregateModel
	PayerID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	UnitID        uuid.UUID              `gorm:"type:uuid;not null;index"`
	MonthlyAmount decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	WalletBalance decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	Status        billing.ContractStatus `gorm:"type:varchar(20);not null;index"`
	StartDate     time.Time              `gorm:"not null"`
	EndDate       *time.Time
}

// TableName returns the table name for GORM
func (ContractModel) TableName() string {
	return "contracts"
}

// ToDomain converts the persistence model to a domain Contract.
func (m *ContractModel) ToDomain() *billing.Contract {
	return &billing.Contract{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		PayerID:           m.PayerID,
		UnitID:            m.UnitID,
		MonthlyAmount:     m.MonthlyAmount,
		WalletBalance:     m.WalletBalance,
		Status:            m.Status,
		StartDate:         m.StartDate,
		EndDate:           m.EndDate,
	}
}

// FromDomain populates the persistence model from a domain Contract.
func (m *ContractModel) FromDomain(c *billing.Contract) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.PayerID = c.PayerID
	m.UnitID = c.UnitID
	m.MonthlyAmount = c.MonthlyAmount
	m.WalletBalance = c.WalletBalance
	m.Status = c.Status
	m.StartDate = c.StartDate
	m.EndDate = c.EndDate
}

// ContractModelFromDomain creates a new persistence model from a domain Contract.
func ContractModelFromDomain(c *billing.Contract) *ContractModel {
	m := &ContractModel{}
	m.FromDomain(c)
	return m
}

// ChargeModel is the persistence model for the Charge aggregate root.
// Period is stored as "YYYY-MM"; a partial unique index over
// (unit_id, concept_id, period) where status <> 'voided' backs the
// one-live-charge-per-period rule.
type ChargeModel struct {
	AggregateModel
	UnitID           uuid.UUID            `gorm:"type:uuid;not null;index:idx_charges_unit_concept_period"`
	PayerID          uuid.UUID            `gorm:"type:uuid;not null;index"`
	ConceptID        uuid.UUID            `gorm:"type:uuid;not null;index:idx_charges_unit_concept_period"`
	Period           string               `gorm:"type:varchar(7);not null;index:idx_charges_unit_concept_period"`
	BaseAmount       decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	RemainingBalance decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Status           billing.ChargeStatus `gorm:"type:varchar(20);not null;index"`
	DueDate          time.Time            `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ChargeModel) TableName() string {
	return "charges"
}

// ToDomain converts the persistence model to a domain Charge. A period
// that does not parse means the row is corrupt; the schema CHECK makes
// this unreachable through normal writes.
func (m *ChargeModel) ToDomain() (*billing.Charge, error) {
	period, err := billing.ParsePeriod(m.Period)
	if err != nil {
		return nil, fmt.Errorf("charge %s: invalid stored period %q: %w", m.ID, m.Period, err)
	}
	return &billing.Charge{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		UnitID:            m.UnitID,
		PayerID:           m.PayerID,
		ConceptID:         m.ConceptID,
		Period:            period,
		BaseAmount:        m.BaseAmount,
		RemainingBalance:  m.RemainingBalance,
		Status:            m.Status,
		DueDate:           m.DueDate,
	}, nil
}

// FromDomain populates the persistence model from a domain Charge.
func (m *ChargeModel) FromDomain(ch *billing.Charge) {
	m.FromDomainAggregateRoot(ch.BaseAggregateRoot)
	m.UnitID = ch.UnitID
	m.PayerID = ch.PayerID
	m.ConceptID = ch.ConceptID
	m.Period = ch.Period.String()
	m.BaseAmount = ch.BaseAmount
	m.RemainingBalance = ch.RemainingBalance
	m.Status = ch.Status
	m.DueDate = ch.DueDate
}

// ChargeModelFromDomain creates a new persistence model from a domain Charge.
func ChargeModelFromDomain(ch *billing.Charge) *ChargeModel {
	m := &ChargeModel{}
	m.FromDomain(ch)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate root.
type PaymentModel struct {
	AggregateModel
	ContractID         uuid.UUID             `gorm:"type:uuid;not null;index"`
	Method             billing.PaymentMethod `gorm:"type:varchar(20);not null;index"`
	AccountCode        string                `gorm:"type:varchar(10);not null"`
	TotalAmount        decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	WalletContribution decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	WalletAmountUsed   decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Status             billing.PaymentStatus `gorm:"type:varchar(20);not null;index"`
	ReceiptDate        time.Time             `gorm:"not null;index"`
	DocumentNumber     string                `gorm:"type:varchar(50)"`
	Description        string                `gorm:"type:varchar(500)"`
	DepositID          *uuid.UUID            `gorm:"type:uuid;index"`
	VoidedAt           *time.Time
	VoidedBy           *uuid.UUID        `gorm:"type:uuid"`
	Allocations        []AllocationModel `gorm:"foreignKey:PaymentID"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment.
func (m *PaymentModel) ToDomain() *billing.Payment {
	allocations := make([]billing.Allocation, len(m.Allocations))
	for i := range m.Allocations {
		allocations[i] = *m.Allocations[i].ToDomain()
	}
	return &billing.Payment{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		ContractID:         m.ContractID,
		Method:             m.Method,
		AccountCode:        m.AccountCode,
		TotalAmount:        m.TotalAmount,
		WalletContribution: m.WalletContribution,
		WalletAmountUsed:   m.WalletAmountUsed,
		Status:             m.Status,
		ReceiptDate:        m.ReceiptDate,
		DocumentNumber:     m.DocumentNumber,
		Description:        m.Description,
		DepositID:          m.DepositID,
		VoidedAt:           m.VoidedAt,
		VoidedBy:           m.VoidedBy,
		Allocations:        allocations,
	}
}

// FromDomain populates the persistence model from a domain Payment.
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.ContractID = p.ContractID
	m.Method = p.Method
	m.AccountCode = p.AccountCode
	m.TotalAmount = p.TotalAmount
	m.WalletContribution = p.WalletContribution
	m.WalletAmountUsed = p.WalletAmountUsed
	m.Status = p.Status
	m.ReceiptDate = p.ReceiptDate
	m.DocumentNumber = p.DocumentNumber
	m.Description = p.Description
	m.DepositID = p.DepositID
	m.VoidedAt = p.VoidedAt
	m.VoidedBy = p.VoidedBy
	m.Allocations = make([]AllocationModel, len(p.Allocations))
	for i := range p.Allocations {
		m.Allocations[i].FromDomain(&p.Allocations[i])
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// AllocationModel is the persistence model for a payment allocation line.
type AllocationModel struct {
	BaseModel
	PaymentID     uuid.UUID                `gorm:"type:uuid;not null;index"`
	ChargeID      uuid.UUID                `gorm:"type:uuid;not null;index"`
	AppliedAmount decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	BalanceBefore decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Status        billing.AllocationStatus `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the persistence model to a domain Allocation.
func (m *AllocationModel) ToDomain() *billing.Allocation {
	return &billing.Allocation{
		BaseEntity:    m.BaseModel.ToDomain(),
		PaymentID:     m.PaymentID,
		ChargeID:      m.ChargeID,
		AppliedAmount: m.AppliedAmount,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		Status:        m.Status,
	}
}

// FromDomain populates the persistence model from a domain Allocation.
func (m *AllocationModel) FromDomain(a *billing.Allocation) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.PaymentID = a.PaymentID
	m.ChargeID = a.ChargeID
	m.AppliedAmount = a.AppliedAmount
	m.BalanceBefore = a.BalanceBefore
	m.BalanceAfter = a.BalanceAfter
	m.Status = a.Status
}
