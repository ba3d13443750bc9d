package treasury

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/billing/backend/internal/domain/treasury"
	"github.com/billing/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// fundsTolerance is the slack allowed by the insufficient-funds gate
var fundsTolerance = decimal.NewFromFloat(0.01)

// BalanceCache caches the derived cash balance between write operations
type BalanceCache interface {
	GetBalance(ctx context.Context) (decimal.Decimal, bool, error)
	SetBalance(ctx context.Context, balance decimal.Decimal) error
	Invalidate(ctx context.Context) error
}

// CashboxService reconciles the cash position: receipts in, expenses and
// bank deposits out. The balance is always derived, never persisted.
type CashboxService struct {
	store  treasury.Store
	cache  BalanceCache
	logger *zap.Logger
}

// NewCashboxService creates a new CashboxService. The cache is optional.
func NewCashboxService(store treasury.Store, cache BalanceCache, logger *zap.Logger) *CashboxService {
	return &CashboxService{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// CashBalance is the derived cash position with its components
type CashBalance struct {
	CashReceipts decimal.Decimal `json:"cash_receipts"`
	Expenses     decimal.Decimal `json:"expenses"`
	Deposits     decimal.Decimal `json:"deposits"`
	Balance      decimal.Decimal `json:"balance"`
	AsOf         time.Time       `json:"as_of"`
}

// Balance computes applied cash receipts minus registered expenses minus
// confirmed deposits.
func (s *CashboxService) Balance(ctx context.Context) (*CashBalance, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cashbox", "balance")
	defer span.End()

	totals, err := s.store.CashTotals(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	balance := totals.Balance().Amount()
	if s.cache != nil {
		if err := s.cache.SetBalance(ctx, balance); err != nil {
			s.logger.Warn("failed to cache cash balance", zap.Error(err))
		}
	}

	return &CashBalance{
		CashReceipts: totals.CashReceipts.Amount(),
		Expenses:     totals.Expenses.Amount(),
		Deposits:     totals.Deposits.Amount(),
		Balance:      balance,
		AsOf:         time.Now(),
	}, nil
}

// cachedBalance serves the gate from cache when possible, falling back to
// the full derivation.
func (s *CashboxService) cachedBalance(ctx context.Context) (decimal.Decimal, error) {
	if s.cache != nil {
		if balance, ok, err := s.cache.GetBalance(ctx); err == nil && ok {
			return balance, nil
		}
	}
	full, err := s.Balance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return full.Balance, nil
}

// AssertSufficientFunds gates cash outflows: it fails when the balance
// cannot cover the amount, with a cent of slack for rounding.
func (s *CashboxService) AssertSufficientFunds(ctx context.Context, amount decimal.Decimal) error {
	balance, err := s.cachedBalance(ctx)
	if err != nil {
		return err
	}
	if balance.LessThan(amount.Sub(fundsTolerance)) {
		return shared.NewDomainError("INSUFFICIENT_FUNDS",
			fmt.Sprintf("Cash balance %s cannot cover %s", balance.StringFixed(2), amount.StringFixed(2)))
	}
	return nil
}

// RecordExpenseRequest represents a request to register a cash expense
type RecordExpenseRequest struct {
	CategoryID     uuid.UUID
	AccountCode    string
	Amount         decimal.Decimal
	ExpenseDate    time.Time
	Beneficiary    string
	DocumentNumber string
	Description    string
	ActorID        uuid.UUID
}

// RecordExpense registers a cash expense after the funds gate passes.
// Only expense-class account codes (5x/6x) are accepted; receipt accounts
// cannot book outflows.
func (s *CashboxService) RecordExpense(ctx context.Context, req RecordExpenseRequest) (*treasury.Expense, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cashbox", "record_expense")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAmount, req.Amount.String(),
		"account_code", req.AccountCode,
	)

	if !strings.HasPrefix(req.AccountCode, "5") && !strings.HasPrefix(req.AccountCode, "6") {
		return nil, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Account %s is not an expense account", req.AccountCode))
	}

	var expense *treasury.Expense
	err := s.store.InTransaction(ctx, func(tx treasury.Store) error {
		if err := s.AssertSufficientFunds(ctx, req.Amount); err != nil {
			return err
		}

		var err error
		expense, err = treasury.NewExpense(req.CategoryID, req.AccountCode,
			valueobject.NewMoneyPEN(req.Amount), req.ExpenseDate,
			req.Beneficiary, req.DocumentNumber, req.Description, req.ActorID)
		if err != nil {
			return err
		}
		return tx.Expenses().Create(ctx, expense)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.invalidateCache(ctx)
	s.logger.Info("expense recorded",
		zap.String("expense_id", expense.ID.String()),
		zap.String("amount", req.Amount.StringFixed(2)),
	)
	return expense, nil
}

// CancelExpense takes an expense back out of the cash balance
func (s *CashboxService) CancelExpense(ctx context.Context, expenseID, actorID uuid.UUID) (*treasury.Expense, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cashbox", "cancel_expense")
	defer span.End()

	var expense *treasury.Expense
	err := s.store.InTransaction(ctx, func(tx treasury.Store) error {
		var err error
		expense, err = tx.Expenses().FindByID(ctx, expenseID)
		if err != nil {
			return err
		}
		if err := expense.Cancel(actorID); err != nil {
			return err
		}
		return tx.Expenses().SaveWithLock(ctx, expense)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.invalidateCache(ctx)
	s.logger.Info("expense cancelled", zap.String("expense_id", expenseID.String()))
	return expense, nil
}

// ListPendingCash returns applied cash payments that no deposit has sealed yet
func (s *CashboxService) ListPendingCash(ctx context.Context) ([]billing.Payment, error) {
	return s.store.Payments().FindUnsealedCash(ctx)
}

// SealDepositRequest represents a cash close: selected receipts against a
// bank voucher
type SealDepositRequest struct {
	Amount             decimal.Decimal
	DepositDate        time.Time
	ReferenceNumber    string
	Bank               string
	DestinationAccount string
	PaymentIDs         []uuid.UUID
	ActorID            uuid.UUID
}

// SealDeposit closes out selected cash receipts into a confirmed bank
// deposit. The voucher must reconcile with the receipts within ten cents,
// and each receipt is linked atomically.
func (s *CashboxService) SealDeposit(ctx context.Context, req SealDepositRequest) (*treasury.Deposit, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cashbox", "seal_deposit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAmount, req.Amount.String(),
		"payments", len(req.PaymentIDs),
	)

	if len(req.PaymentIDs) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "A deposit needs at least one receipt")
	}

	var deposit *treasury.Deposit
	err := s.store.InTransaction(ctx, func(tx treasury.Store) error {
		payments, err := tx.Payments().FindByIDs(ctx, req.PaymentIDs)
		if err != nil {
			return err
		}
		if len(payments) != len(req.PaymentIDs) {
			return shared.NewDomainError("NOT_FOUND", "One or more selected receipts do not exist")
		}

		systemTotal := decimal.Zero
		for i := range payments {
			p := &payments[i]
			if !p.Method.IsCash() {
				return shared.NewDomainError("INVALID_STATE",
					fmt.Sprintf("Receipt %s is not a cash payment", p.ID))
			}
			if p.Status != billing.PaymentStatusApplied {
				return shared.NewDomainError("INVALID_STATE",
					fmt.Sprintf("Receipt %s is not applied", p.ID))
			}
			if p.DepositID != nil {
				return shared.NewDomainError("INVALID_STATE",
					fmt.Sprintf("Receipt %s was already deposited", p.ID))
			}
			systemTotal = systemTotal.Add(p.TotalAmount)
		}

		deposit, err = treasury.NewDeposit(valueobject.NewMoneyPEN(req.Amount), req.DepositDate,
			req.ReferenceNumber, req.Bank, req.DestinationAccount,
			valueobject.NewMoneyPEN(systemTotal), req.ActorID)
		if err != nil {
			return err
		}
		if err := tx.Deposits().Create(ctx, deposit); err != nil {
			return err
		}

		for i := range payments {
			p := &payments[i]
			if err := p.LinkDeposit(deposit.ID); err != nil {
				return err
			}
			if err := tx.Payments().SaveWithLock(ctx, p); err != nil {
				return err
			}
		}
		deposit.LinkPayments(req.PaymentIDs)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.invalidateCache(ctx)
	s.logger.Info("deposit sealed",
		zap.String("deposit_id", deposit.ID.String()),
		zap.String("reference", req.ReferenceNumber),
		zap.Int("receipts", len(req.PaymentIDs)),
	)
	return deposit, nil
}

// MovementType classifies one daily-book entry
type MovementType string

const (
	MovementReceipt MovementType = "RECEIPT"
	MovementExpense MovementType = "EXPENSE"
	MovementDeposit MovementType = "DEPOSIT"
)

// Movement is one chronological entry in the daily book
type Movement struct {
	Date        time.Time       `json:"date"`
	Type        MovementType    `json:"type"`
	Description string          `json:"description"`
	In          decimal.Decimal `json:"in"`
	Out         decimal.Decimal `json:"out"`
	ReferenceID uuid.UUID       `json:"reference_id"`
}

// DailyBook is the merged movement listing with the current balance header
type DailyBook struct {
	Balance   decimal.Decimal `json:"balance"`
	Movements []Movement      `json:"movements"`
}

// DailyBook merges cash receipts, expenses and deposits into one listing,
// newest first, headed by the current derived balance.
func (s *CashboxService) DailyBook(ctx context.Context) (*DailyBook, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cashbox", "daily_book")
	defer span.End()

	applied := billing.PaymentStatusApplied
	cash := billing.MethodCash
	payments, err := s.store.Payments().FindAll(ctx, billing.PaymentFilter{Status: &applied, Method: &cash})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	registered := treasury.ExpenseStatusRegistered
	expenses, err := s.store.Expenses().FindAll(ctx, treasury.ExpenseFilter{Status: &registered})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	confirmed := treasury.DepositStatusConfirmed
	deposits, err := s.store.Deposits().FindAll(ctx, treasury.DepositFilter{Status: &confirmed})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	movements := make([]Movement, 0, len(payments)+len(expenses)+len(deposits))
	for i := range payments {
		p := &payments[i]
		movements = append(movements, Movement{
			Date:        p.CreatedAt,
			Type:        MovementReceipt,
			Description: fmt.Sprintf("Receipt %s - %s", p.DocumentNumber, p.Description),
			In:          p.TotalAmount,
			Out:         decimal.Zero,
			ReferenceID: p.ID,
		})
	}
	for i := range expenses {
		e := &expenses[i]
		movements = append(movements, Movement{
			Date:        e.CreatedAt,
			Type:        MovementExpense,
			Description: fmt.Sprintf("Expense %s - %s", e.AccountCode, e.Beneficiary),
			In:          decimal.Zero,
			Out:         e.Amount.Amount(),
			ReferenceID: e.ID,
		})
	}
	for i := range deposits {
		d := &deposits[i]
		movements = append(movements, Movement{
			Date:        d.CreatedAt,
			Type:        MovementDeposit,
			Description: fmt.Sprintf("Bank transfer %s (%s)", d.ReferenceNumber, d.Bank),
			In:          decimal.Zero,
			Out:         d.Amount.Amount(),
			ReferenceID: d.ID,
		})
	}

	sort.Slice(movements, func(i, j int) bool {
		return movements[i].Date.After(movements[j].Date)
	})

	balance, err := s.Balance(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return &DailyBook{
		Balance:   balance.Balance,
		Movements: movements,
	}, nil
}

// ListExpenses fetches expenses matching the filter
func (s *CashboxService) ListExpenses(ctx context.Context, filter treasury.ExpenseFilter) ([]treasury.Expense, error) {
	return s.store.Expenses().FindAll(ctx, filter)
}

// ListDeposits fetches deposits matching the filter
func (s *CashboxService) ListDeposits(ctx context.Context, filter treasury.DepositFilter) ([]treasury.Deposit, error) {
	return s.store.Deposits().FindAll(ctx, filter)
}

func (s *CashboxService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate cash balance cache", zap.Error(err))
	}
}
