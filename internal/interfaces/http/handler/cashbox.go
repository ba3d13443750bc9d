package handler

import (
	"time"

	treasuryapp "github.com/billing/backend/internal/application/treasury"
	"github.com/billing/backend/internal/domain/treasury"
	"github.com/billing/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashboxHandler handles cash position, expense and deposit endpoints
type CashboxHandler struct {
	BaseHandler
	service *treasuryapp.CashboxService
}

// NewCashboxHandler creates a new CashboxHandler
func NewCashboxHandler(service *treasuryapp.CashboxService) *CashboxHandler {
	return &CashboxHandler{service: service}
}

// RecordExpenseRequest represents a request to register a cash expense
type RecordExpenseRequest struct {
	CategoryID     string    `json:"category_id" binding:"required,uuid"`
	AccountCode    string    `json:"account_code" binding:"required"`
	Amount         float64   `json:"amount" binding:"required,gt=0"`
	ExpenseDate    time.Time `json:"expense_date" binding:"required"`
	Beneficiary    string    `json:"beneficiary" binding:"required"`
	DocumentNumber string    `json:"document_number"`
	Description    string    `json:"description"`
}

// SealDepositRequest represents a request to close receipts into a bank deposit
type SealDepositRequest struct {
	Amount             float64   `json:"amount" binding:"required,gt=0"`
	DepositDate        time.Time `json:"deposit_date" binding:"required"`
	ReferenceNumber    string    `json:"reference_number" binding:"required"`
	Bank               string    `json:"bank"`
	DestinationAccount string    `json:"destination_account"`
	PaymentIDs         []string  `json:"payment_ids" binding:"required,min=1,dive,uuid"`
}

// ExpenseListFilter represents filter parameters for the expense list
type ExpenseListFilter struct {
	dto.ListRequest
	CategoryID string     `form:"category_id" binding:"omitempty,uuid"`
	Status     string     `form:"status" binding:"omitempty,oneof=registered cancelled"`
	FromDate   *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate     *time.Time `form:"to_date" time_format:"2006-01-02"`
}

// DepositListFilter represents filter parameters for the deposit list
type DepositListFilter struct {
	dto.ListRequest
	Status   string     `form:"status" binding:"omitempty,oneof=confirmed cancelled"`
	FromDate *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate   *time.Time `form:"to_date" time_format:"2006-01-02"`
}

// GetBalance handles GET /cashbox/balance
func (h *CashboxHandler) GetBalance(c *gin.Context) {
	balance, err := h.service.Balance(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// GetDailyBook handles GET /cashbox/daily-book
func (h *CashboxHandler) GetDailyBook(c *gin.Context) {
	book, err := h.service.DailyBook(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, book)
}

// RecordExpense handles POST /cashbox/expenses
func (h *CashboxHandler) RecordExpense(c *gin.Context) {
	var req RecordExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "X-Actor-ID header is required")
		return
	}

	expense, err := h.service.RecordExpense(c.Request.Context(), treasuryapp.RecordExpenseRequest{
		CategoryID:     uuid.MustParse(req.CategoryID),
		AccountCode:    req.AccountCode,
		Amount:         decimal.NewFromFloat(req.Amount),
		ExpenseDate:    req.ExpenseDate,
		Beneficiary:    req.Beneficiary,
		DocumentNumber: req.DocumentNumber,
		Description:    req.Description,
		ActorID:        actorID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, expense)
}

// CancelExpense handles POST /cashbox/expenses/:id/cancel
func (h *CashboxHandler) CancelExpense(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid expense ID")
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "X-Actor-ID header is required")
		return
	}

	expense, err := h.service.CancelExpense(c.Request.Context(), id, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, expense)
}

// ListExpenses handles GET /cashbox/expenses
func (h *CashboxHandler) ListExpenses(c *gin.Context) {
	var query ExpenseListFilter
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := treasury.ExpenseFilter{
		Filter:   queryFilter(query.ListRequest),
		FromDate: query.FromDate,
		ToDate:   query.ToDate,
	}
	if query.CategoryID != "" {
		id := uuid.MustParse(query.CategoryID)
		filter.CategoryID = &id
	}
	if query.Status != "" {
		status := treasury.ExpenseStatus(query.Status)
		filter.Status = &status
	}

	expenses, err := h.service.ListExpenses(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, expenses)
}

// ListPendingCash handles GET /cashbox/pending-cash
func (h *CashboxHandler) ListPendingCash(c *gin.Context) {
	payments, err := h.service.ListPendingCash(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}

// SealDeposit handles POST /cashbox/deposits
func (h *CashboxHandler) SealDeposit(c *gin.Context) {
	var req SealDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "X-Actor-ID header is required")
		return
	}

	appReq := treasuryapp.SealDepositRequest{
		Amount:             decimal.NewFromFloat(req.Amount),
		DepositDate:        req.DepositDate,
		ReferenceNumber:    req.ReferenceNumber,
		Bank:               req.Bank,
		DestinationAccount: req.DestinationAccount,
		ActorID:            actorID,
	}
	for _, raw := range req.PaymentIDs {
		appReq.PaymentIDs = append(appReq.PaymentIDs, uuid.MustParse(raw))
	}

	deposit, err := h.service.SealDeposit(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, deposit)
}

// ListDeposits handles GET /cashbox/deposits
func (h *CashboxHandler) ListDeposits(c *gin.Context) {
	var query DepositListFilter
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := treasury.DepositFilter{
		Filter:   queryFilter(query.ListRequest),
		FromDate: query.FromDate,
		ToDate:   query.ToDate,
	}
	if query.Status != "" {
		status := treasury.DepositStatus(query.Status)
		filter.Status = &status
	}

	deposits, err := h.service.ListDeposits(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, deposits)
}

// RegisterRoutes registers all cashbox routes
func (h *CashboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	cashbox := rg.Group("/cashbox")
	{
		cashbox.GET("/balance", h.GetBalance)
		cashbox.GET("/daily-book", h.GetDailyBook)
		cashbox.GET("/pending-cash", h.ListPendingCash)

		cashbox.GET("/expenses", h.ListExpenses)
		cashbox.POST("/expenses", h.RecordExpense)
		cashbox.POST("/expenses/:id/cancel", h.CancelExpense)

		cashbox.GET("/deposits", h.ListDeposits)
		cashbox.POST("/deposits", h.SealDeposit)
	}
}
