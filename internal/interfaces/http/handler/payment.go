package handler

import (
	"time"

	billingapp "github.com/billing/backend/internal/application/billing"
	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles payment registration, allocation and voidance endpoints
type PaymentHandler struct {
	BaseHandler
	service *billingapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(service *billingapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// AllocationLineRequest directs part of a payment at one charge
type AllocationLineRequest struct {
	ChargeID string  `json:"charge_id" binding:"required,uuid"`
	Amount   float64 `json:"amount" binding:"required,gt=0"`
}

// ApplyPaymentRequest represents a request to register and settle a payment
type ApplyPaymentRequest struct {
	ContractID     string                  `json:"contract_id" binding:"required,uuid"`
	Method         string                  `json:"method" binding:"required,oneof=CASH BANK_TRANSFER CARD OTHER"`
	TotalAmount    float64                 `json:"total_amount" binding:"required,gt=0"`
	ReceiptDate    time.Time               `json:"receipt_date" binding:"required"`
	DocumentNumber string                  `json:"document_number"`
	Description    string                  `json:"description"`
	Allocations    []AllocationLineRequest `json:"allocations" binding:"omitempty,dive"`
	WalletTopUp    float64                 `json:"wallet_top_up" binding:"omitempty,gte=0"`
	WalletUse      float64                 `json:"wallet_use" binding:"omitempty,gte=0"`
	ConceptID      string                  `json:"concept_id" binding:"omitempty,uuid"`
}

// PaymentListFilter represents filter parameters for the payment list
type PaymentListFilter struct {
	dto.ListRequest
	ContractID string     `form:"contract_id" binding:"omitempty,uuid"`
	Status     string     `form:"status" binding:"omitempty,oneof=REGISTERED APPLIED VOIDED"`
	Method     string     `form:"method" binding:"omitempty,oneof=CASH BANK_TRANSFER CARD OTHER"`
	FromDate   *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate     *time.Time `form:"to_date" time_format:"2006-01-02"`
}

// ApplyPayment handles POST /payments
func (h *PaymentHandler) ApplyPayment(c *gin.Context) {
	var req ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "X-Actor-ID header is required")
		return
	}

	appReq := billingapp.ApplyPaymentRequest{
		ContractID:     uuid.MustParse(req.ContractID),
		Method:         billing.PaymentMethod(req.Method),
		TotalAmount:    decimal.NewFromFloat(req.TotalAmount),
		ReceiptDate:    req.ReceiptDate,
		DocumentNumber: req.DocumentNumber,
		Description:    req.Description,
		WalletTopUp:    decimal.NewFromFloat(req.WalletTopUp),
		WalletUse:      decimal.NewFromFloat(req.WalletUse),
		ActorID:        actorID,
	}
	for _, line := range req.Allocations {
		appReq.Allocations = append(appReq.Allocations, billingapp.AllocationLine{
			ChargeID: uuid.MustParse(line.ChargeID),
			Amount:   decimal.NewFromFloat(line.Amount),
		})
	}
	if req.ConceptID != "" {
		id := uuid.MustParse(req.ConceptID)
		appReq.ConceptID = &id
	}

	result, err := h.service.Apply(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// GetPayment handles GET /payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	payment, err := h.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// ListPayments handles GET /payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	var query PaymentListFilter
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := billing.PaymentFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  query.OrderBy,
			OrderDir: query.OrderDir,
		},
		FromDate: query.FromDate,
		ToDate:   query.ToDate,
	}
	if query.ContractID != "" {
		id := uuid.MustParse(query.ContractID)
		filter.ContractID = &id
	}
	if query.Status != "" {
		status := billing.PaymentStatus(query.Status)
		filter.Status = &status
	}
	if query.Method != "" {
		method := billing.PaymentMethod(query.Method)
		filter.Method = &method
	}

	payments, err := h.service.ListPayments(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}

// VoidPayment handles POST /payments/:id/void
func (h *PaymentHandler) VoidPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "X-Actor-ID header is required")
		return
	}

	payment, err := h.service.Void(c.Request.Context(), id, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// DeletePayment handles DELETE /payments/:id
func (h *PaymentHandler) DeletePayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers all payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.GET("", h.ListPayments)
		payments.GET("/:id", h.GetPayment)
		payments.POST("", h.ApplyPayment)
		payments.POST("/:id/void", h.VoidPayment)
		payments.DELETE("/:id", h.DeletePayment)
	}
}
