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

// ChargeHandler handles charge generation and lookup endpoints
type ChargeHandler struct {
	BaseHandler
	service *billingapp.ChargeService
}

// NewChargeHandler creates a new ChargeHandler
func NewChargeHandler(service *billingapp.ChargeService) *ChargeHandler {
	return &ChargeHandler{service: service}
}

// GenerateChargeRequest represents a request to create one charge
type GenerateChargeRequest struct {
	UnitID    string     `json:"unit_id" binding:"required,uuid"`
	ConceptID string     `json:"concept_id" binding:"required,uuid"`
	Period    string     `json:"period" binding:"required"`
	PayerID   string     `json:"payer_id" binding:"omitempty,uuid"`
	Amount    *float64   `json:"amount" binding:"omitempty,gt=0"`
	DueDate   *time.Time `json:"due_date"`
}

// GenerateBatchRequest represents a request to create consecutive future charges
type GenerateBatchRequest struct {
	UnitID      string   `json:"unit_id" binding:"required,uuid"`
	ConceptID   string   `json:"concept_id" binding:"required,uuid"`
	StartPeriod string   `json:"start_period"`
	Count       int      `json:"count" binding:"required,min=1,max=120"`
	PayerID     string   `json:"payer_id" binding:"omitempty,uuid"`
	Amount      *float64 `json:"amount" binding:"omitempty,gt=0"`
}

// GenerateRetroactiveRequest represents a request to backfill past charges
type GenerateRetroactiveRequest struct {
	PayerID     string   `json:"payer_id" binding:"required,uuid"`
	UnitID      string   `json:"unit_id" binding:"required,uuid"`
	ConceptID   string   `json:"concept_id" binding:"required,uuid"`
	StartPeriod string   `json:"start_period" binding:"required"`
	Count       int      `json:"count" binding:"required,min=1,max=120"`
	Amount      *float64 `json:"amount" binding:"omitempty,gt=0"`
}

// GenerateForAllRequest represents a monthly run across all active contracts
type GenerateForAllRequest struct {
	ConceptID string `json:"concept_id" binding:"required,uuid"`
	Period    string `json:"period" binding:"required"`
}

// ChargeListFilter represents filter parameters for the charge list
type ChargeListFilter struct {
	dto.ListRequest
	PayerID string `form:"payer_id" binding:"omitempty,uuid"`
	UnitID  string `form:"unit_id" binding:"omitempty,uuid"`
	Status  string `form:"status" binding:"omitempty,oneof=pending partially_paid paid overdue voided cancelled"`
	Period  string `form:"period"`
}

// GenerateCharge handles POST /charges
func (h *ChargeHandler) GenerateCharge(c *gin.Context) {
	var req GenerateChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := billingapp.GenerateChargeRequest{
		UnitID:    uuid.MustParse(req.UnitID),
		ConceptID: uuid.MustParse(req.ConceptID),
		Period:    req.Period,
		DueDate:   req.DueDate,
	}
	if req.PayerID != "" {
		id := uuid.MustParse(req.PayerID)
		appReq.PayerID = &id
	}
	if req.Amount != nil {
		amount := decimal.NewFromFloat(*req.Amount)
		appReq.Amount = &amount
	}

	result, err := h.service.Generate(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// GenerateBatch handles POST /charges/batch
func (h *ChargeHandler) GenerateBatch(c *gin.Context) {
	var req GenerateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := billingapp.GenerateBatchRequest{
		UnitID:      uuid.MustParse(req.UnitID),
		ConceptID:   uuid.MustParse(req.ConceptID),
		StartPeriod: req.StartPeriod,
		Count:       req.Count,
	}
	if req.PayerID != "" {
		id := uuid.MustParse(req.PayerID)
		appReq.PayerID = &id
	}
	if req.Amount != nil {
		amount := decimal.NewFromFloat(*req.Amount)
		appReq.Amount = &amount
	}

	results, err := h.service.GenerateBatch(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, results)
}

// GenerateRetroactive handles POST /charges/retroactive
func (h *ChargeHandler) GenerateRetroactive(c *gin.Context) {
	var req GenerateRetroactiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := billingapp.GenerateRetroactiveRequest{
		PayerID:     uuid.MustParse(req.PayerID),
		UnitID:      uuid.MustParse(req.UnitID),
		ConceptID:   uuid.MustParse(req.ConceptID),
		StartPeriod: req.StartPeriod,
		Count:       req.Count,
	}
	if req.Amount != nil {
		amount := decimal.NewFromFloat(*req.Amount)
		appReq.Amount = &amount
	}

	results, err := h.service.GenerateRetroactive(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, results)
}

// GenerateForAllActive handles POST /charges/generate-all
func (h *ChargeHandler) GenerateForAllActive(c *gin.Context) {
	var req GenerateForAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	results, err := h.service.GenerateForAllActive(c.Request.Context(), uuid.MustParse(req.ConceptID), req.Period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, results)
}

// MarkOverdue handles POST /charges/mark-overdue
func (h *ChargeHandler) MarkOverdue(c *gin.Context) {
	count, err := h.service.MarkOverdue(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"marked": count})
}

// GetCharge handles GET /charges/:id
func (h *ChargeHandler) GetCharge(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid charge ID")
		return
	}

	charge, err := h.service.GetCharge(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, charge)
}

// ListCharges handles GET /charges
func (h *ChargeHandler) ListCharges(c *gin.Context) {
	var query ChargeListFilter
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := billing.ChargeFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  query.OrderBy,
			OrderDir: query.OrderDir,
		},
	}
	if query.PayerID != "" {
		id := uuid.MustParse(query.PayerID)
		filter.PayerID = &id
	}
	if query.UnitID != "" {
		id := uuid.MustParse(query.UnitID)
		filter.UnitID = &id
	}
	if query.Status != "" {
		status := billing.ChargeStatus(query.Status)
		filter.Status = &status
	}
	if query.Period != "" {
		period, err := billing.ParsePeriod(query.Period)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		filter.Period = &period
	}

	charges, err := h.service.ListCharges(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, charges)
}

// VoidCharge handles POST /charges/:id/void
func (h *ChargeHandler) VoidCharge(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid charge ID")
		return
	}

	if err := h.service.VoidCharge(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers all charge routes
func (h *ChargeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	charges := rg.Group("/charges")
	{
		charges.GET("", h.ListCharges)
		charges.GET("/:id", h.GetCharge)
		charges.POST("", h.GenerateCharge)
		charges.POST("/batch", h.GenerateBatch)
		charges.POST("/retroactive", h.GenerateRetroactive)
		charges.POST("/generate-all", h.GenerateForAllActive)
		charges.POST("/mark-overdue", h.MarkOverdue)
		charges.POST("/:id/void", h.VoidCharge)
	}
}
