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

// ContractHandler handles billing contract endpoints
type ContractHandler struct {
	BaseHandler
	service *billingapp.ContractService
}

// NewContractHandler creates a new ContractHandler
func NewContractHandler(service *billingapp.ContractService) *ContractHandler {
	return &ContractHandler{service: service}
}

// CreateContractRequest represents a request to open a contract for a unit
type CreateContractRequest struct {
	PayerID       string    `json:"payer_id" binding:"required,uuid"`
	UnitID        string    `json:"unit_id" binding:"required,uuid"`
	MonthlyAmount float64   `json:"monthly_amount" binding:"required,gt=0"`
	StartDate     time.Time `json:"start_date" binding:"required"`
}

// TerminateContractRequest represents a request to end a contract
type TerminateContractRequest struct {
	EndDate time.Time `json:"end_date" binding:"required"`
}

// SetMonthlyAmountRequest represents a request to change the recurring amount
type SetMonthlyAmountRequest struct {
	MonthlyAmount float64 `json:"monthly_amount" binding:"required,gt=0"`
}

// ContractListFilter represents filter parameters for the contract list
type ContractListFilter struct {
	dto.ListRequest
	PayerID string `form:"payer_id" binding:"omitempty,uuid"`
	UnitID  string `form:"unit_id" binding:"omitempty,uuid"`
	Status  string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

// CreateContract handles POST /contracts
func (h *ContractHandler) CreateContract(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	contract, err := h.service.Create(c.Request.Context(), billingapp.CreateContractRequest{
		PayerID:       uuid.MustParse(req.PayerID),
		UnitID:        uuid.MustParse(req.UnitID),
		MonthlyAmount: decimal.NewFromFloat(req.MonthlyAmount),
		StartDate:     req.StartDate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, contract)
}

// GetContract handles GET /contracts/:id
func (h *ContractHandler) GetContract(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid contract ID")
		return
	}

	contract, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, contract)
}

// ListContracts handles GET /contracts
func (h *ContractHandler) ListContracts(c *gin.Context) {
	var query ContractListFilter
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := billing.ContractFilter{
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
		status := billing.ContractStatus(query.Status)
		filter.Status = &status
	}

	contracts, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, contracts)
}

// TerminateContract handles POST /contracts/:id/terminate
func (h *ContractHandler) TerminateContract(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid contract ID")
		return
	}

	var req TerminateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	contract, err := h.service.Terminate(c.Request.Context(), id, req.EndDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, contract)
}

// SetMonthlyAmount handles PUT /contracts/:id/monthly-amount
func (h *ContractHandler) SetMonthlyAmount(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid contract ID")
		return
	}

	var req SetMonthlyAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	contract, err := h.service.SetMonthlyAmount(c.Request.Context(), id, decimal.NewFromFloat(req.MonthlyAmount))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, contract)
}

// RegisterRoutes registers all contract routes
func (h *ContractHandler) RegisterRoutes(rg *gin.RouterGroup) {
	contracts := rg.Group("/contracts")
	{
		contracts.GET("", h.ListContracts)
		contracts.GET("/:id", h.GetContract)
		contracts.POST("", h.CreateContract)
		contracts.POST("/:id/terminate", h.TerminateContract)
		contracts.PUT("/:id/monthly-amount", h.SetMonthlyAmount)
	}
}
