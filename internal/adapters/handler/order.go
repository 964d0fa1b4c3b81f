package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/DanielPopoola/coach-settlement/internal/core/domain"
	"github.com/DanielPopoola/coach-settlement/internal/core/service"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	PlanID     string  `json:"planId" validate:"required" example:"plan-strength"`
	BuyerID    string  `json:"buyerId" validate:"required" example:"user-42"`
	BuyerRole  string  `json:"buyerRole,omitempty" validate:"omitempty,oneof=coach customer admin system" example:"customer"`
	BuyerEmail *string `json:"buyerEmail,omitempty" validate:"omitempty,email" example:"buyer@example.com"`
	BuyerPhone *string `json:"buyerPhone,omitempty" example:"+919876543210"`
}

type OrderPlan struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency domain.Currency `json:"currency"`
	CoachID  string          `json:"coachId"`
}

type CreateOrderResponse struct {
	ProviderOrderID  string          `json:"providerOrderId"`
	Amount           int64           `json:"amount"`
	Currency         domain.Currency `json:"currency"`
	GatewayPublicKey string          `json:"gatewayPublicKey"`
	Receipt          string          `json:"receipt"`
	Plan             OrderPlan       `json:"plan"`
}

// HandleCreateOrder opens a gateway order for a plan purchase
// @Summary      Create a plan order
// @Description  Creates a gateway order for the plan's price and records it in the ledger as created.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request  body      CreateOrderRequest  true  "Plan and buyer"
// @Success      201      {object}  APIResponse         "Order created"
// @Failure      400      {object}  APIResponse         "Invalid request"
// @Failure      404      {object}  APIResponse         "Plan not found or not purchasable"
// @Failure      502      {object}  APIResponse         "Gateway error"
// @Router       /api/v1/orders [post]
func (h *PaymentHandler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var req CreateOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondWithError(w, h.logger, domain.NewValidationError("request body is not valid JSON"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, h.logger, validationError(err))
		return
	}

	result, err := h.orderService.CreatePlanOrder(r.Context(), service.CreateOrderCommand{
		PlanID:     req.PlanID,
		BuyerID:    req.BuyerID,
		BuyerRole:  domain.BuyerRole(req.BuyerRole),
		BuyerEmail: req.BuyerEmail,
		BuyerPhone: req.BuyerPhone,
	})
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, CreateOrderResponse{
		ProviderOrderID:  result.Order.ID,
		Amount:           result.AmountMinor,
		Currency:         result.Plan.Currency,
		GatewayPublicKey: result.KeyID,
		Receipt:          result.Payment.Receipt,
		Plan: OrderPlan{
			ID:       result.Plan.ID,
			Name:     result.Plan.Name,
			Price:    result.Plan.Price,
			Currency: result.Plan.Currency,
			CoachID:  result.Plan.CoachID,
		},
	})
}
