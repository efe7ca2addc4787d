package settlement

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/goldclear/clearing-api/internal/types"
	"github.com/goldclear/clearing-api/pkg/response"
)

// GinHandlers contains HTTP handlers for settlement endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// actorFromContext reads the actor identity the auth middleware set.
func actorFromContext(c *gin.Context) (types.Actor, bool) {
	actorID := c.GetString("actorID")
	role := c.GetString("role")
	if actorID == "" || role == "" {
		return types.Actor{}, false
	}
	return types.Actor{ID: actorID, Role: types.Role(role)}, true
}

// OpenSettlementHandler handles POST requests to open a settlement
// Requires a valid JWT token and idempotency key in headers
func (h *GinHandlers) OpenSettlementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		idempotencyKey := c.GetHeader("Idempotency-Key")
		if idempotencyKey == "" {
			response.BadRequest(c, "Idempotency-Key header is required")
			return
		}

		actor, ok := actorFromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing actor identity")
			return
		}

		var req OpenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		settlement, err := h.service.OpenSettlement(req, actor, idempotencyKey)
		response.Handle(c, settlement, err)
	}
}

// GetSettlementHandler handles GET requests for a single settlement
func (h *GinHandlers) GetSettlementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settlementID := c.Param("settlement_id")

		settlement, err := h.service.GetSettlement(settlementID)
		response.Handle(c, settlement, err)
	}
}

// GetLedgerHandler handles GET requests for a settlement's ledger
func (h *GinHandlers) GetLedgerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settlementID := c.Param("settlement_id")

		entries, err := h.service.GetLedger(settlementID)
		response.Handle(c, entries, err)
	}
}

// GetRequirementsHandler handles GET requests for blockers/warnings
func (h *GinHandlers) GetRequirementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settlementID := c.Param("settlement_id")

		settlement, err := h.service.GetSettlement(settlementID)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		result, err := h.service.Machine().Evaluate(settlement)
		response.Handle(c, result, err)
	}
}

// GetActionsHandler handles GET requests for per-action availability
func (h *GinHandlers) GetActionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settlementID := c.Param("settlement_id")

		actor, ok := actorFromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing actor identity")
			return
		}

		availability, err := h.service.Machine().Availability(settlementID, actor.Role)
		response.Handle(c, availability, err)
	}
}

// ApplyActionHandler handles POST requests to apply a lifecycle action
func (h *GinHandlers) ApplyActionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settlementID := c.Param("settlement_id")

		actor, ok := actorFromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing actor identity")
			return
		}

		var body struct {
			Action string `json:"action" binding:"required"`
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		result, err := h.service.Machine().ApplyAction(ActionRequest{
			SettlementID: settlementID,
			Action:       types.Action(body.Action),
			Actor:        actor,
			Reason:       body.Reason,
		})
		response.Handle(c, result, err)
	}
}

// RecordPaymentHandler handles POST requests recording the fee payment
func (h *GinHandlers) RecordPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settlementID := c.Param("settlement_id")

		actor, ok := actorFromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing actor identity")
			return
		}

		var req PaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		settlement, err := h.service.RecordPayment(settlementID, req, actor)
		response.Handle(c, settlement, err)
	}
}

// UpdateApprovalHandler handles POST requests recording approvals
func (h *GinHandlers) UpdateApprovalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settlementID := c.Param("settlement_id")

		actor, ok := actorFromContext(c)
		if !ok {
			response.Unauthorized(c, "Missing actor identity")
			return
		}

		var req ApprovalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		settlement, err := h.service.UpdateApproval(settlementID, req, actor)
		response.Handle(c, settlement, err)
	}
}

// FeeQuoteHandler handles GET requests computing a clearing fee quote
func (h *GinHandlers) FeeQuoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		notional, err := strconv.ParseInt(c.Query("notional_minor"), 10, 64)
		if err != nil {
			response.BadRequest(c, "notional_minor query parameter is required")
			return
		}

		quote, err := h.service.FeeQuote(notional)
		response.Handle(c, quote, err)
	}
}
