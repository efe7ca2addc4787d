package settlement

import (
	"github.com/goldclear/clearing-api/internal/ledger"
	"github.com/goldclear/clearing-api/internal/types"
)

// OpenRequest opens a settlement for an order advancing to clearing.
type OpenRequest struct {
	OrderID           string `json:"order_id" binding:"required"`
	ListingID         string `json:"listing_id" binding:"required"`
	BuyerOrgID        string `json:"buyer_org_id" binding:"required"`
	SellerOrgID       string `json:"seller_org_id" binding:"required"`
	CorridorID        string `json:"corridor_id" binding:"required"`
	HubID             string `json:"hub_id" binding:"required"`
	VaultHubID        string `json:"vault_hub_id"`
	Rail              string `json:"rail"`
	WeightGrams       int64  `json:"weight_grams" binding:"required"`
	PricePerGramMinor int64  `json:"price_per_gram_minor" binding:"required"`
	Currency          string `json:"currency" binding:"required"`
}

// ActionRequest applies a lifecycle action to a settlement.
type ActionRequest struct {
	SettlementID string
	Action       types.Action
	Actor        types.Actor
	Reason       string
}

// ActionResult is returned from a successful action application.
type ActionResult struct {
	Settlement      *types.Settlement `json:"settlement"`
	AppendedEntries []ledger.Entry    `json:"appended_entries"`
}

// ActionAvailability reports, per action, whether the given actor may
// apply it right now, and the precise disable reason when not.
type ActionAvailability struct {
	Action        types.Action `json:"action"`
	Allowed       bool         `json:"allowed"`
	DisableReason string       `json:"disable_reason,omitempty"`
}

// PaymentRequest records the clearing fee payment from the rail.
type PaymentRequest struct {
	AmountMinor int64  `json:"amount_minor" binding:"required"`
	Reference   string `json:"reference"`
}

// ApprovalRequest records a manual approval decision.
type ApprovalRequest struct {
	Decision string `json:"decision" binding:"required"` // APPROVED or REJECTED
	Note     string `json:"note"`
}
