package types

import (
	"time"

	"gorm.io/gorm"
)

// Role identifies the capacity an actor is operating in. Party roles
// (buyer, seller) have read-only access; ops roles drive the lifecycle.
type Role string

const (
	RoleTreasury   Role = "treasury"
	RoleVaultOps   Role = "vault_ops"
	RoleCompliance Role = "compliance"
	RoleAdmin      Role = "admin"
	RoleBuyer      Role = "buyer"
	RoleSeller     Role = "seller"
)

// IsOps reports whether the role is a back-office operations role.
func (r Role) IsOps() bool {
	switch r {
	case RoleTreasury, RoleVaultOps, RoleCompliance, RoleAdmin:
		return true
	}
	return false
}

// Actor is the identity applying an action. Authentication happens
// upstream; the core only consumes id + role.
type Actor struct {
	ID   string `json:"actor_id"`
	Role Role   `json:"role"`
}

// Action is a settlement lifecycle action.
type Action string

const (
	ActionConfirmFundsFinal       Action = "CONFIRM_FUNDS_FINAL"
	ActionAllocateGold            Action = "ALLOCATE_GOLD"
	ActionMarkVerificationCleared Action = "MARK_VERIFICATION_CLEARED"
	ActionAuthorizeSettlement     Action = "AUTHORIZE_SETTLEMENT"
	ActionExecuteDVP              Action = "EXECUTE_DVP"
	ActionFailSettlement          Action = "FAIL_SETTLEMENT"
	ActionCancelSettlement        Action = "CANCEL_SETTLEMENT"
)

// AllActions returns every lifecycle action in display order.
func AllActions() []Action {
	return []Action{
		ActionConfirmFundsFinal,
		ActionAllocateGold,
		ActionMarkVerificationCleared,
		ActionAuthorizeSettlement,
		ActionExecuteDVP,
		ActionFailSettlement,
		ActionCancelSettlement,
	}
}

// Status is the displayed settlement status. It is derived from the
// checkpoint flags and ledger history, never set independently.
type Status string

const (
	StatusDraft                Status = "DRAFT"
	StatusEscrowOpen           Status = "ESCROW_OPEN"
	StatusAwaitingFunds        Status = "AWAITING_FUNDS"
	StatusAwaitingGold         Status = "AWAITING_GOLD"
	StatusAwaitingVerification Status = "AWAITING_VERIFICATION"
	StatusReadyToSettle        Status = "READY_TO_SETTLE"
	StatusAuthorized           Status = "AUTHORIZED"
	StatusSettled              Status = "SETTLED"
	StatusFailed               Status = "FAILED"
	StatusCancelled            Status = "CANCELLED"
)

// Terminal reports whether the status admits no further actions.
func (s Status) Terminal() bool {
	return s == StatusSettled || s == StatusFailed || s == StatusCancelled
}

// Payment and approval statuses form the activation gate. They are set
// by the fee/activation collaborator and consumed as a blocker.
const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"

	ApprovalPending  = "PENDING"
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
)

// Settlement is one order advancing through clearing. All monetary
// fields are int64 minor units; ratios are int64 basis points. The
// Open* fields freeze the capital snapshot captured at escrow open and
// never change afterwards.
type Settlement struct {
	gorm.Model   `json:"-"`
	SettlementID string `gorm:"uniqueIndex" json:"settlement_id"`
	OrderID      string `gorm:"index" json:"order_id"`
	ListingID    string `json:"listing_id"`

	BuyerOrgID  string `json:"buyer_org_id"`
	SellerOrgID string `json:"seller_org_id"`

	CorridorID string `json:"corridor_id"`
	HubID      string `json:"hub_id"`
	VaultHubID string `json:"vault_hub_id"`
	Rail       string `json:"rail"`

	WeightGrams       int64  `json:"weight_grams"`
	PricePerGramMinor int64  `json:"price_per_gram_minor"`
	NotionalMinor     int64  `json:"notional_minor"`
	Currency          string `json:"currency"`

	FundsConfirmedFinal bool `json:"funds_confirmed_final"`
	GoldAllocated       bool `json:"gold_allocated"`
	VerificationCleared bool `json:"verification_cleared"`

	OpenCapitalBaseMinor int64 `json:"open_capital_base_minor"`
	OpenECRBps           int64 `json:"open_ecr_bps"`
	OpenHardstopUtilBps  int64 `json:"open_hardstop_util_bps"`

	Status Status `json:"status"`

	PaymentStatus          string `json:"payment_status"`
	ApprovalStatus         string `json:"approval_status"`
	RequiresManualApproval bool   `json:"requires_manual_approval"`
	FeeMinor               int64  `json:"fee_minor"`

	// Version guards against racing writers across processes.
	Version int64 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Activated reports whether the fee/activation gate has cleared.
func (s *Settlement) Activated() bool {
	if s.PaymentStatus != PaymentPaid {
		return false
	}
	if s.RequiresManualApproval && s.ApprovalStatus != ApprovalApproved {
		return false
	}
	return true
}

// CheckpointsComplete reports whether all three escrow checkpoints hold.
func (s *Settlement) CheckpointsComplete() bool {
	return s.FundsConfirmedFinal && s.GoldAllocated && s.VerificationCleared
}

type IdempotencyRecord struct {
	gorm.Model
	IdempotencyKey string    `gorm:"uniqueIndex" json:"idempotency_key"`
	ResourceID     string    `json:"resource_id"`
	ResourceType   string    `json:"resource_type"`
	ExpiresAt      time.Time `json:"expires_at"`
}
