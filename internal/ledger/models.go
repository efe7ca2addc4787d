package ledger

import (
	"time"

	"github.com/goldclear/clearing-api/internal/types"
	"gorm.io/gorm"
)

// EntryType is the fixed vocabulary of ledger entry types. The current
// settlement status must be derivable by replaying these in order.
type EntryType string

const (
	EntryEscrowOpened        EntryType = "escrow-opened"
	EntryFundsDeposited      EntryType = "funds-deposited"
	EntryGoldAllocated       EntryType = "gold-allocated"
	EntryVerificationPassed  EntryType = "verification-passed"
	EntrySettlementAuthorized EntryType = "settlement-authorized"
	EntryDvpExecuted         EntryType = "dvp-executed"
	EntryFundsReleased       EntryType = "funds-released"
	EntryGoldReleased        EntryType = "gold-released"
	EntrySettlementFailed    EntryType = "settlement-failed"
	EntrySettlementCancelled EntryType = "settlement-cancelled"
	EntryEscrowClosed        EntryType = "escrow-closed"
	EntryStatusChanged       EntryType = "status-changed"
	EntryFeeConfigured       EntryType = "fee-configured"
	EntryPaymentReceived     EntryType = "payment-received"
	EntryActivationCompleted EntryType = "activation-completed"
	EntryApprovalUpdated     EntryType = "approval-updated"
)

// Entry is one immutable ledger record. Seq is monotonic and unique
// within a settlement; entries are never edited or deleted.
type Entry struct {
	gorm.Model   `json:"-"`
	EntryID      string     `gorm:"uniqueIndex" json:"entry_id"`
	SettlementID string     `gorm:"uniqueIndex:idx_ledger_settlement_seq,priority:1" json:"settlement_id"`
	Seq          int64      `gorm:"uniqueIndex:idx_ledger_settlement_seq,priority:2" json:"seq"`
	Type         EntryType  `json:"type"`
	ActorRole    types.Role `json:"actor_role"`
	ActorID      string     `json:"actor_id"`
	Detail       string     `json:"detail"`
	CreatedAt    time.Time  `json:"created_at"`
}
