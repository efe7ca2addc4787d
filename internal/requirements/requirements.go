package requirements

import (
	"fmt"
	"strings"

	"github.com/goldclear/clearing-api/internal/capital"
	"github.com/goldclear/clearing-api/internal/corridor"
	"github.com/goldclear/clearing-api/internal/types"
)

// Item is one blocker or warning with a stable code for the UI and a
// human-readable message for operators.
type Item struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CapitalContext is the slice of the capital snapshot the evaluator
// needs. It is passed in rather than computed here so Evaluate stays
// pure and callable on every poll.
type CapitalContext struct {
	Level   capital.Level
	Reasons []string
}

// Result is the evaluator's verdict. Blockers halt everything except
// FAIL/CANCEL; warnings are advisory only.
type Result struct {
	Blockers        []Item         `json:"blockers"`
	Warnings        []Item         `json:"warnings"`
	RequiredActions []types.Action `json:"required_actions"`
}

// Blocked reports whether any hard stop is present.
func (r Result) Blocked() bool {
	return len(r.Blockers) > 0
}

// BlockerSummary joins blocker messages for error reporting.
func (r Result) BlockerSummary() string {
	msgs := make([]string, 0, len(r.Blockers))
	for _, b := range r.Blockers {
		msgs = append(msgs, b.Message)
	}
	return strings.Join(msgs, "; ")
}

// Evaluate computes blockers, warnings, and outstanding actions for a
// settlement from its own checkpoints plus corridor, hub, and capital
// context. Pure and side-effect free.
func Evaluate(s *types.Settlement, cor *corridor.Corridor, hub *corridor.Hub, cap CapitalContext) Result {
	var result Result

	if cor == nil {
		result.Blockers = append(result.Blockers, Item{
			Code:    "CORRIDOR_UNKNOWN",
			Message: fmt.Sprintf("corridor %s is not registered", s.CorridorID),
		})
	} else if cor.Status == corridor.CorridorSuspended {
		result.Blockers = append(result.Blockers, Item{
			Code:    "CORRIDOR_SUSPENDED",
			Message: fmt.Sprintf("corridor %s is suspended", cor.CorridorID),
		})
	} else if cor.MaxNotionalMinor > 0 && s.NotionalMinor > cor.MaxNotionalMinor {
		result.Blockers = append(result.Blockers, Item{
			Code: "CORRIDOR_LIMIT_EXCEEDED",
			Message: fmt.Sprintf("notional %d exceeds corridor %s limit %d",
				s.NotionalMinor, cor.CorridorID, cor.MaxNotionalMinor),
		})
	}

	switch {
	case hub == nil:
		result.Blockers = append(result.Blockers, Item{
			Code:    "HUB_UNKNOWN",
			Message: fmt.Sprintf("hub %s is not registered", s.HubID),
		})
	case hub.Status == corridor.HubOffline:
		result.Blockers = append(result.Blockers, Item{
			Code:    "HUB_OFFLINE",
			Message: fmt.Sprintf("hub %s is offline", hub.HubID),
		})
	case hub.Status == corridor.HubDegraded:
		result.Warnings = append(result.Warnings, Item{
			Code:    "HUB_DEGRADED",
			Message: fmt.Sprintf("hub %s is degraded", hub.HubID),
		})
	}

	switch cap.Level {
	case capital.LevelBreach:
		msg := "capital adequacy is in BREACH"
		if len(cap.Reasons) > 0 {
			msg = msg + ": " + strings.Join(cap.Reasons, "; ")
		}
		result.Blockers = append(result.Blockers, Item{Code: "CAPITAL_BREACH", Message: msg})
	case capital.LevelCaution:
		msg := "capital adequacy is in CAUTION"
		if len(cap.Reasons) > 0 {
			msg = msg + ": " + strings.Join(cap.Reasons, "; ")
		}
		result.Warnings = append(result.Warnings, Item{Code: "CAPITAL_CAUTION", Message: msg})
	}

	if s.PaymentStatus != types.PaymentPaid {
		result.Blockers = append(result.Blockers, Item{
			Code:    "FEE_UNPAID",
			Message: "clearing fee has not been paid",
		})
	}
	if s.RequiresManualApproval {
		switch s.ApprovalStatus {
		case types.ApprovalApproved:
		case types.ApprovalRejected:
			result.Blockers = append(result.Blockers, Item{
				Code:    "APPROVAL_REJECTED",
				Message: "manual approval was rejected",
			})
		default:
			result.Blockers = append(result.Blockers, Item{
				Code:    "APPROVAL_PENDING",
				Message: "manual approval is pending",
			})
		}
	}

	result.RequiredActions = requiredActions(s)

	return result
}

// requiredActions lists the checkpoint actions still outstanding, then
// the lifecycle action the settlement is waiting on.
func requiredActions(s *types.Settlement) []types.Action {
	if s.Status.Terminal() {
		return nil
	}
	if s.Status == types.StatusAuthorized {
		return []types.Action{types.ActionExecuteDVP}
	}

	var actions []types.Action
	if !s.FundsConfirmedFinal {
		actions = append(actions, types.ActionConfirmFundsFinal)
	}
	if !s.GoldAllocated {
		actions = append(actions, types.ActionAllocateGold)
	}
	if !s.VerificationCleared {
		actions = append(actions, types.ActionMarkVerificationCleared)
	}
	if len(actions) == 0 {
		actions = append(actions, types.ActionAuthorizeSettlement)
	}
	return actions
}
