package requirements

import (
	"testing"

	"github.com/goldclear/clearing-api/internal/capital"
	"github.com/goldclear/clearing-api/internal/corridor"
	"github.com/goldclear/clearing-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeCorridor() *corridor.Corridor {
	return &corridor.Corridor{
		CorridorID:       "COR_ZA_AE",
		Status:           corridor.CorridorActive,
		MaxNotionalMinor: 2_000_000_000,
		Currency:         "USD",
	}
}

func onlineHub() *corridor.Hub {
	return &corridor.Hub{HubID: "HUB_JNB", Status: corridor.HubOnline}
}

func clearCapital() CapitalContext {
	return CapitalContext{Level: capital.LevelClear}
}

func paidSettlement() *types.Settlement {
	return &types.Settlement{
		SettlementID:  "STL_test",
		CorridorID:    "COR_ZA_AE",
		HubID:         "HUB_JNB",
		NotionalMinor: 7_000_000,
		Status:        types.StatusEscrowOpen,
		PaymentStatus: types.PaymentPaid,
	}
}

func blockerCodes(r Result) []string {
	codes := make([]string, 0, len(r.Blockers))
	for _, b := range r.Blockers {
		codes = append(codes, b.Code)
	}
	return codes
}

func TestEvaluateAllClear(t *testing.T) {
	t.Parallel()

	result := Evaluate(paidSettlement(), activeCorridor(), onlineHub(), clearCapital())

	assert.False(t, result.Blocked())
	assert.Empty(t, result.Warnings)
	assert.Equal(t, []types.Action{
		types.ActionConfirmFundsFinal,
		types.ActionAllocateGold,
		types.ActionMarkVerificationCleared,
	}, result.RequiredActions)
}

func TestEvaluateCorridorBlockers(t *testing.T) {
	t.Parallel()

	t.Run("unknown corridor", func(t *testing.T) {
		t.Parallel()
		result := Evaluate(paidSettlement(), nil, onlineHub(), clearCapital())
		assert.Contains(t, blockerCodes(result), "CORRIDOR_UNKNOWN")
	})

	t.Run("suspended corridor", func(t *testing.T) {
		t.Parallel()
		cor := activeCorridor()
		cor.Status = corridor.CorridorSuspended
		result := Evaluate(paidSettlement(), cor, onlineHub(), clearCapital())
		assert.Contains(t, blockerCodes(result), "CORRIDOR_SUSPENDED")
	})

	t.Run("notional over corridor limit", func(t *testing.T) {
		t.Parallel()
		s := paidSettlement()
		s.NotionalMinor = 3_000_000_000
		result := Evaluate(s, activeCorridor(), onlineHub(), clearCapital())
		require.Contains(t, blockerCodes(result), "CORRIDOR_LIMIT_EXCEEDED")
	})

	t.Run("zero limit means unlimited", func(t *testing.T) {
		t.Parallel()
		cor := activeCorridor()
		cor.MaxNotionalMinor = 0
		s := paidSettlement()
		s.NotionalMinor = 9_000_000_000_000
		result := Evaluate(s, cor, onlineHub(), clearCapital())
		assert.False(t, result.Blocked())
	})
}

func TestEvaluateHubStates(t *testing.T) {
	t.Parallel()

	t.Run("unknown hub", func(t *testing.T) {
		t.Parallel()
		result := Evaluate(paidSettlement(), activeCorridor(), nil, clearCapital())
		assert.Contains(t, blockerCodes(result), "HUB_UNKNOWN")
	})

	t.Run("offline hub blocks", func(t *testing.T) {
		t.Parallel()
		hub := onlineHub()
		hub.Status = corridor.HubOffline
		result := Evaluate(paidSettlement(), activeCorridor(), hub, clearCapital())
		assert.Contains(t, blockerCodes(result), "HUB_OFFLINE")
	})

	t.Run("degraded hub only warns", func(t *testing.T) {
		t.Parallel()
		hub := onlineHub()
		hub.Status = corridor.HubDegraded
		result := Evaluate(paidSettlement(), activeCorridor(), hub, clearCapital())
		assert.False(t, result.Blocked())
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, "HUB_DEGRADED", result.Warnings[0].Code)
	})
}

func TestEvaluateCapitalLevels(t *testing.T) {
	t.Parallel()

	t.Run("breach blocks with reasons", func(t *testing.T) {
		t.Parallel()
		cap := CapitalContext{
			Level:   capital.LevelBreach,
			Reasons: []string{"ECR 8.20x exceeds breach threshold 8.00x"},
		}
		result := Evaluate(paidSettlement(), activeCorridor(), onlineHub(), cap)
		require.Contains(t, blockerCodes(result), "CAPITAL_BREACH")
		var msg string
		for _, b := range result.Blockers {
			if b.Code == "CAPITAL_BREACH" {
				msg = b.Message
			}
		}
		assert.Contains(t, msg, "8.20x")
	})

	t.Run("caution only warns", func(t *testing.T) {
		t.Parallel()
		cap := CapitalContext{Level: capital.LevelCaution, Reasons: []string{"hardstop utilization 82.00% exceeds caution threshold 80.00%"}}
		result := Evaluate(paidSettlement(), activeCorridor(), onlineHub(), cap)
		assert.False(t, result.Blocked())
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, "CAPITAL_CAUTION", result.Warnings[0].Code)
	})
}

func TestEvaluateActivationGate(t *testing.T) {
	t.Parallel()

	t.Run("unpaid fee blocks", func(t *testing.T) {
		t.Parallel()
		s := paidSettlement()
		s.PaymentStatus = types.PaymentPending
		result := Evaluate(s, activeCorridor(), onlineHub(), clearCapital())
		assert.Contains(t, blockerCodes(result), "FEE_UNPAID")
	})

	t.Run("pending approval blocks", func(t *testing.T) {
		t.Parallel()
		s := paidSettlement()
		s.RequiresManualApproval = true
		s.ApprovalStatus = types.ApprovalPending
		result := Evaluate(s, activeCorridor(), onlineHub(), clearCapital())
		assert.Contains(t, blockerCodes(result), "APPROVAL_PENDING")
	})

	t.Run("rejected approval blocks", func(t *testing.T) {
		t.Parallel()
		s := paidSettlement()
		s.RequiresManualApproval = true
		s.ApprovalStatus = types.ApprovalRejected
		result := Evaluate(s, activeCorridor(), onlineHub(), clearCapital())
		assert.Contains(t, blockerCodes(result), "APPROVAL_REJECTED")
	})

	t.Run("granted approval clears", func(t *testing.T) {
		t.Parallel()
		s := paidSettlement()
		s.RequiresManualApproval = true
		s.ApprovalStatus = types.ApprovalApproved
		result := Evaluate(s, activeCorridor(), onlineHub(), clearCapital())
		assert.False(t, result.Blocked())
	})
}

func TestRequiredActionsProgression(t *testing.T) {
	t.Parallel()

	t.Run("partial checkpoints", func(t *testing.T) {
		t.Parallel()
		s := paidSettlement()
		s.FundsConfirmedFinal = true
		result := Evaluate(s, activeCorridor(), onlineHub(), clearCapital())
		assert.Equal(t, []types.Action{
			types.ActionAllocateGold,
			types.ActionMarkVerificationCleared,
		}, result.RequiredActions)
	})

	t.Run("ready to settle needs authorization", func(t *testing.T) {
		t.Parallel()
		s := paidSettlement()
		s.FundsConfirmedFinal = true
		s.GoldAllocated = true
		s.VerificationCleared = true
		s.Status = types.StatusReadyToSettle
		result := Evaluate(s, activeCorridor(), onlineHub(), clearCapital())
		assert.Equal(t, []types.Action{types.ActionAuthorizeSettlement}, result.RequiredActions)
	})

	t.Run("authorized needs execution", func(t *testing.T) {
		t.Parallel()
		s := paidSettlement()
		s.Status = types.StatusAuthorized
		result := Evaluate(s, activeCorridor(), onlineHub(), clearCapital())
		assert.Equal(t, []types.Action{types.ActionExecuteDVP}, result.RequiredActions)
	})

	t.Run("terminal has none", func(t *testing.T) {
		t.Parallel()
		s := paidSettlement()
		s.Status = types.StatusSettled
		result := Evaluate(s, activeCorridor(), onlineHub(), clearCapital())
		assert.Empty(t, result.RequiredActions)
	})
}

func TestBlockerSummaryJoinsMessages(t *testing.T) {
	t.Parallel()

	s := paidSettlement()
	s.PaymentStatus = types.PaymentPending
	result := Evaluate(s, nil, nil, clearCapital())

	summary := result.BlockerSummary()
	assert.Contains(t, summary, "not registered")
	assert.Contains(t, summary, "clearing fee has not been paid")
	assert.Contains(t, summary, "; ")
}
