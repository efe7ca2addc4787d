package authz

import (
	"testing"

	"github.com/goldclear/clearing-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSettlement() *types.Settlement {
	return &types.Settlement{
		SettlementID: "STL_test",
		Status:       types.StatusEscrowOpen,
	}
}

func TestCheckRoleGates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		action types.Action
		role   types.Role
		denied bool
	}{
		{"treasury confirms funds", types.ActionConfirmFundsFinal, types.RoleTreasury, false},
		{"vault ops cannot confirm funds", types.ActionConfirmFundsFinal, types.RoleVaultOps, true},
		{"vault ops allocates gold", types.ActionAllocateGold, types.RoleVaultOps, false},
		{"treasury cannot allocate gold", types.ActionAllocateGold, types.RoleTreasury, true},
		{"compliance clears verification", types.ActionMarkVerificationCleared, types.RoleCompliance, false},
		{"admin cannot clear verification", types.ActionMarkVerificationCleared, types.RoleAdmin, true},
		{"buyer cannot allocate gold", types.ActionAllocateGold, types.RoleBuyer, true},
		{"seller cannot fail", types.ActionFailSettlement, types.RoleSeller, true},
		{"compliance may fail", types.ActionFailSettlement, types.RoleCompliance, false},
		{"vault ops may cancel", types.ActionCancelSettlement, types.RoleVaultOps, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			denial := Check(tt.action, openSettlement(), tt.role)
			if tt.denied {
				require.NotNil(t, denial)
				assert.Equal(t, types.ErrAuthorization, denial.Kind)
			} else {
				assert.Nil(t, denial)
			}
		})
	}
}

func TestCheckDenialNamesRequiredRole(t *testing.T) {
	t.Parallel()

	denial := Check(types.ActionAllocateGold, openSettlement(), types.RoleBuyer)
	require.NotNil(t, denial)
	assert.Equal(t, types.ErrAuthorization, denial.Kind)
	assert.Contains(t, denial.Reason, "Vault Ops")
	assert.Contains(t, denial.Reason, "Buyer")
}

func TestCheckTerminalSettlement(t *testing.T) {
	t.Parallel()

	for _, status := range []types.Status{types.StatusSettled, types.StatusFailed, types.StatusCancelled} {
		s := openSettlement()
		s.Status = status

		for _, action := range types.AllActions() {
			role := RequiredRoles(action)[0]
			denial := Check(action, s, role)
			require.NotNil(t, denial, "action %s on %s settlement", action, status)
			assert.Equal(t, types.ErrIllegalTransition, denial.Kind)
		}
	}
}

func TestCheckDuplicateCheckpoints(t *testing.T) {
	t.Parallel()

	s := openSettlement()
	s.FundsConfirmedFinal = true
	denial := Check(types.ActionConfirmFundsFinal, s, types.RoleTreasury)
	require.NotNil(t, denial)
	assert.Equal(t, types.ErrPrecondition, denial.Kind)
	assert.Equal(t, "Funds already confirmed", denial.Reason)

	s = openSettlement()
	s.GoldAllocated = true
	denial = Check(types.ActionAllocateGold, s, types.RoleVaultOps)
	require.NotNil(t, denial)
	assert.Equal(t, "Gold already allocated", denial.Reason)

	s = openSettlement()
	s.VerificationCleared = true
	denial = Check(types.ActionMarkVerificationCleared, s, types.RoleCompliance)
	require.NotNil(t, denial)
	assert.Equal(t, "Verification already cleared", denial.Reason)
}

func TestCheckAuthorizeRequiresAllCheckpoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		funds       bool
		gold        bool
		verified    bool
		wantMissing []string
	}{
		{"nothing done", false, false, false, []string{"funds-confirmed-final", "gold-allocated", "verification-cleared"}},
		{"only funds", true, false, false, []string{"gold-allocated", "verification-cleared"}},
		{"only gold", false, true, false, []string{"funds-confirmed-final", "verification-cleared"}},
		{"only verification", false, false, true, []string{"funds-confirmed-final", "gold-allocated"}},
		{"missing verification", true, true, false, []string{"verification-cleared"}},
		{"missing gold", true, false, true, []string{"gold-allocated"}},
		{"missing funds", false, true, true, []string{"funds-confirmed-final"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := openSettlement()
			s.FundsConfirmedFinal = tt.funds
			s.GoldAllocated = tt.gold
			s.VerificationCleared = tt.verified

			denial := Check(types.ActionAuthorizeSettlement, s, types.RoleAdmin)
			require.NotNil(t, denial)
			assert.Equal(t, types.ErrPrecondition, denial.Kind)
			for _, missing := range tt.wantMissing {
				assert.Contains(t, denial.Reason, missing)
			}
		})
	}
}

func TestCheckAuthorizeAllowedWhenComplete(t *testing.T) {
	t.Parallel()

	s := openSettlement()
	s.FundsConfirmedFinal = true
	s.GoldAllocated = true
	s.VerificationCleared = true
	s.Status = types.StatusReadyToSettle

	assert.Nil(t, Check(types.ActionAuthorizeSettlement, s, types.RoleAdmin))
	assert.Nil(t, Check(types.ActionAuthorizeSettlement, s, types.RoleTreasury))
}

func TestCheckExecuteRequiresAuthorized(t *testing.T) {
	t.Parallel()

	s := openSettlement()
	s.Status = types.StatusReadyToSettle
	denial := Check(types.ActionExecuteDVP, s, types.RoleAdmin)
	require.NotNil(t, denial)
	assert.Equal(t, types.ErrPrecondition, denial.Kind)
	assert.Contains(t, denial.Reason, "AUTHORIZED")

	s.Status = types.StatusAuthorized
	assert.Nil(t, Check(types.ActionExecuteDVP, s, types.RoleAdmin))
}

func TestCheckCheckpointsRejectedAfterAuthorization(t *testing.T) {
	t.Parallel()

	s := openSettlement()
	s.FundsConfirmedFinal = true
	s.GoldAllocated = true
	s.VerificationCleared = true
	s.Status = types.StatusAuthorized

	denial := Check(types.ActionAuthorizeSettlement, s, types.RoleAdmin)
	require.NotNil(t, denial)
	assert.Equal(t, types.ErrPrecondition, denial.Kind)
	assert.Contains(t, denial.Reason, "already authorized")
}

func TestCheckEscapeValvesOnlyTerminalGated(t *testing.T) {
	t.Parallel()

	// FAIL and CANCEL are available from any non-terminal state for ops
	// roles, regardless of checkpoint progress.
	s := openSettlement()
	s.Status = types.StatusAuthorized

	assert.Nil(t, Check(types.ActionFailSettlement, s, types.RoleTreasury))
	assert.Nil(t, Check(types.ActionCancelSettlement, s, types.RoleAdmin))
}

func TestRoleLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Vault Ops", RoleLabel(types.RoleVaultOps))
	assert.Equal(t, "Treasury", RoleLabel(types.RoleTreasury))
	assert.Equal(t, "custom_role", RoleLabel(types.Role("custom_role")))
}
