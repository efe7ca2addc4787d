package authz

import (
	"fmt"
	"strings"

	"github.com/goldclear/clearing-api/internal/types"
)

// rolePermissions is the static role-to-action permission map. FAIL and
// CANCEL are open to every ops role; buyer/seller may apply nothing.
var rolePermissions = map[types.Action][]types.Role{
	types.ActionConfirmFundsFinal:       {types.RoleTreasury},
	types.ActionAllocateGold:            {types.RoleVaultOps},
	types.ActionMarkVerificationCleared: {types.RoleCompliance},
	types.ActionAuthorizeSettlement:     {types.RoleAdmin, types.RoleTreasury},
	types.ActionExecuteDVP:              {types.RoleAdmin, types.RoleTreasury},
	types.ActionFailSettlement:          {types.RoleTreasury, types.RoleVaultOps, types.RoleCompliance, types.RoleAdmin},
	types.ActionCancelSettlement:        {types.RoleTreasury, types.RoleVaultOps, types.RoleCompliance, types.RoleAdmin},
}

var roleLabels = map[types.Role]string{
	types.RoleTreasury:   "Treasury",
	types.RoleVaultOps:   "Vault Ops",
	types.RoleCompliance: "Compliance",
	types.RoleAdmin:      "Admin",
	types.RoleBuyer:      "Buyer",
	types.RoleSeller:     "Seller",
}

// RoleLabel returns the display name for a role.
func RoleLabel(r types.Role) string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return string(r)
}

// RequiredRoles returns the roles permitted to apply an action.
func RequiredRoles(action types.Action) []types.Role {
	return rolePermissions[action]
}

// requiredRolesLabel renders the permitted roles for a denial message.
func requiredRolesLabel(action types.Action) string {
	roles := rolePermissions[action]
	labels := make([]string, 0, len(roles))
	for _, r := range roles {
		labels = append(labels, RoleLabel(r))
	}
	return strings.Join(labels, " or ")
}

// Denial explains why an action is currently disallowed. Kind drives
// the error taxonomy; Reason is surfaced verbatim so callers never
// guess why an action is greyed out.
type Denial struct {
	Kind   types.ErrorKind
	Reason string
}

// Check role-gates and precondition-gates an action against a
// settlement. A nil return means the action is allowed as far as role
// and local state go; requirement blockers compose on top of this and
// are checked by the state machine, not here.
func Check(action types.Action, s *types.Settlement, role types.Role) *Denial {
	if !roleAllowed(action, role) {
		return &Denial{
			Kind: types.ErrAuthorization,
			Reason: fmt.Sprintf("action %s requires role %s; actor role is %s",
				action, requiredRolesLabel(action), RoleLabel(role)),
		}
	}

	if s.Status.Terminal() {
		return &Denial{
			Kind:   types.ErrIllegalTransition,
			Reason: fmt.Sprintf("settlement is %s and accepts no further actions", s.Status),
		}
	}

	switch action {
	case types.ActionConfirmFundsFinal:
		if s.FundsConfirmedFinal {
			return &Denial{Kind: types.ErrPrecondition, Reason: "Funds already confirmed"}
		}
		if s.Status == types.StatusAuthorized {
			return &Denial{Kind: types.ErrPrecondition, Reason: "settlement is already authorized"}
		}

	case types.ActionAllocateGold:
		if s.GoldAllocated {
			return &Denial{Kind: types.ErrPrecondition, Reason: "Gold already allocated"}
		}
		if s.Status == types.StatusAuthorized {
			return &Denial{Kind: types.ErrPrecondition, Reason: "settlement is already authorized"}
		}

	case types.ActionMarkVerificationCleared:
		if s.VerificationCleared {
			return &Denial{Kind: types.ErrPrecondition, Reason: "Verification already cleared"}
		}
		if s.Status == types.StatusAuthorized {
			return &Denial{Kind: types.ErrPrecondition, Reason: "settlement is already authorized"}
		}

	case types.ActionAuthorizeSettlement:
		if s.Status == types.StatusAuthorized {
			return &Denial{Kind: types.ErrPrecondition, Reason: "settlement is already authorized"}
		}
		if missing := missingCheckpoints(s); len(missing) > 0 {
			return &Denial{
				Kind:   types.ErrPrecondition,
				Reason: "checkpoints outstanding: " + strings.Join(missing, ", "),
			}
		}

	case types.ActionExecuteDVP:
		if s.Status != types.StatusAuthorized {
			return &Denial{
				Kind:   types.ErrPrecondition,
				Reason: fmt.Sprintf("settlement must be AUTHORIZED to execute DvP; current status is %s", s.Status),
			}
		}

	case types.ActionFailSettlement, types.ActionCancelSettlement:
		// Escape valves; the non-terminal check above is the only
		// state gate. Reason presence is enforced by the machine.

	default:
		return &Denial{
			Kind:   types.ErrIllegalTransition,
			Reason: fmt.Sprintf("unknown action %s", action),
		}
	}

	return nil
}

func roleAllowed(action types.Action, role types.Role) bool {
	for _, r := range rolePermissions[action] {
		if r == role {
			return true
		}
	}
	return false
}

func missingCheckpoints(s *types.Settlement) []string {
	var missing []string
	if !s.FundsConfirmedFinal {
		missing = append(missing, "funds-confirmed-final")
	}
	if !s.GoldAllocated {
		missing = append(missing, "gold-allocated")
	}
	if !s.VerificationCleared {
		missing = append(missing, "verification-cleared")
	}
	return missing
}
