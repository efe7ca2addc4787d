package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an action was rejected. Every rejected
// action maps to exactly one kind so audit trails stay unambiguous.
type ErrorKind string

const (
	// ErrAuthorization: the actor's role may never perform this action.
	ErrAuthorization ErrorKind = "AUTHORIZATION"
	// ErrPrecondition: a local checkpoint or state requirement is unmet.
	ErrPrecondition ErrorKind = "PRECONDITION"
	// ErrBlockedByRisk: a systemic blocker (corridor, hub, capital)
	// halts the action; clears automatically when the condition does.
	ErrBlockedByRisk ErrorKind = "BLOCKED_BY_RISK"
	// ErrIllegalTransition: the settlement is terminal or the action is
	// impossible from its current state.
	ErrIllegalTransition ErrorKind = "ILLEGAL_TRANSITION"
	// ErrConcurrentModification: another action won the race; retry
	// against the latest state.
	ErrConcurrentModification ErrorKind = "CONCURRENT_MODIFICATION"
)

// ActionError is the typed rejection returned at the action boundary.
type ActionError struct {
	Kind         ErrorKind `json:"kind"`
	Action       Action    `json:"action,omitempty"`
	SettlementID string    `json:"settlement_id,omitempty"`
	Reason       string    `json:"reason"`
}

func (e *ActionError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s: %s rejected: %s", e.Kind, e.Action, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func NewAuthorizationError(action Action, settlementID, reason string) *ActionError {
	return &ActionError{Kind: ErrAuthorization, Action: action, SettlementID: settlementID, Reason: reason}
}

func NewPreconditionError(action Action, settlementID, reason string) *ActionError {
	return &ActionError{Kind: ErrPrecondition, Action: action, SettlementID: settlementID, Reason: reason}
}

func NewBlockedByRiskError(action Action, settlementID, reason string) *ActionError {
	return &ActionError{Kind: ErrBlockedByRisk, Action: action, SettlementID: settlementID, Reason: reason}
}

func NewIllegalTransitionError(action Action, settlementID, reason string) *ActionError {
	return &ActionError{Kind: ErrIllegalTransition, Action: action, SettlementID: settlementID, Reason: reason}
}

func NewConcurrentModificationError(action Action, settlementID string) *ActionError {
	return &ActionError{
		Kind:         ErrConcurrentModification,
		Action:       action,
		SettlementID: settlementID,
		Reason:       "settlement was modified concurrently, retry against latest state",
	}
}

// AsActionError unwraps err into an ActionError if it is one.
func AsActionError(err error) (*ActionError, bool) {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
