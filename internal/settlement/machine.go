package settlement

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goldclear/clearing-api/internal/authz"
	"github.com/goldclear/clearing-api/internal/capital"
	"github.com/goldclear/clearing-api/internal/corridor"
	"github.com/goldclear/clearing-api/internal/ledger"
	"github.com/goldclear/clearing-api/internal/requirements"
	"github.com/goldclear/clearing-api/internal/types"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Machine is the single authoritative entry point for settlement
// lifecycle actions. One in-flight action per settlement at a time;
// readers of ledgers and snapshots never take these locks.
type Machine struct {
	db        *Database
	ledger    *ledger.Store
	capital   *capital.Service
	corridors *corridor.Service

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMachine(db *Database, ledgerStore *ledger.Store, capitalService *capital.Service, corridorService *corridor.Service) *Machine {
	return &Machine{
		db:        db,
		ledger:    ledgerStore,
		capital:   capitalService,
		corridors: corridorService,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (m *Machine) lockFor(settlementID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[settlementID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[settlementID] = l
	}
	return l
}

// ApplyAction validates and applies one lifecycle action. Concurrent
// actions on the same settlement queue on the per-settlement lock; the
// later one re-validates against the committed state, so a raced
// duplicate surfaces as a precondition rejection rather than a double
// apply.
func (m *Machine) ApplyAction(req ActionRequest) (*ActionResult, error) {
	logger := log.With().
		Str("settlement_id", req.SettlementID).
		Str("action", string(req.Action)).
		Str("actor_id", req.Actor.ID).
		Str("actor_role", string(req.Actor.Role)).
		Str("service", "settlement").
		Logger()

	lock := m.lockFor(req.SettlementID)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.db.GetSettlement(req.SettlementID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch settlement")
		return nil, fmt.Errorf("failed to fetch settlement: %w", err)
	}

	if denial := authz.Check(req.Action, s, req.Actor.Role); denial != nil {
		logger.Warn().
			Str("kind", string(denial.Kind)).
			Str("reason", denial.Reason).
			Msg("action rejected")
		return nil, &types.ActionError{
			Kind:         denial.Kind,
			Action:       req.Action,
			SettlementID: req.SettlementID,
			Reason:       denial.Reason,
		}
	}

	escapeValve := req.Action == types.ActionFailSettlement || req.Action == types.ActionCancelSettlement

	if escapeValve && strings.TrimSpace(req.Reason) == "" {
		return nil, types.NewPreconditionError(req.Action, req.SettlementID,
			"a non-empty reason is required")
	}

	// FAIL and CANCEL bypass requirement blockers; everything else is
	// halted by them.
	if !escapeValve {
		result, err := m.Evaluate(s)
		if err != nil {
			return nil, err
		}
		if result.Blocked() {
			logger.Warn().Str("blockers", result.BlockerSummary()).Msg("action blocked by requirements")
			return nil, types.NewBlockedByRiskError(req.Action, req.SettlementID, result.BlockerSummary())
		}
	}

	if req.Action == types.ActionAuthorizeSettlement {
		if err := m.checkMakerChecker(s, req.Actor); err != nil {
			return nil, err
		}
	}

	drafts, err := m.mutate(s, req)
	if err != nil {
		return nil, err
	}

	var appended []ledger.Entry
	err = m.db.Transaction(func(tx *gorm.DB) error {
		committed, err := m.db.SaveWithVersion(tx, s)
		if err != nil {
			return fmt.Errorf("failed to persist settlement: %w", err)
		}
		if !committed {
			return types.NewConcurrentModificationError(req.Action, req.SettlementID)
		}

		appended, err = m.ledger.AppendTx(tx, req.SettlementID, drafts...)
		return err
	})
	if err != nil {
		if _, ok := types.AsActionError(err); !ok {
			logger.Error().Err(err).Msg("failed to commit action")
		}
		return nil, err
	}

	logger.Info().
		Str("status", string(s.Status)).
		Int("entries_appended", len(appended)).
		Msg("action applied")

	return &ActionResult{Settlement: s, AppendedEntries: appended}, nil
}

// mutate applies the action's effect to the in-memory settlement and
// returns the ledger drafts to append. EXECUTE_DVP's drafts commit as
// one unit with the status change; there is no state in which funds
// are released but gold is not.
func (m *Machine) mutate(s *types.Settlement, req ActionRequest) ([]ledger.Draft, error) {
	switch req.Action {
	case types.ActionConfirmFundsFinal:
		s.FundsConfirmedFinal = true
		s.Status = statusFromCheckpoints(s)
		return []ledger.Draft{
			{Type: ledger.EntryFundsDeposited, Actor: req.Actor, Detail: "buyer funds confirmed final"},
		}, nil

	case types.ActionAllocateGold:
		s.GoldAllocated = true
		s.Status = statusFromCheckpoints(s)
		return []ledger.Draft{
			{Type: ledger.EntryGoldAllocated, Actor: req.Actor,
				Detail: fmt.Sprintf("gold allocated at vault hub %s", s.VaultHubID)},
		}, nil

	case types.ActionMarkVerificationCleared:
		s.VerificationCleared = true
		s.Status = statusFromCheckpoints(s)
		return []ledger.Draft{
			{Type: ledger.EntryVerificationPassed, Actor: req.Actor, Detail: "verification cleared"},
		}, nil

	case types.ActionAuthorizeSettlement:
		s.Status = types.StatusAuthorized
		return []ledger.Draft{
			{Type: ledger.EntrySettlementAuthorized, Actor: req.Actor, Detail: "settlement authorized"},
		}, nil

	case types.ActionExecuteDVP:
		s.Status = types.StatusSettled
		return []ledger.Draft{
			{Type: ledger.EntryDvpExecuted, Actor: req.Actor, Detail: "delivery-versus-payment executed"},
			{Type: ledger.EntryFundsReleased, Actor: req.Actor,
				Detail: fmt.Sprintf("funds released to seller org %s", s.SellerOrgID)},
			{Type: ledger.EntryGoldReleased, Actor: req.Actor,
				Detail: fmt.Sprintf("gold released to buyer org %s", s.BuyerOrgID)},
			{Type: ledger.EntryEscrowClosed, Actor: req.Actor, Detail: "escrow closed"},
		}, nil

	case types.ActionFailSettlement:
		s.Status = types.StatusFailed
		return []ledger.Draft{
			{Type: ledger.EntrySettlementFailed, Actor: req.Actor, Detail: req.Reason},
		}, nil

	case types.ActionCancelSettlement:
		s.Status = types.StatusCancelled
		return []ledger.Draft{
			{Type: ledger.EntrySettlementCancelled, Actor: req.Actor, Detail: req.Reason},
		}, nil
	}

	return nil, types.NewIllegalTransitionError(req.Action, s.SettlementID,
		fmt.Sprintf("unknown action %s", req.Action))
}

// checkMakerChecker enforces that the authorizing actor differs from
// the actor who confirmed funds.
func (m *Machine) checkMakerChecker(s *types.Settlement, actor types.Actor) error {
	entries, err := m.ledger.Read(s.SettlementID)
	if err != nil {
		return fmt.Errorf("failed to read ledger for maker-checker: %w", err)
	}
	for _, e := range entries {
		if e.Type == ledger.EntryFundsDeposited && e.ActorID == actor.ID {
			return types.NewPreconditionError(types.ActionAuthorizeSettlement, s.SettlementID,
				"maker-checker: authorizer must differ from the actor who confirmed funds")
		}
	}
	return nil
}

// Evaluate runs the requirement evaluator with fresh corridor, hub,
// and capital context. Blockers are never cached; they clear on the
// next call once the underlying condition resolves.
func (m *Machine) Evaluate(s *types.Settlement) (requirements.Result, error) {
	// A missing corridor or hub is an evaluator blocker, not a lookup
	// failure; nil is passed through.
	cor, err := m.corridors.GetCorridor(s.CorridorID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return requirements.Result{}, err
	}
	hub, err := m.corridors.GetHub(s.HubID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return requirements.Result{}, err
	}

	snap, err := m.capital.Snapshot()
	if err != nil {
		return requirements.Result{}, err
	}

	return requirements.Evaluate(s, cor, hub, requirements.CapitalContext{
		Level:   snap.Level,
		Reasons: snap.Reasons,
	}), nil
}

// Availability derives, for every action, whether the actor may apply
// it right now and the precise disable reason when not.
func (m *Machine) Availability(settlementID string, role types.Role) ([]ActionAvailability, error) {
	s, err := m.db.GetSettlement(settlementID)
	if err != nil {
		return nil, err
	}

	result, err := m.Evaluate(s)
	if err != nil {
		return nil, err
	}

	availability := make([]ActionAvailability, 0, len(types.AllActions()))
	for _, action := range types.AllActions() {
		av := ActionAvailability{Action: action, Allowed: true}

		if denial := authz.Check(action, s, role); denial != nil {
			av.Allowed = false
			av.DisableReason = denial.Reason
		} else if action != types.ActionFailSettlement &&
			action != types.ActionCancelSettlement &&
			result.Blocked() {
			av.Allowed = false
			av.DisableReason = "blocked: " + result.BlockerSummary()
		}

		availability = append(availability, av)
	}
	return availability, nil
}

// statusFromCheckpoints derives the displayed status for an open,
// unauthorized settlement from its checkpoint flags.
func statusFromCheckpoints(s *types.Settlement) types.Status {
	switch {
	case s.CheckpointsComplete():
		return types.StatusReadyToSettle
	case !s.FundsConfirmedFinal && !s.GoldAllocated && !s.VerificationCleared:
		return types.StatusEscrowOpen
	case !s.FundsConfirmedFinal:
		return types.StatusAwaitingFunds
	case !s.GoldAllocated:
		return types.StatusAwaitingGold
	default:
		return types.StatusAwaitingVerification
	}
}
