package settlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/goldclear/clearing-api/internal/capital"
	"github.com/goldclear/clearing-api/internal/corridor"
	"github.com/goldclear/clearing-api/internal/fees"
	"github.com/goldclear/clearing-api/internal/ledger"
	"github.com/goldclear/clearing-api/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Settlements at or above this notional require manual approval before
// activation. 1,000,000.00 in minor units.
const manualApprovalThresholdMinor = int64(100_000_000)

// Service wires the state machine together with settlement intake and
// the fee/activation gate.
type Service struct {
	db       *Database
	ledger   *ledger.Store
	machine  *Machine
	capital  *capital.Service
	schedule fees.Schedule
}

func NewService(gormDB *gorm.DB, capitalService *capital.Service, corridorService *corridor.Service, schedule fees.Schedule) *Service {
	db := NewDatabase(gormDB)
	ledgerStore := ledger.NewStore(gormDB)
	return &Service{
		db:       db,
		ledger:   ledgerStore,
		machine:  NewMachine(db, ledgerStore, capitalService, corridorService),
		capital:  capitalService,
		schedule: schedule,
	}
}

// Machine exposes the state machine for wiring and tests.
func (s *Service) Machine() *Machine {
	return s.machine
}

// Ledger exposes the ledger store for wiring and tests.
func (s *Service) Ledger() *ledger.Store {
	return s.ledger
}

// OpenSettlement opens escrow for an order with idempotency support.
// The capital snapshot is frozen onto the settlement at open and never
// changes afterwards.
func (s *Service) OpenSettlement(req OpenRequest, actor types.Actor, idempotencyKey string) (*types.Settlement, error) {
	logger := log.With().
		Str("order_id", req.OrderID).
		Str("service", "settlement").
		Logger()

	record, err := s.db.GetIdempotencyRecord(idempotencyKey)
	if err == nil && record != nil && record.ExpiresAt.After(time.Now()) {
		existing, err := s.db.GetSettlement(record.ResourceID)
		if err != nil {
			return nil, err
		}
		logger.Info().
			Str("settlement_id", existing.SettlementID).
			Msg("returning settlement for replayed idempotency key")
		return existing, nil
	}

	if req.WeightGrams <= 0 || req.PricePerGramMinor <= 0 {
		return nil, types.NewPreconditionError("", "",
			"weight and locked price must be positive")
	}

	snap, err := s.capital.Snapshot()
	if err != nil {
		logger.Error().Err(err).Msg("failed to capture capital snapshot at open")
		return nil, fmt.Errorf("failed to capture capital snapshot at open: %w", err)
	}

	notional := req.WeightGrams * req.PricePerGramMinor
	quote := s.schedule.Compute(notional)

	settlement := &types.Settlement{
		SettlementID:           "STL_" + uuid.New().String(),
		OrderID:                req.OrderID,
		ListingID:              req.ListingID,
		BuyerOrgID:             req.BuyerOrgID,
		SellerOrgID:            req.SellerOrgID,
		CorridorID:             req.CorridorID,
		HubID:                  req.HubID,
		VaultHubID:             req.VaultHubID,
		Rail:                   req.Rail,
		WeightGrams:            req.WeightGrams,
		PricePerGramMinor:      req.PricePerGramMinor,
		NotionalMinor:          notional,
		Currency:               req.Currency,
		OpenCapitalBaseMinor:   snap.CapitalBaseMinor,
		OpenECRBps:             snap.ECRBps,
		OpenHardstopUtilBps:    snap.HardstopUtilBps,
		Status:                 types.StatusEscrowOpen,
		PaymentStatus:          types.PaymentPending,
		ApprovalStatus:         types.ApprovalPending,
		RequiresManualApproval: notional >= manualApprovalThresholdMinor,
		FeeMinor:               quote.FeeMinor,
		Version:                1,
		CreatedAt:              time.Now(),
		UpdatedAt:              time.Now(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.db.CreateSettlementWithIdempotency(tx, settlement, idempotencyKey); err != nil {
			return err
		}
		_, err := s.ledger.AppendTx(tx, settlement.SettlementID,
			ledger.Draft{Type: ledger.EntryEscrowOpened, Actor: actor,
				Detail: fmt.Sprintf("escrow opened for order %s, notional %d %s",
					req.OrderID, notional, req.Currency)},
			ledger.Draft{Type: ledger.EntryFeeConfigured, Actor: actor,
				Detail: fmt.Sprintf("clearing fee configured at %d minor units (%d bps)",
					quote.FeeMinor, quote.FeeBps)},
		)
		return err
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to open settlement")
		return nil, fmt.Errorf("failed to open settlement: %w", err)
	}

	logger.Info().
		Str("settlement_id", settlement.SettlementID).
		Int64("notional_minor", notional).
		Int64("fee_minor", quote.FeeMinor).
		Bool("requires_manual_approval", settlement.RequiresManualApproval).
		Int64("open_ecr_bps", settlement.OpenECRBps).
		Msg("settlement opened")

	return settlement, nil
}

// RecordPayment records the clearing fee payment and completes
// activation when the gate clears.
func (s *Service) RecordPayment(settlementID string, req PaymentRequest, actor types.Actor) (*types.Settlement, error) {
	lock := s.machine.lockFor(settlementID)
	lock.Lock()
	defer lock.Unlock()

	settlement, err := s.db.GetSettlement(settlementID)
	if err != nil {
		return nil, err
	}
	if settlement.Status.Terminal() {
		return nil, types.NewIllegalTransitionError("", settlementID,
			fmt.Sprintf("settlement is %s and accepts no further activity", settlement.Status))
	}
	if settlement.PaymentStatus == types.PaymentPaid {
		return nil, types.NewPreconditionError("", settlementID, "fee already paid")
	}
	if req.AmountMinor < settlement.FeeMinor {
		return nil, types.NewPreconditionError("", settlementID,
			fmt.Sprintf("payment %d is below the configured fee %d", req.AmountMinor, settlement.FeeMinor))
	}

	wasActivated := settlement.Activated()
	settlement.PaymentStatus = types.PaymentPaid

	drafts := []ledger.Draft{
		{Type: ledger.EntryPaymentReceived, Actor: actor,
			Detail: fmt.Sprintf("fee payment received: %d minor units, reference %s",
				req.AmountMinor, req.Reference)},
	}
	if !wasActivated && settlement.Activated() {
		drafts = append(drafts, ledger.Draft{
			Type: ledger.EntryActivationCompleted, Actor: actor,
			Detail: "activation gate cleared",
		})
	}

	if err := s.commitActivation(settlement, drafts); err != nil {
		return nil, err
	}
	return settlement, nil
}

// UpdateApproval records a manual approval decision.
func (s *Service) UpdateApproval(settlementID string, req ApprovalRequest, actor types.Actor) (*types.Settlement, error) {
	decision := strings.ToUpper(strings.TrimSpace(req.Decision))
	if decision != types.ApprovalApproved && decision != types.ApprovalRejected {
		return nil, types.NewPreconditionError("", settlementID,
			fmt.Sprintf("invalid approval decision %q", req.Decision))
	}

	lock := s.machine.lockFor(settlementID)
	lock.Lock()
	defer lock.Unlock()

	settlement, err := s.db.GetSettlement(settlementID)
	if err != nil {
		return nil, err
	}
	if settlement.Status.Terminal() {
		return nil, types.NewIllegalTransitionError("", settlementID,
			fmt.Sprintf("settlement is %s and accepts no further activity", settlement.Status))
	}

	wasActivated := settlement.Activated()
	settlement.ApprovalStatus = decision

	drafts := []ledger.Draft{
		{Type: ledger.EntryApprovalUpdated, Actor: actor,
			Detail: fmt.Sprintf("approval %s: %s", decision, req.Note)},
	}
	if !wasActivated && settlement.Activated() {
		drafts = append(drafts, ledger.Draft{
			Type: ledger.EntryActivationCompleted, Actor: actor,
			Detail: "activation gate cleared",
		})
	}

	if err := s.commitActivation(settlement, drafts); err != nil {
		return nil, err
	}
	return settlement, nil
}

// commitActivation persists an activation-gate mutation with its
// ledger entries in one transaction.
func (s *Service) commitActivation(settlement *types.Settlement, drafts []ledger.Draft) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		committed, err := s.db.SaveWithVersion(tx, settlement)
		if err != nil {
			return err
		}
		if !committed {
			return types.NewConcurrentModificationError("", settlement.SettlementID)
		}
		_, err = s.ledger.AppendTx(tx, settlement.SettlementID, drafts...)
		return err
	})
}

// FeeQuote computes the clearing fee for a notional amount.
func (s *Service) FeeQuote(notionalMinor int64) (*fees.Quote, error) {
	if notionalMinor <= 0 {
		return nil, types.NewPreconditionError("", "", "notional must be positive")
	}
	quote := s.schedule.Compute(notionalMinor)
	return &quote, nil
}

// GetSettlement retrieves a settlement by id.
func (s *Service) GetSettlement(settlementID string) (*types.Settlement, error) {
	return s.db.GetSettlement(settlementID)
}

// GetLedger returns the full ordered ledger for a settlement.
func (s *Service) GetLedger(settlementID string) ([]ledger.Entry, error) {
	if _, err := s.db.GetSettlement(settlementID); err != nil {
		return nil, err
	}
	return s.ledger.Read(settlementID)
}
