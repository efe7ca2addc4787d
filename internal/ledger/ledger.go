package ledger

import (
	"fmt"
	"sync"

	"github.com/goldclear/clearing-api/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Store is the append-only ledger. Appends to the same settlement are
// serialized through a per-settlement mutex; appends to different
// settlements proceed concurrently. Reads never take the write lock.
type Store struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Store) lockFor(settlementID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[settlementID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[settlementID] = l
	}
	return l
}

// Draft is an entry before it has been assigned an id and sequence.
type Draft struct {
	Type   EntryType
	Actor  types.Actor
	Detail string
}

// Append writes drafts to a settlement's ledger in their own
// transaction. Use AppendTx when the entries must commit atomically
// with other state changes.
func (s *Store) Append(settlementID string, drafts ...Draft) ([]Entry, error) {
	var entries []Entry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		entries, txErr = s.AppendTx(tx, settlementID, drafts...)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// AppendTx appends drafts within an existing transaction as one
// indivisible unit. Sequence numbers continue from the last durably
// committed entry, so replay after a mid-transition crash resumes with
// no partial unit visible.
func (s *Store) AppendTx(tx *gorm.DB, settlementID string, drafts ...Draft) ([]Entry, error) {
	if len(drafts) == 0 {
		return nil, nil
	}

	lock := s.lockFor(settlementID)
	lock.Lock()
	defer lock.Unlock()

	var lastSeq int64
	row := tx.Model(&Entry{}).
		Where("settlement_id = ?", settlementID).
		Select("COALESCE(MAX(seq), 0)").
		Row()
	if err := row.Scan(&lastSeq); err != nil {
		return nil, fmt.Errorf("failed to read ledger sequence: %w", err)
	}

	entries := make([]Entry, 0, len(drafts))
	for i, d := range drafts {
		entry := Entry{
			EntryID:      "LED_" + uuid.New().String(),
			SettlementID: settlementID,
			Seq:          lastSeq + int64(i) + 1,
			Type:         d.Type,
			ActorRole:    d.Actor.Role,
			ActorID:      d.Actor.ID,
			Detail:       d.Detail,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return nil, fmt.Errorf("failed to append ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}

	log.Debug().
		Str("settlement_id", settlementID).
		Int("entries", len(entries)).
		Int64("last_seq", entries[len(entries)-1].Seq).
		Msg("appended ledger entries")

	return entries, nil
}

// Read returns the full ordered entry sequence for a settlement.
func (s *Store) Read(settlementID string) ([]Entry, error) {
	var entries []Entry
	if err := s.db.Where("settlement_id = ?", settlementID).
		Order("seq ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return entries, nil
}

// ReplayState is the settlement state reconstructed from the ledger.
type ReplayState struct {
	EscrowOpened        bool
	FundsConfirmedFinal bool
	GoldAllocated       bool
	VerificationCleared bool
	Authorized          bool
	FundsReleased       bool
	GoldReleased        bool
	Settled             bool
	Failed              bool
	Cancelled           bool
}

// Replay folds an ordered entry sequence into the checkpoint flags and
// lifecycle markers. This is the audit contract: the derived status
// must match the stored settlement status.
func Replay(entries []Entry) ReplayState {
	var st ReplayState
	for _, e := range entries {
		switch e.Type {
		case EntryEscrowOpened:
			st.EscrowOpened = true
		case EntryFundsDeposited:
			st.FundsConfirmedFinal = true
		case EntryGoldAllocated:
			st.GoldAllocated = true
		case EntryVerificationPassed:
			st.VerificationCleared = true
		case EntrySettlementAuthorized:
			st.Authorized = true
		case EntryFundsReleased:
			st.FundsReleased = true
		case EntryGoldReleased:
			st.GoldReleased = true
		case EntryDvpExecuted:
			st.Settled = true
		case EntrySettlementFailed:
			st.Failed = true
		case EntrySettlementCancelled:
			st.Cancelled = true
		}
	}
	return st
}

// Status derives the displayed settlement status from replayed state.
// Priority: terminal outcomes, then authorization, then readiness, then
// the first outstanding checkpoint in funds, gold, verification order.
func (st ReplayState) Status() types.Status {
	switch {
	case st.Failed:
		return types.StatusFailed
	case st.Cancelled:
		return types.StatusCancelled
	case st.Settled:
		return types.StatusSettled
	case st.Authorized:
		return types.StatusAuthorized
	case st.FundsConfirmedFinal && st.GoldAllocated && st.VerificationCleared:
		return types.StatusReadyToSettle
	case !st.EscrowOpened:
		return types.StatusDraft
	case !st.FundsConfirmedFinal && !st.GoldAllocated && !st.VerificationCleared:
		return types.StatusEscrowOpen
	case !st.FundsConfirmedFinal:
		return types.StatusAwaitingFunds
	case !st.GoldAllocated:
		return types.StatusAwaitingGold
	default:
		return types.StatusAwaitingVerification
	}
}
