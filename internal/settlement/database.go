package settlement

import (
	"fmt"
	"time"

	"github.com/goldclear/clearing-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// GetIdempotencyRecord looks up a prior open by idempotency key.
func (d *Database) GetIdempotencyRecord(key string) (*types.IdempotencyRecord, error) {
	var record types.IdempotencyRecord
	if err := d.db.Where("idempotency_key = ?", key).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateSettlementWithIdempotency persists a new settlement and its
// idempotency record in one transaction.
func (d *Database) CreateSettlementWithIdempotency(tx *gorm.DB, s *types.Settlement, key string) error {
	if err := tx.Create(s).Error; err != nil {
		return fmt.Errorf("failed to create settlement: %w", err)
	}
	record := types.IdempotencyRecord{
		IdempotencyKey: key,
		ResourceID:     s.SettlementID,
		ResourceType:   "settlement",
		ExpiresAt:      time.Now().Add(24 * time.Hour),
	}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to create idempotency record: %w", err)
	}
	return nil
}

// GetSettlement retrieves a settlement by its id.
func (d *Database) GetSettlement(settlementID string) (*types.Settlement, error) {
	var s types.Settlement
	if err := d.db.Where("settlement_id = ?", settlementID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveWithVersion persists settlement mutations guarded by optimistic
// versioning. Zero rows affected means another writer committed first.
func (d *Database) SaveWithVersion(tx *gorm.DB, s *types.Settlement) (bool, error) {
	previousVersion := s.Version
	s.Version++
	s.UpdatedAt = time.Now()

	result := tx.Model(&types.Settlement{}).
		Where("settlement_id = ? AND version = ?", s.SettlementID, previousVersion).
		Updates(map[string]interface{}{
			"funds_confirmed_final": s.FundsConfirmedFinal,
			"gold_allocated":        s.GoldAllocated,
			"verification_cleared":  s.VerificationCleared,
			"status":                s.Status,
			"payment_status":        s.PaymentStatus,
			"approval_status":       s.ApprovalStatus,
			"version":               s.Version,
			"updated_at":            s.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListSettlements returns settlements for an org, newest first.
func (d *Database) ListSettlements(orgID string) ([]types.Settlement, error) {
	var settlements []types.Settlement
	if err := d.db.
		Where("buyer_org_id = ? OR seller_org_id = ?", orgID, orgID).
		Order("created_at DESC").
		Find(&settlements).Error; err != nil {
		return nil, err
	}
	return settlements, nil
}

// Transaction runs fn inside a database transaction.
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.db.Transaction(fn)
}
