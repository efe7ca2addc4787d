package breach

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// GetState returns the last known level for a family, or nil when the
// family has never transitioned.
func (d *Database) GetState(tx *gorm.DB, family Family) (*State, error) {
	if tx == nil {
		tx = d.db
	}
	var state State
	err := tx.Where("family = ?", family).First(&state).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch breach state: %w", err)
	}
	return &state, nil
}

// SaveState upserts the last known level for a family.
func (d *Database) SaveState(tx *gorm.DB, family Family, level string) error {
	var state State
	err := tx.Where("family = ?", family).First(&state).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		state = State{Family: family, LastLevel: level, UpdatedAt: time.Now()}
		return tx.Create(&state).Error
	case err != nil:
		return fmt.Errorf("failed to fetch breach state: %w", err)
	default:
		state.LastLevel = level
		state.UpdatedAt = time.Now()
		return tx.Save(&state).Error
	}
}

// CreateEvent appends a breach event within the sweep transaction.
func (d *Database) CreateEvent(tx *gorm.DB, event *Event) error {
	return tx.Create(event).Error
}

// ListEvents returns persisted breach events, newest first.
func (d *Database) ListEvents(limit int) ([]Event, error) {
	var events []Event
	q := d.db.Order("occurred_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch breach events: %w", err)
	}
	return events, nil
}

// Transaction runs fn inside a database transaction.
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.db.Transaction(fn)
}
