package database

import (
	"fmt"

	"github.com/goldclear/clearing-api/internal/capital"
	"github.com/goldclear/clearing-api/internal/corridor"
	"github.com/goldclear/clearing-api/internal/database/migrations"
	"github.com/goldclear/clearing-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	if path == "" {
		path = "clearing.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddLedgerEntries(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.AddBreachEvents(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate other schemas
	err = db.AutoMigrate(
		&types.Settlement{},
		&types.IdempotencyRecord{},
		&capital.Reservation{},
		&capital.Config{},
		&corridor.Corridor{},
		&corridor.Hub{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
