package migrations

import (
	"github.com/goldclear/clearing-api/internal/ledger"
	"gorm.io/gorm"
)

func AddLedgerEntries(db *gorm.DB) error {
	return db.AutoMigrate(&ledger.Entry{})
}
