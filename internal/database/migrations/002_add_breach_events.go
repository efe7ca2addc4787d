package migrations

import (
	"github.com/goldclear/clearing-api/internal/breach"
	"gorm.io/gorm"
)

func AddBreachEvents(db *gorm.DB) error {
	if err := db.AutoMigrate(&breach.Event{}); err != nil {
		return err
	}

	return db.AutoMigrate(&breach.State{})
}
