package capital

import (
	"fmt"

	"github.com/goldclear/clearing-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// GetConfig returns the clearing entity's capital configuration.
func (d *Database) GetConfig() (*Config, error) {
	var cfg Config
	if err := d.db.Order("id DESC").First(&cfg).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch capital config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig persists a capital configuration row.
func (d *Database) SaveConfig(cfg *Config) error {
	return d.db.Create(cfg).Error
}

// CreateReservation persists a new open capital reservation.
func (d *Database) CreateReservation(r *Reservation) error {
	return d.db.Create(r).Error
}

// ReleaseReservation marks a reservation released so it stops
// contributing exposure.
func (d *Database) ReleaseReservation(reservationID string) error {
	result := d.db.Model(&Reservation{}).
		Where("reservation_id = ?", reservationID).
		Update("status", "RELEASED")
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CurrentBook assembles the active exposure book: open reservations
// plus every non-terminal settlement's notional.
func (d *Database) CurrentBook() (Book, error) {
	cfg, err := d.GetConfig()
	if err != nil {
		return Book{}, err
	}

	book := Book{
		CapitalBaseMinor:   cfg.CapitalBaseMinor,
		HardstopLimitMinor: cfg.HardstopLimitMinor,
	}

	var reservations []Reservation
	if err := d.db.Where("status = ?", "OPEN").Find(&reservations).Error; err != nil {
		return Book{}, fmt.Errorf("failed to fetch open reservations: %w", err)
	}
	for _, r := range reservations {
		book.Positions = append(book.Positions, Position{
			ID:            r.ReservationID,
			Kind:          KindReservation,
			NotionalMinor: r.NotionalMinor,
			CreatedAt:     r.CreatedAt,
		})
	}

	var settlements []types.Settlement
	if err := d.db.Where("status NOT IN ?", []types.Status{
		types.StatusSettled, types.StatusFailed, types.StatusCancelled,
	}).Find(&settlements).Error; err != nil {
		return Book{}, fmt.Errorf("failed to fetch open settlements: %w", err)
	}
	for _, s := range settlements {
		book.Positions = append(book.Positions, Position{
			ID:            s.SettlementID,
			Kind:          KindSettlement,
			NotionalMinor: s.NotionalMinor,
			CreatedAt:     s.CreatedAt,
		})
	}

	return book, nil
}
