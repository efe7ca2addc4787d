package corridor

import (
	"time"

	"gorm.io/gorm"
)

// Corridor status values.
const (
	CorridorActive    = "ACTIVE"
	CorridorSuspended = "SUSPENDED"
)

// Hub status values.
const (
	HubOnline   = "ONLINE"
	HubDegraded = "DEGRADED"
	HubOffline  = "OFFLINE"
)

// Corridor is a trading corridor between jurisdictions. A suspended
// corridor hard-blocks every settlement routed through it.
type Corridor struct {
	gorm.Model       `json:"-"`
	CorridorID       string    `gorm:"uniqueIndex" json:"corridor_id"`
	Name             string    `json:"name"`
	Status           string    `json:"status"`
	MaxNotionalMinor int64     `json:"max_notional_minor"`
	Currency         string    `json:"currency"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Hub is a physical vault/clearing hub. Offline hubs hard-block;
// degraded hubs warn.
type Hub struct {
	gorm.Model `json:"-"`
	HubID      string    `gorm:"uniqueIndex" json:"hub_id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
