package capital

import (
	"time"

	"gorm.io/gorm"
)

// Level is the capital adequacy breach level.
type Level string

const (
	LevelClear   Level = "CLEAR"
	LevelCaution Level = "CAUTION"
	LevelBreach  Level = "BREACH"
)

// Rank orders levels for transition comparison.
func (l Level) Rank() int {
	switch l {
	case LevelCaution:
		return 1
	case LevelBreach:
		return 2
	default:
		return 0
	}
}

// PositionKind identifies what contributes exposure to the book.
type PositionKind string

const (
	KindReservation PositionKind = "reservation"
	KindOrder       PositionKind = "order"
	KindSettlement  PositionKind = "settlement"
)

// Position is one exposure contributor in the active book.
type Position struct {
	ID            string       `json:"id"`
	Kind          PositionKind `json:"kind"`
	NotionalMinor int64        `json:"notional_minor"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Book is the aggregate state the snapshot is a pure function of.
type Book struct {
	CapitalBaseMinor   int64
	HardstopLimitMinor int64
	Positions          []Position
}

// Driver is one ranked exposure contributor.
type Driver struct {
	PositionID    string       `json:"position_id"`
	Kind          PositionKind `json:"kind"`
	NotionalMinor int64        `json:"notional_minor"`
	ShareBps      int64        `json:"share_bps"`
}

// Snapshot is the ephemeral capital adequacy picture. All money fields
// are minor units, all ratios basis points; no floating point so the
// classification is reproducible bit for bit.
type Snapshot struct {
	CapitalBaseMinor    int64     `json:"capital_base_minor"`
	ActiveExposureMinor int64     `json:"active_exposure_minor"`
	ECRBps              int64     `json:"ecr_bps"`
	HardstopLimitMinor  int64     `json:"hardstop_limit_minor"`
	HardstopUtilBps     int64     `json:"hardstop_util_bps"`
	ExpectedLossMinor   int64     `json:"expected_loss_minor"`
	VaR95Minor          int64     `json:"var_95_minor"`
	VaR99Minor          int64     `json:"var_99_minor"`
	TVaR99Minor         int64     `json:"tvar_99_minor"`
	BufferVsTVaR99Minor int64     `json:"buffer_vs_tvar99_minor"`
	Level               Level     `json:"level"`
	Reasons             []string  `json:"reasons"`
	TopDrivers          []Driver  `json:"top_drivers"`
	AsOf                time.Time `json:"as_of"`
}

// Params are the risk thresholds and tail-risk factors. The zero value
// is unusable; use DefaultParams for the Phase-1 charter defaults.
type Params struct {
	ECRCautionBps      int64
	ECRBreachBps       int64
	HardstopCautionBps int64
	HardstopBreachBps  int64

	// Tail-risk factors applied to active exposure, in basis points.
	ExpectedLossBps int64
	VaR95Bps        int64
	VaR99Bps        int64
	TVaR99Bps       int64

	TopDriverCount int
}

// DefaultParams returns the Phase-1 charter thresholds: ECR caution at
// 6.0x, breach at 8.0x; hardstop caution at 80%, breach at 95%.
func DefaultParams() Params {
	return Params{
		ECRCautionBps:      60000,
		ECRBreachBps:       80000,
		HardstopCautionBps: 8000,
		HardstopBreachBps:  9500,
		ExpectedLossBps:    40,
		VaR95Bps:           250,
		VaR99Bps:           400,
		TVaR99Bps:          520,
		TopDriverCount:     5,
	}
}

// Reservation is an open capital reservation contributing exposure
// ahead of a settlement being opened for it.
type Reservation struct {
	gorm.Model    `json:"-"`
	ReservationID string    `gorm:"uniqueIndex" json:"reservation_id"`
	OrgID         string    `json:"org_id"`
	ListingID     string    `json:"listing_id"`
	NotionalMinor int64     `json:"notional_minor"`
	Status        string    `json:"status"` // OPEN, RELEASED
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Config is the clearing entity's capital base and hardstop limit.
// A single row, updated by treasury out of band.
type Config struct {
	gorm.Model         `json:"-"`
	CapitalBaseMinor   int64     `json:"capital_base_minor"`
	HardstopLimitMinor int64     `json:"hardstop_limit_minor"`
	UpdatedAt          time.Time `json:"updated_at"`
}
