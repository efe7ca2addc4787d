package fees

// Schedule is the clearing fee schedule applied at settlement open.
// All figures are fixed point: basis points and minor units.
type Schedule struct {
	ClearingFeeBps  int64
	MinimumFeeMinor int64
}

// DefaultSchedule returns the standard corridor fee schedule: 35 bps
// of notional with a 25.00 minimum.
func DefaultSchedule() Schedule {
	return Schedule{
		ClearingFeeBps:  35,
		MinimumFeeMinor: 2500,
	}
}

// Quote is a computed clearing fee for a notional.
type Quote struct {
	NotionalMinor   int64 `json:"notional_minor"`
	FeeBps          int64 `json:"fee_bps"`
	FeeMinor        int64 `json:"fee_minor"`
	MinimumApplied  bool  `json:"minimum_applied"`
	MinimumFeeMinor int64 `json:"minimum_fee_minor"`
}

// Compute derives the clearing fee for a notional amount. Pure integer
// math; rounding is always toward zero before the minimum floor.
func (s Schedule) Compute(notionalMinor int64) Quote {
	fee := notionalMinor * s.ClearingFeeBps / 10000
	minimumApplied := false
	if fee < s.MinimumFeeMinor {
		fee = s.MinimumFeeMinor
		minimumApplied = true
	}
	return Quote{
		NotionalMinor:   notionalMinor,
		FeeBps:          s.ClearingFeeBps,
		FeeMinor:        fee,
		MinimumApplied:  minimumApplied,
		MinimumFeeMinor: s.MinimumFeeMinor,
	}
}
