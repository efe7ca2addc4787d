package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeFee(t *testing.T) {
	t.Parallel()

	schedule := DefaultSchedule()

	tests := []struct {
		name           string
		notionalMinor  int64
		wantFeeMinor   int64
		wantMinApplied bool
	}{
		{
			name:           "standard notional above minimum",
			notionalMinor:  10_000_000,
			wantFeeMinor:   35_000,
			wantMinApplied: false,
		},
		{
			name:           "small notional floors at minimum",
			notionalMinor:  100_000,
			wantFeeMinor:   2500,
			wantMinApplied: true,
		},
		{
			name:           "notional exactly at minimum boundary",
			notionalMinor:  2500 * 10000 / 35,
			wantFeeMinor:   2500,
			wantMinApplied: true,
		},
		{
			name:           "large notional",
			notionalMinor:  2_000_000_000,
			wantFeeMinor:   7_000_000,
			wantMinApplied: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			quote := schedule.Compute(tt.notionalMinor)
			assert.Equal(t, tt.wantFeeMinor, quote.FeeMinor)
			assert.Equal(t, tt.wantMinApplied, quote.MinimumApplied)
			assert.Equal(t, tt.notionalMinor, quote.NotionalMinor)
			assert.Equal(t, schedule.ClearingFeeBps, quote.FeeBps)
		})
	}
}

func TestComputeFeeRoundsTowardZero(t *testing.T) {
	t.Parallel()

	// No minimum so the raw bps computation is observable.
	schedule := Schedule{ClearingFeeBps: 35, MinimumFeeMinor: 0}

	// 12345 * 35 / 10000 = 43.2075, truncated to 43.
	quote := schedule.Compute(12_345)
	assert.Equal(t, int64(43), quote.FeeMinor)
	assert.False(t, quote.MinimumApplied)
}
