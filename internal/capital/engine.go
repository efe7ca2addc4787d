package capital

import (
	"fmt"
	"sort"
	"time"
)

// ratioBps computes numerator/denominator in basis points using pure
// integer math. A non-positive denominator saturates the ratio so a
// misconfigured book classifies as a breach rather than dividing by
// zero or silently passing.
func ratioBps(numerator, denominator int64) int64 {
	if denominator <= 0 {
		if numerator <= 0 {
			return 0
		}
		return 1 << 40
	}
	return numerator * 10000 / denominator
}

// scaleBps applies a basis-point factor to an amount.
func scaleBps(amountMinor, bps int64) int64 {
	return amountMinor * bps / 10000
}

// Compute derives a capital snapshot from the active book. It is a
// pure function: same book and params, same snapshot (modulo asOf).
func Compute(book Book, params Params, asOf time.Time) Snapshot {
	var exposure int64
	for _, p := range book.Positions {
		exposure += p.NotionalMinor
	}

	snap := Snapshot{
		CapitalBaseMinor:    book.CapitalBaseMinor,
		ActiveExposureMinor: exposure,
		ECRBps:              ratioBps(exposure, book.CapitalBaseMinor),
		HardstopLimitMinor:  book.HardstopLimitMinor,
		HardstopUtilBps:     ratioBps(exposure, book.HardstopLimitMinor),
		ExpectedLossMinor:   scaleBps(exposure, params.ExpectedLossBps),
		VaR95Minor:          scaleBps(exposure, params.VaR95Bps),
		VaR99Minor:          scaleBps(exposure, params.VaR99Bps),
		TVaR99Minor:         scaleBps(exposure, params.TVaR99Bps),
		AsOf:                asOf,
	}
	snap.BufferVsTVaR99Minor = snap.CapitalBaseMinor - snap.TVaR99Minor

	snap.Level, snap.Reasons = classify(snap, params)
	snap.TopDrivers = topDrivers(book.Positions, exposure, params.TopDriverCount)

	return snap
}

// classify derives the breach level and the ordered human-readable
// triggers. Reasons follow classification order: ECR, hardstop, buffer.
func classify(snap Snapshot, params Params) (Level, []string) {
	level := LevelClear
	var reasons []string

	raise := func(l Level, reason string) {
		if l.Rank() > level.Rank() {
			level = l
		}
		reasons = append(reasons, reason)
	}

	switch {
	case snap.ECRBps >= params.ECRBreachBps:
		raise(LevelBreach, fmt.Sprintf("ECR %s exceeds breach threshold %s",
			formatRatio(snap.ECRBps), formatRatio(params.ECRBreachBps)))
	case snap.ECRBps >= params.ECRCautionBps:
		raise(LevelCaution, fmt.Sprintf("ECR %s exceeds caution threshold %s",
			formatRatio(snap.ECRBps), formatRatio(params.ECRCautionBps)))
	}

	switch {
	case snap.HardstopUtilBps >= params.HardstopBreachBps:
		raise(LevelBreach, fmt.Sprintf("hardstop utilization %s exceeds breach threshold %s",
			formatPct(snap.HardstopUtilBps), formatPct(params.HardstopBreachBps)))
	case snap.HardstopUtilBps >= params.HardstopCautionBps:
		raise(LevelCaution, fmt.Sprintf("hardstop utilization %s exceeds caution threshold %s",
			formatPct(snap.HardstopUtilBps), formatPct(params.HardstopCautionBps)))
	}

	if snap.BufferVsTVaR99Minor < 0 {
		raise(LevelBreach, "capital buffer versus TVaR99 is negative")
	}

	return level, reasons
}

// topDrivers ranks the largest exposure contributors descending by
// notional, ties broken by earliest creation time.
func topDrivers(positions []Position, exposure int64, n int) []Driver {
	if n <= 0 || len(positions) == 0 {
		return nil
	}

	sorted := make([]Position, len(positions))
	copy(sorted, positions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].NotionalMinor != sorted[j].NotionalMinor {
			return sorted[i].NotionalMinor > sorted[j].NotionalMinor
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}

	drivers := make([]Driver, 0, len(sorted))
	for _, p := range sorted {
		drivers = append(drivers, Driver{
			PositionID:    p.ID,
			Kind:          p.Kind,
			NotionalMinor: p.NotionalMinor,
			ShareBps:      ratioBps(p.NotionalMinor, exposure),
		})
	}
	return drivers
}

// formatRatio renders a basis-point leverage ratio, e.g. 52000 -> "5.20x".
func formatRatio(bps int64) string {
	return fmt.Sprintf("%d.%02dx", bps/10000, (bps%10000)/100)
}

// formatPct renders basis points as a percentage, e.g. 8200 -> "82.00%".
func formatPct(bps int64) string {
	return fmt.Sprintf("%d.%02d%%", bps/100, bps%100)
}
