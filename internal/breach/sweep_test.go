package breach

import (
	"path/filepath"
	"testing"

	"github.com/goldclear/clearing-api/internal/capital"
	"github.com/goldclear/clearing-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newSweepHarness(t *testing.T, params capital.Params, capitalBase, hardstopLimit int64) (*Service, *capital.Database) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "breach.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&Event{}, &State{},
		&capital.Config{}, &capital.Reservation{},
		&types.Settlement{},
	))

	capitalService := capital.NewService(db, params)
	require.NoError(t, capitalService.GetDB().SaveConfig(&capital.Config{
		CapitalBaseMinor:   capitalBase,
		HardstopLimitMinor: hardstopLimit,
	}))

	return NewService(db, capitalService), capitalService.GetDB()
}

func reserve(t *testing.T, capDB *capital.Database, id string, notionalMinor int64) {
	t.Helper()
	require.NoError(t, capDB.CreateReservation(&capital.Reservation{
		ReservationID: id,
		OrgID:         "ORG_test",
		NotionalMinor: notionalMinor,
		Status:        "OPEN",
	}))
}

func TestSweepQuietOnClearBook(t *testing.T) {
	t.Parallel()

	svc, capDB := newSweepHarness(t, capital.DefaultParams(), 100_000_000_000, 10_000_000_000)
	reserve(t, capDB, "RSV_1", 6_000_000_000)

	result, err := svc.RunSweep()
	require.NoError(t, err)
	assert.Empty(t, result.NewEvents)
	assert.Equal(t, capital.LevelClear, result.Snapshot.Level)

	// Steady state stays silent.
	result, err = svc.RunSweep()
	require.NoError(t, err)
	assert.Empty(t, result.NewEvents)
}

func TestSweepEmitsOnHardstopCautionEntry(t *testing.T) {
	t.Parallel()

	svc, capDB := newSweepHarness(t, capital.DefaultParams(), 100_000_000_000, 10_000_000_000)
	reserve(t, capDB, "RSV_1", 6_000_000_000)

	_, err := svc.RunSweep()
	require.NoError(t, err)

	// Utilization climbs from 60% to 82%: one HARDSTOP_CAUTION event.
	reserve(t, capDB, "RSV_2", 2_200_000_000)

	result, err := svc.RunSweep()
	require.NoError(t, err)
	require.Len(t, result.NewEvents, 1)

	event := result.NewEvents[0]
	assert.Equal(t, EventHardstopCaution, event.Type)
	assert.Equal(t, FamilyHardstop, event.Family)
	assert.Equal(t, SeverityWarn, event.Severity)
	assert.Contains(t, event.SnapshotJSON, "hardstop_util_bps")
	assert.Contains(t, event.Message, "CLEAR -> CAUTION")

	// Unchanged exposure: the sweep is idempotent.
	result, err = svc.RunSweep()
	require.NoError(t, err)
	assert.Empty(t, result.NewEvents)
}

func TestSweepEmitsAgainOnReEntry(t *testing.T) {
	t.Parallel()

	svc, capDB := newSweepHarness(t, capital.DefaultParams(), 100_000_000_000, 10_000_000_000)
	reserve(t, capDB, "RSV_base", 6_000_000_000)
	reserve(t, capDB, "RSV_spike", 2_200_000_000)

	result, err := svc.RunSweep()
	require.NoError(t, err)
	require.Len(t, result.NewEvents, 1)
	firstEventID := result.NewEvents[0].EventID

	// Exposure drops back under the caution threshold: the recovery is
	// recorded but no event is emitted.
	require.NoError(t, capDB.ReleaseReservation("RSV_spike"))
	result, err = svc.RunSweep()
	require.NoError(t, err)
	assert.Empty(t, result.NewEvents)

	// A genuine re-entry above the threshold is a fresh transition and
	// produces a second, distinct event.
	reserve(t, capDB, "RSV_spike_2", 2_200_000_000)
	result, err = svc.RunSweep()
	require.NoError(t, err)
	require.Len(t, result.NewEvents, 1)
	assert.Equal(t, EventHardstopCaution, result.NewEvents[0].Type)
	assert.NotEqual(t, firstEventID, result.NewEvents[0].EventID)

	events, err := svc.ListEvents(10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestSweepEscalatesCautionToBreach(t *testing.T) {
	t.Parallel()

	svc, capDB := newSweepHarness(t, capital.DefaultParams(), 100_000_000_000, 10_000_000_000)
	reserve(t, capDB, "RSV_1", 8_200_000_000)

	result, err := svc.RunSweep()
	require.NoError(t, err)
	require.Len(t, result.NewEvents, 1)
	assert.Equal(t, EventHardstopCaution, result.NewEvents[0].Type)

	reserve(t, capDB, "RSV_2", 1_400_000_000)

	result, err = svc.RunSweep()
	require.NoError(t, err)
	require.Len(t, result.NewEvents, 1)
	assert.Equal(t, EventHardstopBreach, result.NewEvents[0].Type)
	assert.Equal(t, SeverityCritical, result.NewEvents[0].Severity)
	assert.Contains(t, result.NewEvents[0].Message, "CAUTION -> BREACH")
}

func TestSweepECRFamilies(t *testing.T) {
	t.Parallel()

	// Small capital base so ECR trips while hardstop headroom is ample.
	svc, capDB := newSweepHarness(t, capital.DefaultParams(), 1_000_000_000, 1_000_000_000_000)
	reserve(t, capDB, "RSV_1", 6_500_000_000)

	result, err := svc.RunSweep()
	require.NoError(t, err)
	require.Len(t, result.NewEvents, 1)
	assert.Equal(t, EventECRCaution, result.NewEvents[0].Type)

	reserve(t, capDB, "RSV_2", 2_000_000_000)

	result, err = svc.RunSweep()
	require.NoError(t, err)
	require.Len(t, result.NewEvents, 1)
	assert.Equal(t, EventECRBreach, result.NewEvents[0].Type)
}

func TestSweepBufferNegative(t *testing.T) {
	t.Parallel()

	params := capital.DefaultParams()
	params.TVaR99Bps = 3000

	svc, capDB := newSweepHarness(t, params, 1_000_000_000, 1_000_000_000_000)
	reserve(t, capDB, "RSV_1", 5_000_000_000)

	result, err := svc.RunSweep()
	require.NoError(t, err)
	require.Len(t, result.NewEvents, 1)
	assert.Equal(t, EventBufferNegative, result.NewEvents[0].Type)
	assert.Equal(t, SeverityCritical, result.NewEvents[0].Severity)
}

func TestSweepSettlementsContributeExposure(t *testing.T) {
	t.Parallel()

	svc, _ := newSweepHarness(t, capital.DefaultParams(), 100_000_000_000, 10_000_000_000)

	db := svc.db.db
	require.NoError(t, db.Create(&types.Settlement{
		SettlementID:  "STL_open",
		NotionalMinor: 8_200_000_000,
		Status:        types.StatusEscrowOpen,
		Version:       1,
	}).Error)
	require.NoError(t, db.Create(&types.Settlement{
		SettlementID:  "STL_done",
		NotionalMinor: 9_000_000_000,
		Status:        types.StatusSettled,
		Version:       1,
	}).Error)

	result, err := svc.RunSweep()
	require.NoError(t, err)

	// Only the open settlement counts; the settled one has left the book.
	assert.Equal(t, int64(8_200_000_000), result.Snapshot.ActiveExposureMinor)
	require.Len(t, result.NewEvents, 1)
	assert.Equal(t, EventHardstopCaution, result.NewEvents[0].Type)
}
