package meterdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotCoffee418/home_energy_monitor/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := openDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	schema, err := migrationFS.ReadFile("migrations/000001_create_energy_readings.up.sql")
	require.NoError(t, err)
	_, err = conn.Exec(string(schema))
	require.NoError(t, err)

	return NewStore(conn)
}

func fp(v float64) *float64 {
	return &v
}

func testReading(ts time.Time, powerWatts, energyInKwh *float64) *types.EnergyReading {
	return &types.EnergyReading{
		Timestamp:   ts.UnixMilli(),
		MeterID:     "test-meter",
		PowerWatts:  powerWatts,
		EnergyInKwh: energyInKwh,
		RawPayload:  "{}",
	}
}

func TestInsertDuplicateTimestampIsNoOp(t *testing.T) {
	store := newTestStore(t)
	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.InsertEnergyReading(testReading(ts, fp(500), fp(100.0))))
	// The feed may redeliver; the second insert must not error or overwrite.
	require.NoError(t, store.InsertEnergyReading(testReading(ts, fp(999), fp(200.0))))

	count, err := store.CountReadings()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	latest, err := store.LatestReading()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 500.0, *latest.PowerWatts)
}

func TestReadingsInRangeIsAscendingAndInclusive(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 4; i >= 0; i-- {
		require.NoError(t, store.InsertEnergyReading(
			testReading(base.Add(time.Duration(i)*time.Minute), fp(float64(500+i)), fp(100.0+float64(i)))))
	}

	readings, err := store.ReadingsInRange(base.Add(time.Minute), base.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, base.Add(time.Minute).UnixMilli(), readings[0].Timestamp)
	assert.Equal(t, base.Add(3*time.Minute).UnixMilli(), readings[2].Timestamp)
}

func TestScanNormalizesZeroCounters(t *testing.T) {
	store := newTestStore(t)
	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	// Simulate a legacy row that was stored before ingest-side normalization.
	_, err := store.db.Exec(
		"INSERT INTO energy_readings (timestamp, power_watts, energy_in_kwh, raw_payload) VALUES (?, ?, ?, ?)",
		ts.UnixMilli(), 500.0, 0.0, "{}")
	require.NoError(t, err)

	latest, err := store.LatestReading()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Nil(t, latest.EnergyInKwh)
	assert.Equal(t, 500.0, *latest.PowerWatts)
}

func TestPowerAggregates(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertEnergyReading(testReading(base, fp(500), fp(100.0))))
	require.NoError(t, store.InsertEnergyReading(testReading(base.Add(time.Minute), fp(1210), fp(100.5))))
	// A row without a power value must not affect the count.
	require.NoError(t, store.InsertEnergyReading(testReading(base.Add(2*time.Minute), nil, fp(101.0))))

	agg, err := store.PowerAggregates(base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), agg.Count)
	assert.Equal(t, 500.0, *agg.MinWatts)
	assert.Equal(t, 1210.0, *agg.MaxWatts)
	assert.InDelta(t, 855.0, *agg.AvgWatts, 1e-9)
}

func TestPowerAggregatesEmptyRange(t *testing.T) {
	store := newTestStore(t)

	agg, err := store.PowerAggregates(time.Unix(0, 0), time.Unix(1000, 0))
	require.NoError(t, err)
	assert.Zero(t, agg.Count)
	assert.Nil(t, agg.MinWatts)
	assert.Nil(t, agg.AvgWatts)
}

func TestBoundaryReadings(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	first, last, err := store.BoundaryReadings(base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, first)
	assert.Nil(t, last)

	require.NoError(t, store.InsertEnergyReading(testReading(base, fp(500), fp(100.0))))
	require.NoError(t, store.InsertEnergyReading(testReading(base.Add(time.Minute), fp(600), fp(100.5))))

	first, last, err = store.BoundaryReadings(base, base.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, first)
	require.NotNil(t, last)
	assert.Equal(t, base.UnixMilli(), first.Timestamp)
	assert.Equal(t, base.Add(time.Minute).UnixMilli(), last.Timestamp)
}

func TestNullifyZeroEnergy(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	_, err := store.db.Exec(
		"INSERT INTO energy_readings (timestamp, energy_in_kwh, energy_out_kwh, raw_payload) VALUES (?, ?, ?, ?)",
		base.UnixMilli(), 0.0, 0.0, "{}")
	require.NoError(t, err)
	require.NoError(t, store.InsertEnergyReading(testReading(base.Add(time.Minute), fp(500), fp(100.0))))

	affected, err := store.NullifyZeroEnergy()
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	var nullCount int64
	err = store.db.QueryRow(
		"SELECT COUNT(*) FROM energy_readings WHERE energy_in_kwh IS NULL").Scan(&nullCount)
	require.NoError(t, err)
	assert.Equal(t, int64(1), nullCount)
}

func TestCountReadingsSince(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, store.InsertEnergyReading(
			testReading(base.Add(time.Duration(i)*time.Hour), fp(500), fp(100.0))))
	}

	count, err := store.CountReadingsSince(base.Add(2 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
