package meterdb

import (
	"database/sql"
	"time"

	"github.com/NotCoffee418/home_energy_monitor/pkg/meterutils"
	"github.com/NotCoffee418/home_energy_monitor/pkg/types"
)

// Store wraps a sqlite handle with the query surface the analytics engine
// and the service binaries consume. Construct one per database; tests can
// point it at a throwaway file.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const readingColumns = "timestamp, meter_id, power_watts, energy_in_kwh, energy_out_kwh, " +
	"power_phase_1_watts, power_phase_2_watts, power_phase_3_watts, raw_payload"

// InsertEnergyReading persists one reading. The feed may redeliver, so a
// duplicate timestamp is silently dropped rather than treated as an error.
func (s *Store) InsertEnergyReading(reading *types.EnergyReading) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO energy_readings ("+readingColumns+") "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		reading.Timestamp,
		reading.MeterID,
		nullableFloat(reading.PowerWatts),
		nullableFloat(reading.EnergyInKwh),
		nullableFloat(reading.EnergyOutKwh),
		nullableFloat(reading.PowerPhase1Watts),
		nullableFloat(reading.PowerPhase2Watts),
		nullableFloat(reading.PowerPhase3Watts),
		reading.RawPayload,
	)
	return err
}

// ReadingsInRange returns all readings with timestamp in [start, end] ascending.
func (s *Store) ReadingsInRange(start, end time.Time) ([]types.EnergyReading, error) {
	rows, err := s.db.Query(
		"SELECT "+readingColumns+" FROM energy_readings "+
			"WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC",
		start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []types.EnergyReading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, *reading)
	}
	return readings, rows.Err()
}

// PowerAggregates computes MIN/MAX/AVG/COUNT of instantaneous power over
// [start, end] in a single grouped query.
func (s *Store) PowerAggregates(start, end time.Time) (types.PowerAggregate, error) {
	query := `
		SELECT
			MIN(power_watts),
			MAX(power_watts),
			AVG(power_watts),
			COUNT(power_watts)
		FROM energy_readings
		WHERE timestamp >= ? AND timestamp <= ?
	`

	var minWatts, maxWatts, avgWatts sql.NullFloat64
	var count int64
	err := s.db.QueryRow(query, start.UnixMilli(), end.UnixMilli()).
		Scan(&minWatts, &maxWatts, &avgWatts, &count)
	if err != nil {
		return types.PowerAggregate{}, err
	}

	return types.PowerAggregate{
		MinWatts: floatOrNil(minWatts),
		MaxWatts: floatOrNil(maxWatts),
		AvgWatts: floatOrNil(avgWatts),
		Count:    count,
	}, nil
}

// BoundaryReadings returns the earliest and latest readings in [start, end]
// by timestamp. Both are nil when the range holds no readings.
func (s *Store) BoundaryReadings(start, end time.Time) (*types.EnergyReading, *types.EnergyReading, error) {
	first, err := s.queryOneReading(
		"SELECT "+readingColumns+" FROM energy_readings "+
			"WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC LIMIT 1",
		start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, nil, err
	}
	if first == nil {
		return nil, nil, nil
	}

	last, err := s.queryOneReading(
		"SELECT "+readingColumns+" FROM energy_readings "+
			"WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp DESC LIMIT 1",
		start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, nil, err
	}
	return first, last, nil
}

// LatestReading returns the newest reading, or nil when the table is empty.
func (s *Store) LatestReading() (*types.EnergyReading, error) {
	return s.queryOneReading(
		"SELECT " + readingColumns + " FROM energy_readings ORDER BY timestamp DESC LIMIT 1",
	)
}

func (s *Store) CountReadingsSince(t time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM energy_readings WHERE timestamp >= ?",
		t.UnixMilli(),
	).Scan(&count)
	return count, err
}

func (s *Store) CountReadings() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM energy_readings").Scan(&count)
	return count, err
}

// NullifyZeroEnergy rewrites stored zero cumulative counters to NULL.
// Zero is never a real reading for a counter that has been nonzero; rows
// from before ingest-side normalization may still carry it.
func (s *Store) NullifyZeroEnergy() (int64, error) {
	result, err := s.db.Exec(
		"UPDATE energy_readings SET energy_in_kwh = NULL WHERE energy_in_kwh = 0",
	)
	if err != nil {
		return 0, err
	}
	affectedIn, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	result, err = s.db.Exec(
		"UPDATE energy_readings SET energy_out_kwh = NULL WHERE energy_out_kwh = 0",
	)
	if err != nil {
		return affectedIn, err
	}
	affectedOut, err := result.RowsAffected()
	if err != nil {
		return affectedIn, err
	}
	return affectedIn + affectedOut, nil
}

func (s *Store) queryOneReading(query string, args ...any) (*types.EnergyReading, error) {
	reading, err := scanReading(s.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reading, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (*types.EnergyReading, error) {
	var reading types.EnergyReading
	var meterID sql.NullString
	var power, energyIn, energyOut, phase1, phase2, phase3 sql.NullFloat64

	err := row.Scan(
		&reading.Timestamp,
		&meterID,
		&power,
		&energyIn,
		&energyOut,
		&phase1,
		&phase2,
		&phase3,
		&reading.RawPayload,
	)
	if err != nil {
		return nil, err
	}

	reading.MeterID = meterID.String
	reading.PowerWatts = floatOrNil(power)
	// Rows predating NullifyZeroEnergy may still hold zero counters.
	reading.EnergyInKwh = meterutils.NormalizeCumulativeKwh(floatOrNil(energyIn))
	reading.EnergyOutKwh = meterutils.NormalizeCumulativeKwh(floatOrNil(energyOut))
	reading.PowerPhase1Watts = floatOrNil(phase1)
	reading.PowerPhase2Watts = floatOrNil(phase2)
	reading.PowerPhase3Watts = floatOrNil(phase3)
	return &reading, nil
}

func floatOrNil(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
