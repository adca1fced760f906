package types

import "time"

// EnergyReading is one ingested meter observation.
// Timestamp is the primary key; readings are append-only and never updated.
// Cumulative counters equal to exactly zero are stored as nil because a
// counter that has been nonzero cannot legitimately return to zero.
type EnergyReading struct {
	Timestamp        int64    `db:"timestamp"` // unix milliseconds
	MeterID          string   `db:"meter_id"`
	PowerWatts       *float64 `db:"power_watts"`
	EnergyInKwh      *float64 `db:"energy_in_kwh"`
	EnergyOutKwh     *float64 `db:"energy_out_kwh"`
	PowerPhase1Watts *float64 `db:"power_phase_1_watts"`
	PowerPhase2Watts *float64 `db:"power_phase_2_watts"`
	PowerPhase3Watts *float64 `db:"power_phase_3_watts"`
	RawPayload       string   `db:"raw_payload"`
}

// Time returns the reading timestamp as a time.Time.
func (r *EnergyReading) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// HasEnergyIn reports whether the reading carries a usable cumulative
// consumption counter. Zero counters count as absent.
func (r *EnergyReading) HasEnergyIn() bool {
	return r.EnergyInKwh != nil && *r.EnergyInKwh > 0
}
