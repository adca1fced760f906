package analytics

import (
	"time"

	"github.com/NotCoffee418/home_energy_monitor/pkg/types"
)

// SampleStore is the read surface the engine needs from the reading history.
// Implemented by meterdb.Store; tests use an in-memory fake.
type SampleStore interface {
	// ReadingsInRange returns readings with timestamp in [start, end], ascending.
	ReadingsInRange(start, end time.Time) ([]types.EnergyReading, error)
	// PowerAggregates returns MIN/MAX/AVG/COUNT of instantaneous power in [start, end].
	PowerAggregates(start, end time.Time) (types.PowerAggregate, error)
	// BoundaryReadings returns the earliest and latest reading in [start, end],
	// or nil, nil when the range is empty.
	BoundaryReadings(start, end time.Time) (*types.EnergyReading, *types.EnergyReading, error)
}

// BucketedPoint is the last sample observed within one time bucket.
type BucketedPoint struct {
	T int64    `json:"t"` // unix ms of the sample
	P *float64 `json:"p"` // instantaneous power in watts
	E *float64 `json:"e"` // cumulative consumption counter in kWh
}

// DailyUsagePoint is derived consumption for one local calendar day.
// Kwh is never negative; a negative counter delta aborts the whole query.
type DailyUsagePoint struct {
	T         int64   `json:"t"` // local noon of the day, unix ms
	Kwh       float64 `json:"kwh"`
	IsPartial bool    `json:"is_partial"` // sample coverage under 23 hours
}

// MovingAvgPoint is one trailing-window average over daily usage.
type MovingAvgPoint struct {
	T   int64   `json:"t"`
	Kwh float64 `json:"kwh"`
}

// RangeStats summarizes one closed interval. EnergyUsedKwh is nil when the
// range is empty or either boundary reading lacks a cumulative counter.
type RangeStats struct {
	EnergyUsedKwh *float64 `json:"energy_used_kwh"`
	MinPowerWatts *float64 `json:"min_power_watts"`
	MaxPowerWatts *float64 `json:"max_power_watts"`
	AvgPowerWatts *float64 `json:"avg_power_watts"`
	Count         int64    `json:"count"`
}
