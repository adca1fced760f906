// Package analytics turns raw cumulative meter readings into display-ready
// series: fixed-width bucket reduction, per-day consumption, trailing
// averages and range statistics. It holds no state besides a bounded cache
// of fetched series and is safe for concurrent use.
package analytics

import (
	"fmt"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/NotCoffee418/home_energy_monitor/pkg/meterutils"
	"github.com/NotCoffee418/home_energy_monitor/pkg/types"
)

const (
	// Native series resolution; the feed delivers roughly every 10s and
	// 2 minutes is plenty for charting a year of history.
	nativeBucketSeconds = 120

	// FetchSeries defaults to this much trailing history.
	DefaultSeriesLookback = 52 * 7 * 24 * time.Hour

	DefaultMovingAvgWindowDays = 30

	DefaultSeriesCacheSize = 1000

	// Days covering fewer hours than this are flagged partial.
	partialDayHours = 23.0

	GranularityHour   = "hour"
	GranularityMinute = "minute"
)

// Engine derives consumption analytics from a SampleStore. The timezone is
// explicit because calendar-day bucketing must not depend on whatever the
// process default happens to be.
type Engine struct {
	store       SampleStore
	loc         *time.Location
	seriesCache *lru.Cache
}

func NewEngine(store SampleStore, loc *time.Location, cacheSize int) (*Engine, error) {
	if store == nil {
		return nil, &InvalidArgumentError{Reason: "nil sample store"}
	}
	if loc == nil {
		return nil, &InvalidArgumentError{Reason: "nil timezone"}
	}
	if cacheSize <= 0 {
		cacheSize = DefaultSeriesCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Engine{
		store:       store,
		loc:         loc,
		seriesCache: cache,
	}, nil
}

type seriesCacheKey struct {
	startMs int64
	endMs   int64
}

// FetchSeries returns the native 2-minute bucket series for [start, end].
// Zero times default to the trailing 52 weeks ending now. Results are
// memoized per exact (start, end) pair with no invalidation; callers that
// want fresh data for an open-ended range pass a new end value each call.
func (e *Engine) FetchSeries(start, end time.Time) ([]BucketedPoint, error) {
	start, end = e.applyDefaultRange(start, end)
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	key := seriesCacheKey{startMs: start.UnixMilli(), endMs: end.UnixMilli()}
	if cached, ok := e.seriesCache.Get(key); ok {
		return cached.([]BucketedPoint), nil
	}

	readings, err := e.store.ReadingsInRange(start, end)
	if err != nil {
		return nil, err
	}
	series := bucketize(readings, func(ms int64) int64 {
		return ms / 1000 / nativeBucketSeconds
	})

	e.seriesCache.Add(key, series)
	return series, nil
}

// Downsample returns one point per non-empty hour or minute bucket in
// [start, end], each the last sample observed in that bucket. Buckets are
// aligned to local wall-clock boundaries.
func (e *Engine) Downsample(start, end time.Time, granularity string) ([]BucketedPoint, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	var keyFn func(int64) int64
	switch granularity {
	case GranularityHour:
		keyFn = func(ms int64) int64 {
			t := time.UnixMilli(ms).In(e.loc)
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, e.loc).Unix()
		}
	case GranularityMinute:
		keyFn = func(ms int64) int64 {
			t := time.UnixMilli(ms).In(e.loc)
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, e.loc).Unix()
		}
	default:
		return nil, &InvalidArgumentError{
			Reason: fmt.Sprintf("granularity must be %q or %q, got %q",
				GranularityHour, GranularityMinute, granularity),
		}
	}

	readings, err := e.store.ReadingsInRange(start, end)
	if err != nil {
		return nil, err
	}
	return bucketize(readings, keyFn), nil
}

// bucketize reduces ascending readings to one point per non-empty bucket,
// keeping the last sample of each bucket. Empty buckets are omitted, so
// callers must not assume uniform spacing.
func bucketize(readings []types.EnergyReading, keyFn func(int64) int64) []BucketedPoint {
	points := []BucketedPoint{}
	haveBucket := false
	var currentKey int64
	var current BucketedPoint

	for i := range readings {
		r := &readings[i]
		key := keyFn(r.Timestamp)
		if haveBucket && key != currentKey {
			points = append(points, current)
		}
		currentKey = key
		haveBucket = true
		current = BucketedPoint{
			T: r.Timestamp,
			P: r.PowerWatts,
			E: meterutils.NormalizeCumulativeKwh(r.EnergyInKwh),
		}
	}
	if haveBucket {
		points = append(points, current)
	}
	return points
}

// DailyUsage derives per-calendar-day consumption from the cumulative
// counter. Days without any valid counter sample are omitted; days whose
// coverage spans under 23 hours are flagged partial. A counter that
// decreased within a day fails the whole call with NegativeEnergyDeltaError.
func (e *Engine) DailyUsage(start, end time.Time) ([]DailyUsagePoint, error) {
	start, end = e.applyDefaultRange(start, end)
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	readings, err := e.store.ReadingsInRange(start, end)
	if err != nil {
		return nil, err
	}

	type dayBounds struct {
		year  int
		month time.Month
		day   int
		first *types.EnergyReading
		last  *types.EnergyReading
	}

	// Readings are ascending, so local dates come out in order.
	var days []dayBounds
	for i := range readings {
		r := &readings[i]
		if !r.HasEnergyIn() {
			continue
		}
		y, m, d := r.Time().In(e.loc).Date()
		if n := len(days); n > 0 && days[n-1].year == y && days[n-1].month == m && days[n-1].day == d {
			days[n-1].last = r
			continue
		}
		days = append(days, dayBounds{year: y, month: m, day: d, first: r, last: r})
	}

	result := []DailyUsagePoint{}
	for _, day := range days {
		kwh := *day.last.EnergyInKwh - *day.first.EnergyInKwh
		if kwh < 0 {
			return nil, &NegativeEnergyDeltaError{
				Date:           fmt.Sprintf("%04d-%02d-%02d", day.year, int(day.month), day.day),
				FirstTimestamp: day.first.Timestamp,
				LastTimestamp:  day.last.Timestamp,
				FirstKwh:       *day.first.EnergyInKwh,
				LastKwh:        *day.last.EnergyInKwh,
			}
		}

		hoursCovered := float64(day.last.Timestamp-day.first.Timestamp) / float64(time.Hour/time.Millisecond)
		noon := time.Date(day.year, day.month, day.day, 12, 0, 0, 0, e.loc)

		result = append(result, DailyUsagePoint{
			T:         noon.UnixMilli(),
			Kwh:       kwh,
			IsPartial: hoursCovered < partialDayHours,
		})
	}
	return result, nil
}

// MovingAverage smooths daily usage with a trailing window: point i averages
// the kwh of points [max(0, i-windowDays+1), i]. Partial days contribute
// unweighted; that bias is accepted rather than hidden. windowDays <= 0
// selects the 30-day default.
func MovingAverage(series []DailyUsagePoint, windowDays int) []MovingAvgPoint {
	if windowDays <= 0 {
		windowDays = DefaultMovingAvgWindowDays
	}
	if len(series) == 0 {
		return []MovingAvgPoint{}
	}

	sorted := make([]DailyUsagePoint, len(series))
	copy(sorted, series)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].T < sorted[j].T })

	result := make([]MovingAvgPoint, 0, len(sorted))
	sum := 0.0
	for i, point := range sorted {
		sum += point.Kwh
		if i >= windowDays {
			sum -= sorted[i-windowDays].Kwh
		}
		n := i + 1
		if n > windowDays {
			n = windowDays
		}
		result = append(result, MovingAvgPoint{T: point.T, Kwh: sum / float64(n)})
	}
	return result
}

// Stats summarizes [start, end]: count and min/max/avg of instantaneous
// power plus the cumulative counter delta. An empty range is a valid result
// with Count zero; a counter that decreased within the range is an error.
func (e *Engine) Stats(start, end time.Time) (RangeStats, error) {
	if err := validateRange(start, end); err != nil {
		return RangeStats{}, err
	}

	agg, err := e.store.PowerAggregates(start, end)
	if err != nil {
		return RangeStats{}, err
	}

	first, last, err := e.store.BoundaryReadings(start, end)
	if err != nil {
		return RangeStats{}, err
	}

	var energyUsed *float64
	if first != nil && last != nil && first.HasEnergyIn() && last.HasEnergyIn() {
		delta := *last.EnergyInKwh - *first.EnergyInKwh
		if delta < 0 {
			return RangeStats{}, &NegativeEnergyDeltaError{
				FirstTimestamp: first.Timestamp,
				LastTimestamp:  last.Timestamp,
				FirstKwh:       *first.EnergyInKwh,
				LastKwh:        *last.EnergyInKwh,
			}
		}
		energyUsed = &delta
	}

	return RangeStats{
		EnergyUsedKwh: energyUsed,
		MinPowerWatts: agg.MinWatts,
		MaxPowerWatts: agg.MaxWatts,
		AvgPowerWatts: agg.AvgWatts,
		Count:         agg.Count,
	}, nil
}

// AverageDailyUsage returns mean consumption per day over [start, end]:
// total counter delta divided by the day span between the first and last
// valid readings. Needs at least two valid readings with distinct timestamps.
func (e *Engine) AverageDailyUsage(start, end time.Time) (float64, error) {
	start, end = e.applyDefaultRange(start, end)
	if err := validateRange(start, end); err != nil {
		return 0, err
	}

	readings, err := e.store.ReadingsInRange(start, end)
	if err != nil {
		return 0, err
	}

	var first, last *types.EnergyReading
	valid := 0
	for i := range readings {
		r := &readings[i]
		if !r.HasEnergyIn() {
			continue
		}
		if first == nil {
			first = r
		}
		last = r
		valid++
	}
	if valid < 2 {
		return 0, &InsufficientDataError{Needed: 2, Got: valid}
	}

	daySpan := float64(last.Timestamp-first.Timestamp) / float64(24*time.Hour/time.Millisecond)
	if daySpan <= 0 {
		return 0, &InsufficientDataError{Needed: 2, Got: 1}
	}

	delta := *last.EnergyInKwh - *first.EnergyInKwh
	if delta < 0 {
		return 0, &NegativeEnergyDeltaError{
			FirstTimestamp: first.Timestamp,
			LastTimestamp:  last.Timestamp,
			FirstKwh:       *first.EnergyInKwh,
			LastKwh:        *last.EnergyInKwh,
		}
	}
	return delta / daySpan, nil
}

// applyDefaultRange fills zero times with the trailing default window.
func (e *Engine) applyDefaultRange(start, end time.Time) (time.Time, time.Time) {
	if end.IsZero() {
		end = time.Now().In(e.loc)
	}
	if start.IsZero() {
		start = end.Add(-DefaultSeriesLookback)
	}
	return start, end
}

func validateRange(start, end time.Time) error {
	if start.After(end) {
		return &InvalidArgumentError{
			Reason: fmt.Sprintf("start %s is after end %s",
				start.Format(time.RFC3339), end.Format(time.RFC3339)),
		}
	}
	return nil
}
