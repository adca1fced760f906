package analytics

import (
	"sort"
	"sync"
	"time"

	"github.com/NotCoffee418/home_energy_monitor/pkg/types"
)

// memStore is an in-memory SampleStore for engine tests.
type memStore struct {
	mu       sync.Mutex
	readings []types.EnergyReading

	// number of ReadingsInRange calls, for cache tests
	scanCalls int
}

func newMemStore(readings ...types.EnergyReading) *memStore {
	s := &memStore{readings: readings}
	sort.Slice(s.readings, func(i, j int) bool {
		return s.readings[i].Timestamp < s.readings[j].Timestamp
	})
	return s
}

func (s *memStore) inRange(start, end time.Time) []types.EnergyReading {
	var out []types.EnergyReading
	for _, r := range s.readings {
		if r.Timestamp >= start.UnixMilli() && r.Timestamp <= end.UnixMilli() {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) ReadingsInRange(start, end time.Time) ([]types.EnergyReading, error) {
	s.mu.Lock()
	s.scanCalls++
	s.mu.Unlock()
	return s.inRange(start, end), nil
}

func (s *memStore) PowerAggregates(start, end time.Time) (types.PowerAggregate, error) {
	var agg types.PowerAggregate
	var sum float64
	for _, r := range s.inRange(start, end) {
		if r.PowerWatts == nil {
			continue
		}
		w := *r.PowerWatts
		if agg.Count == 0 {
			agg.MinWatts = &w
			agg.MaxWatts = &w
		} else {
			if w < *agg.MinWatts {
				agg.MinWatts = &w
			}
			if w > *agg.MaxWatts {
				agg.MaxWatts = &w
			}
		}
		sum += w
		agg.Count++
	}
	if agg.Count > 0 {
		avg := sum / float64(agg.Count)
		agg.AvgWatts = &avg
	}
	return agg, nil
}

func (s *memStore) BoundaryReadings(start, end time.Time) (*types.EnergyReading, *types.EnergyReading, error) {
	rows := s.inRange(start, end)
	if len(rows) == 0 {
		return nil, nil, nil
	}
	first := rows[0]
	last := rows[len(rows)-1]
	return &first, &last, nil
}
