package collector

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/NotCoffee418/home_energy_monitor/pkg/meterutils"
	"github.com/NotCoffee418/home_energy_monitor/pkg/types"
)

// SensorPayload is one Tasmota SENSOR message from the meter feed.
// Only messages carrying an MT681 block are of interest.
type SensorPayload struct {
	Time  string       `json:"Time"`
	MT681 *MeterValues `json:"MT681"`
}

// MeterValues is the MT681 block of a SENSOR message. Power is watts,
// the E_in/E_out counters are cumulative kWh.
type MeterValues struct {
	MeterID     json.RawMessage `json:"Meter_id"` // number or string depending on firmware
	PowerWatts  *float64        `json:"Power"`
	EnergyIn    *float64        `json:"E_in"`
	EnergyOut   *float64        `json:"E_out"`
	PowerPhase1 *float64        `json:"Power_p1"`
	PowerPhase2 *float64        `json:"Power_p2"`
	PowerPhase3 *float64        `json:"Power_p3"`
}

// SensorPayloadFromJsonBytes parses a feed message. Returns nil for
// messages without an MT681 block or that fail to parse.
func SensorPayloadFromJsonBytes(data []byte) *SensorPayload {
	var payload SensorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}
	if payload.MT681 == nil {
		return nil
	}
	return &payload
}

// ToEnergyReading shapes the payload into a storable reading with a
// server-assigned timestamp. Zero cumulative counters are normalized to
// absent here so they never reach the database as fake readings.
func (p *SensorPayload) ToEnergyReading(now time.Time) *types.EnergyReading {
	raw, err := json.Marshal(p.MT681)
	if err != nil {
		raw = []byte("{}")
	}

	meterID := strings.Trim(string(p.MT681.MeterID), `"`)
	if meterID == "null" {
		meterID = ""
	}

	return &types.EnergyReading{
		Timestamp:        now.UnixMilli(),
		MeterID:          meterID,
		PowerWatts:       p.MT681.PowerWatts,
		EnergyInKwh:      meterutils.NormalizeCumulativeKwh(p.MT681.EnergyIn),
		EnergyOutKwh:     meterutils.NormalizeCumulativeKwh(p.MT681.EnergyOut),
		PowerPhase1Watts: p.MT681.PowerPhase1,
		PowerPhase2Watts: p.MT681.PowerPhase2,
		PowerPhase3Watts: p.MT681.PowerPhase3,
		RawPayload:       string(raw),
	}
}
