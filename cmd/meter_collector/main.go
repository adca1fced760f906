// Responsible for storing the data collected from the smart meter feed.
// Depends on the meter feed websocket being online.
package main

import (
	"log"
	"time"

	"github.com/NotCoffee418/home_energy_monitor/pkg/collector"
	"github.com/NotCoffee418/home_energy_monitor/pkg/config"
	"github.com/NotCoffee418/home_energy_monitor/pkg/meterdb"
)

var store *meterdb.Store

func main() {
	// Load config
	if err := config.LoadMeterCollectorConfig(); err != nil {
		log.Fatalf("Failed to load meter collector config: %v", err)
	}

	// Initialize database
	meterdb.InitializeDatabase()
	store = meterdb.NewStore(meterdb.GetDB())

	// Subscribe to websocket with revive
	cfg := config.ActiveMeterCollectorConfig
	collector.StartListener(cfg.MeterFeedHost, cfg.TLSEnabled, handleSensorPayload)
}

// Persist one feed payload with a server-assigned timestamp.
// Duplicate timestamps from feed redelivery are dropped by the store.
func handleSensorPayload(payload *collector.SensorPayload) {
	reading := payload.ToEnergyReading(time.Now())
	if err := store.InsertEnergyReading(reading); err != nil {
		log.Printf("Failed to store reading: %v", err)
	}
}
