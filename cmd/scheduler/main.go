// Hourly scheduler for database health checks and git backups.
package main

import (
	"log"
	"time"

	"github.com/NotCoffee418/home_energy_monitor/pkg/backup"
	"github.com/NotCoffee418/home_energy_monitor/pkg/config"
	"github.com/NotCoffee418/home_energy_monitor/pkg/meterdb"
)

func main() {
	// Load config
	if err := config.LoadSchedulerConfig(); err != nil {
		log.Fatalf("Failed to load scheduler config: %v", err)
	}
	cfg := config.ActiveSchedulerConfig

	// Initialize database
	meterdb.InitializeDatabase()
	store := meterdb.NewStore(meterdb.GetDB())

	backupService := backup.NewService(cfg.BackupRepoDir, cfg.BackupBranch, cfg.BackupFile)

	log.Println("Scheduled hourly DB health check and backup commit")
	for {
		sleepUntilNextHour()
		logDbHealthCheck(store, cfg.MinReadingsPerHour)
		if err := backupService.CommitIfChanged(time.Now()); err != nil {
			log.Printf("Backup commit failed: %v", err)
		}
	}
}

func sleepUntilNextHour() {
	now := time.Now()
	next := now.Truncate(time.Hour).Add(time.Hour)
	time.Sleep(next.Sub(now))
}

// Log the number of records in the DB as a health check.
func logDbHealthCheck(store *meterdb.Store, minReadingsPerHour int) {
	lastHour, err := store.CountReadingsSince(time.Now().Add(-time.Hour))
	if err != nil {
		log.Printf("Health check failed: %v", err)
		return
	}
	total, err := store.CountReadings()
	if err != nil {
		log.Printf("Health check failed: %v", err)
		return
	}

	if lastHour < int64(minReadingsPerHour) {
		log.Printf("WARNING: only %d readings in the last hour (expected at least %d)",
			lastHour, minReadingsPerHour)
	}
	log.Printf("[health] readings_last_hour=%d total_readings=%d", lastHour, total)
}
