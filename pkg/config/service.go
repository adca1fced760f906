package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/home_energy_monitor/pkg/pathing"
)

var (
	ActiveEnergyAPIConfig      *EnergyAPIConfig
	ActiveMeterCollectorConfig *MeterCollectorConfig
	ActiveSchedulerConfig      *SchedulerConfig
)

func LoadEnergyAPIConfig() error {
	configPath := filepath.Join(pathing.GetConfigDir(), "energy_api.toml")

	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := &EnergyAPIConfig{
			ListenAddress:   "0.0.0.0",
			ListenPort:      9041,
			Timezone:        "Europe/Berlin",
			SeriesCacheSize: 1000,
		}
		// Create file
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return err
		}
		defer cfgFile.Close()
		toml.NewEncoder(cfgFile).Encode(cfg)
		ActiveEnergyAPIConfig = cfg
		return nil
	}

	// Load existing config
	var config EnergyAPIConfig
	_, err := toml.DecodeFile(configPath, &config)
	if err != nil {
		return err
	}
	ActiveEnergyAPIConfig = &config
	return nil
}

func LoadMeterCollectorConfig() error {
	configPath := filepath.Join(pathing.GetConfigDir(), "meter_collector.toml")

	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := &MeterCollectorConfig{
			MeterFeedHost: "localhost:9039",
			TLSEnabled:    false,
		}
		// Create file
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return err
		}
		defer cfgFile.Close()
		toml.NewEncoder(cfgFile).Encode(cfg)
		ActiveMeterCollectorConfig = cfg
		return nil
	}

	// Load existing config
	var config MeterCollectorConfig
	_, err := toml.DecodeFile(configPath, &config)
	if err != nil {
		return err
	}
	ActiveMeterCollectorConfig = &config
	return nil
}

func LoadSchedulerConfig() error {
	configPath := filepath.Join(pathing.GetConfigDir(), "scheduler.toml")

	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := &SchedulerConfig{
			BackupRepoDir:      pathing.GetDataDir(),
			BackupBranch:       "main",
			BackupFile:         "energy-readings.db",
			MinReadingsPerHour: 300,
		}
		// Create file
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return err
		}
		defer cfgFile.Close()
		toml.NewEncoder(cfgFile).Encode(cfg)
		ActiveSchedulerConfig = cfg
		return nil
	}

	// Load existing config
	var config SchedulerConfig
	_, err := toml.DecodeFile(configPath, &config)
	if err != nil {
		return err
	}
	ActiveSchedulerConfig = &config
	return nil
}

// Location resolves the configured timezone. The engine takes this value
// explicitly so nothing in the query path depends on the process-wide default.
func (c *EnergyAPIConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
