package config

type MeterCollectorConfig struct {
	// host:port of the meter feed exposing /ws
	MeterFeedHost string `toml:"meter_feed_host"`
	TLSEnabled    bool   `toml:"tls_enabled"`
}

type EnergyAPIConfig struct {
	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`
	// IANA name, e.g. `Europe/Berlin`. Resolved once at load time; all
	// calendar-day bucketing uses this location, never the process default.
	Timezone        string `toml:"timezone"`
	SeriesCacheSize int    `toml:"series_cache_size"`
}

type SchedulerConfig struct {
	// Git working tree holding the database backup
	BackupRepoDir string `toml:"backup_repo_dir"`
	BackupBranch  string `toml:"backup_branch"`
	// Path of the database file relative to backup_repo_dir
	BackupFile string `toml:"backup_file"`
	// Warn when fewer readings than this arrived in the last hour
	MinReadingsPerHour int `toml:"min_readings_per_hour"`
}
