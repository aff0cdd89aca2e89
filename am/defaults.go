package am

import (
	"github.com/spf13/viper"
)

func defaultAllowedOrigins() []string {
	return []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	}
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Dataset defaults
	v.SetDefault("dataset.path", DefaultDatasetPath)
	v.SetDefault("dataset.url", DefaultDatasetURL)
	v.SetDefault("dataset.watch", true)
	v.SetDefault("dataset.refresh_interval_hours", 0)
	v.SetDefault("dataset.min_refresh_minutes", 60) // ClubLog asks clients not to hammer cty.php
	v.SetDefault("dataset.timeout_seconds", 120)

	// Analysis defaults
	v.SetDefault("analysis.enforce_whitelist", true)

	// Database defaults
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("database.record_lookups", false)

	// Server configuration defaults
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", defaultAllowedOrigins())
	v.SetDefault("server.rate_limit_per_second", 50.0)
	v.SetDefault("server.rate_limit_burst", 100)
	v.SetDefault("server.max_batch", 1000)
	v.SetDefault("server.log_theme", "everforest")

	// Batch defaults
	v.SetDefault("batch.workers", DefaultBatchWorkers)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	// The ClubLog key is commonly exported under its own name
	_ = v.BindEnv("dataset.api_key", "HAMCALL_DATASET_API_KEY", "CLUBLOG_API_KEY")

	// Database path
	_ = v.BindEnv("database.path", "HAMCALL_DATABASE_PATH")
}
