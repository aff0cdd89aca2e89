// Package am is hamcall's configuration ("am" as in "I am configured").
//
// Values are read with viper from TOML files merged in precedence order
// system < user < project < environment, with defaults underneath.
package am

import (
	"fmt"
	"time"
)

// Config is the complete hamcall configuration.
type Config struct {
	Dataset  DatasetConfig  `mapstructure:"dataset" toml:"dataset"`
	Analysis AnalysisConfig `mapstructure:"analysis" toml:"analysis"`
	Database DatabaseConfig `mapstructure:"database" toml:"database"`
	Server   ServerConfig   `mapstructure:"server" toml:"server"`
	Batch    BatchConfig    `mapstructure:"batch" toml:"batch"`
}

// DatasetConfig locates the reference dataset and controls its refresh.
type DatasetConfig struct {
	Path   string `mapstructure:"path" toml:"path"`
	URL    string `mapstructure:"url" toml:"url"`
	APIKey string `mapstructure:"api_key" toml:"api_key,omitempty"` // ClubLog API key, prefer CLUBLOG_API_KEY
	Watch  bool   `mapstructure:"watch" toml:"watch"`               // Reload when the file changes

	RefreshIntervalHours int `mapstructure:"refresh_interval_hours" toml:"refresh_interval_hours"` // 0 = never refresh while serving
	MinRefreshMinutes    int `mapstructure:"min_refresh_minutes" toml:"min_refresh_minutes"`       // Floor between two downloads
	TimeoutSeconds       int `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
}

// AnalysisConfig tunes callsign resolution.
type AnalysisConfig struct {
	EnforceWhitelist bool `mapstructure:"enforce_whitelist" toml:"enforce_whitelist"`
}

// DatabaseConfig configures the SQLite lookup log.
type DatabaseConfig struct {
	Path          string `mapstructure:"path" toml:"path"`
	RecordLookups bool   `mapstructure:"record_lookups" toml:"record_lookups"`
}

// ServerConfig configures the lookup service
type ServerConfig struct {
	Host               string   `mapstructure:"host" toml:"host"`
	Port               int      `mapstructure:"port" toml:"port"`
	AllowedOrigins     []string `mapstructure:"allowed_origins" toml:"allowed_origins"`
	RateLimitPerSecond float64  `mapstructure:"rate_limit_per_second" toml:"rate_limit_per_second"` // 0 = unlimited
	RateLimitBurst     int      `mapstructure:"rate_limit_burst" toml:"rate_limit_burst"`
	MaxBatch           int      `mapstructure:"max_batch" toml:"max_batch"`
	LogTheme           string   `mapstructure:"log_theme" toml:"log_theme"` // Color theme: gruvbox, everforest
}

// BatchConfig configures CSV verification.
type BatchConfig struct {
	Workers int `mapstructure:"workers" toml:"workers"`
}

// Defaults
const (
	DefaultServerPort   = 8073
	DefaultDatasetPath  = "cty.xml"
	DefaultDatabasePath = "hamcall.db"
	DefaultDatasetURL   = "https://cdn.clublog.org/cty.php"
	DefaultBatchWorkers = 4
)

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// RefreshInterval is the periodic download interval, zero when disabled.
func (c DatasetConfig) RefreshInterval() time.Duration {
	if c.RefreshIntervalHours <= 0 {
		return 0
	}
	return time.Duration(c.RefreshIntervalHours) * time.Hour
}

// MinRefresh is the minimum time between two downloads.
func (c DatasetConfig) MinRefresh() time.Duration {
	return time.Duration(c.MinRefreshMinutes) * time.Minute
}

// Timeout bounds one download.
func (c DatasetConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetServerAllowedOrigins returns the allowed CORS origins
func (c *Config) GetServerAllowedOrigins() []string {
	if len(c.Server.AllowedOrigins) == 0 {
		return defaultAllowedOrigins()
	}
	return c.Server.AllowedOrigins
}

// String returns a string representation of the config. The API key is
// never included.
func (c *Config) String() string {
	key := "unset"
	if c.Dataset.APIKey != "" {
		key = "set"
	}
	return fmt.Sprintf("Config{Dataset: %s (api key %s), Database: %s, Server: :%d, Batch: {Workers: %d}}",
		c.Dataset.Path, key, c.Database.Path, c.Server.Port, c.Batch.Workers)
}
