package am

import (
	"net/url"
	"strings"

	"github.com/teranos/hamcall/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// An empty dataset path leaves nothing to analyze against
	if strings.TrimSpace(c.Dataset.Path) == "" {
		return errors.New("dataset.path cannot be empty")
	}

	if c.Dataset.URL != "" {
		u, err := url.Parse(c.Dataset.URL)
		if err != nil {
			return errors.Wrapf(err, "dataset.url %q", c.Dataset.URL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.Newf("dataset.url must be http or https, got %q", c.Dataset.URL)
		}
	}

	// Refresh interval: 0 = never, negative = invalid
	if c.Dataset.RefreshIntervalHours < 0 {
		return errors.Newf("dataset.refresh_interval_hours must be >= 0, got %d", c.Dataset.RefreshIntervalHours)
	}
	if c.Dataset.MinRefreshMinutes < 0 {
		return errors.Newf("dataset.min_refresh_minutes must be >= 0, got %d", c.Dataset.MinRefreshMinutes)
	}
	if c.Dataset.TimeoutSeconds <= 0 {
		return errors.Newf("dataset.timeout_seconds must be > 0, got %d", c.Dataset.TimeoutSeconds)
	}

	// Database path is only needed when lookups are recorded
	if c.Database.RecordLookups && c.Database.Path == "" {
		return errors.New("database.path cannot be empty when database.record_lookups is set")
	}

	// Server port: 0 is invalid, negative or above 65535 is invalid
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitPerSecond < 0 {
		return errors.Newf("server.rate_limit_per_second must be >= 0, got %f", c.Server.RateLimitPerSecond)
	}
	if c.Server.RateLimitPerSecond > 0 && c.Server.RateLimitBurst <= 0 {
		return errors.Newf("server.rate_limit_burst must be > 0 when rate limiting, got %d", c.Server.RateLimitBurst)
	}
	if c.Server.MaxBatch < 0 {
		return errors.Newf("server.max_batch must be >= 0, got %d", c.Server.MaxBatch)
	}

	if c.Batch.Workers <= 0 {
		return errors.Newf("batch.workers must be > 0, got %d", c.Batch.Workers)
	}

	return nil
}
