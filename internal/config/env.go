package config

import (
	"os"

	"github.com/rshade/cvindex/internal/cache"
)

// Environment overrides.
const (
	EnvBaseURL   = "CVINDEX_BASE_URL"
	EnvLogLevel  = "CVINDEX_LOG_LEVEL"
	EnvLogFormat = "CVINDEX_LOG_FORMAT"
)

// ApplyEnv applies CVINDEX_* overrides. Invalid values are ignored.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.Services.BaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	c.Cache.Enabled = cache.EnabledFromEnv(c.Cache.Enabled)
	if d := cache.DirFromEnv(); d != "" {
		c.Cache.Directory = d
	}
	c.Cache.TTLSeconds = cache.TTLFromEnv(c.Cache.TTLSeconds)
}
