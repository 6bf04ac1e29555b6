package cache

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultTTLSeconds keeps lookups for a day.
	DefaultTTLSeconds = 86400

	// MinTTLSeconds is one minute.
	MinTTLSeconds = 60

	// MaxTTLSeconds is thirty days.
	MaxTTLSeconds = 30 * 86400

	// EnvTTLSeconds overrides the TTL.
	EnvTTLSeconds = "CVINDEX_CACHE_TTL_SECONDS"

	// EnvCacheEnabled turns the cache on or off.
	EnvCacheEnabled = "CVINDEX_CACHE_ENABLED"

	// EnvCacheDir overrides the cache directory.
	EnvCacheDir = "CVINDEX_CACHE_DIR"

	hoursPerDay = 24
)

// ErrInvalidTTL is returned for a TTL outside [MinTTLSeconds, MaxTTLSeconds].
var ErrInvalidTTL = fmt.Errorf("TTL must be between %d and %d seconds", MinTTLSeconds, MaxTTLSeconds)

// ValidateTTL checks the TTL range.
func ValidateTTL(seconds int) error {
	if seconds < MinTTLSeconds || seconds > MaxTTLSeconds {
		return fmt.Errorf("%w: got %d", ErrInvalidTTL, seconds)
	}
	return nil
}

// TTLFromEnv returns the env TTL, or def when unset or invalid.
func TTLFromEnv(def int) int {
	v := os.Getenv(EnvTTLSeconds)
	if v == "" {
		return def
	}
	ttl, err := ParseTTL(v)
	if err != nil {
		return def
	}
	return ttl
}

// EnabledFromEnv returns the env flag, or def when unset or invalid.
func EnabledFromEnv(def bool) bool {
	v := os.Getenv(EnvCacheEnabled)
	if v == "" {
		return def
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return enabled
}

// DirFromEnv returns the env directory or "".
func DirFromEnv() string {
	return os.Getenv(EnvCacheDir)
}

// ParseTTL accepts integer seconds ("3600") or a duration ("12h", "90m").
func ParseTTL(s string) (int, error) {
	if seconds, err := strconv.Atoi(s); err == nil {
		return seconds, ValidateTTL(seconds)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid TTL format: %w", err)
	}
	seconds := int(d.Seconds())
	return seconds, ValidateTTL(seconds)
}

// FormatDuration renders d as "45s", "30m", "2h15m" or "3d4h".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.0fm", d.Minutes())
	case d < hoursPerDay*time.Hour:
		h, m := int(d.Hours()), int(d.Minutes())%60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh%dm", h, m)
	}
	days, h := int(d.Hours())/hoursPerDay, int(d.Hours())%hoursPerDay
	if h == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, h)
}
