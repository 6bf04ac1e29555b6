// Package config loads, validates and saves the cvindex configuration.
//
// Precedence, lowest to highest: built-in defaults from New, the global
// file (~/.cvindex/config.yaml), a project overlay (.cvindex/config.yaml,
// merged per top-level section), CVINDEX_* environment variables, and
// finally CLI flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/rshade/cvindex/internal/cache"
	"github.com/rshade/cvindex/internal/gauge"
	"github.com/rshade/cvindex/internal/logging"
	"github.com/rshade/cvindex/internal/nutrient"
	"github.com/rshade/cvindex/internal/remote"
)

const (
	dirName  = ".cvindex"
	fileName = "config.yaml"

	// EnvHome overrides the ~/.cvindex directory.
	EnvHome = "CVINDEX_HOME"

	DefaultBaseURL    = "http://localhost:8000"
	DefaultScorePath  = "/castle-verde/calculate-index"
	DefaultOCRPath    = "/process-label"
	DefaultLookupPath = "/chatgpt-food-lookup"
	DefaultHealthPath = "/health"
	DefaultTimeout    = 15

	OutputTable = "table"
	OutputJSON  = "json"
)

// Validation errors.
var (
	ErrInvalidBaseURL = errors.New("services.base_url must be an absolute http(s) URL")
	ErrInvalidTimeout = errors.New("services.timeout_seconds must be positive")
	ErrInvalidVersion = errors.New("services.min_version is not a semantic version")
	ErrInvalidGauge   = errors.New("gauge timings must be positive and max_duration_ms >= per_point_ms")
	ErrInvalidFormat  = errors.New("unsupported format")
	ErrInvalidLevel   = errors.New("unsupported log level")
)

// Config is the whole configuration file.
type Config struct {
	Services ServicesConfig `json:"services" yaml:"services"`
	Anchors  AnchorsConfig  `json:"anchors" yaml:"anchors"`
	Gauge    GaugeConfig    `json:"gauge" yaml:"gauge"`
	Cache    CacheConfig    `json:"cache" yaml:"cache"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Output   OutputConfig   `json:"output" yaml:"output"`

	path string
}

// ServicesConfig locates the remote services.
type ServicesConfig struct {
	BaseURL        string `json:"base_url" yaml:"base_url"`
	ScorePath      string `json:"score_path" yaml:"score_path"`
	OCRPath        string `json:"ocr_path" yaml:"ocr_path"`
	LookupPath     string `json:"lookup_path" yaml:"lookup_path"`
	HealthPath     string `json:"health_path" yaml:"health_path"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	// MinVersion, when set, is the lowest service version the health probe
	// accepts.
	MinVersion string `json:"min_version,omitempty" yaml:"min_version,omitempty"`
}

// AnchorsConfig holds the initial anchors.
type AnchorsConfig struct {
	Cart nutrient.Anchor `json:"cart" yaml:"cart"`
	Item nutrient.Anchor `json:"item" yaml:"item"`
}

// GaugeConfig tunes the needle animation.
type GaugeConfig struct {
	PerPointMS     int     `json:"per_point_ms" yaml:"per_point_ms"`
	MaxDurationMS  int     `json:"max_duration_ms" yaml:"max_duration_ms"`
	SecondaryRatio float64 `json:"secondary_ratio" yaml:"secondary_ratio"`
}

// CacheConfig controls the lookup cache.
type CacheConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Directory  string `json:"directory" yaml:"directory"`
	TTLSeconds int    `json:"ttl_seconds" yaml:"ttl_seconds"`
}

// LoggingConfig controls logging.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	// File receives logs. The TUI always logs to a file.
	File string `json:"file" yaml:"file"`
}

// OutputConfig sets CLI output defaults.
type OutputConfig struct {
	Format string `json:"format" yaml:"format"`
}

// Dir returns the cvindex home directory.
func Dir() (string, error) {
	if d := os.Getenv(EnvHome); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// DefaultPath is the global config file path.
func DefaultPath() (string, error) {
	d, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, fileName), nil
}

// New returns the defaults.
func New() *Config {
	home, err := Dir()
	if err != nil {
		home = filepath.Join(os.TempDir(), dirName)
	}
	gd := gauge.DefaultOptions()
	return &Config{
		Services: ServicesConfig{
			BaseURL:        DefaultBaseURL,
			ScorePath:      DefaultScorePath,
			OCRPath:        DefaultOCRPath,
			LookupPath:     DefaultLookupPath,
			HealthPath:     DefaultHealthPath,
			TimeoutSeconds: DefaultTimeout,
		},
		Anchors: AnchorsConfig{
			Cart: nutrient.DefaultAnchor,
			Item: nutrient.DefaultAnchor,
		},
		Gauge: GaugeConfig{
			PerPointMS:     int(gd.PerPoint / time.Millisecond),
			MaxDurationMS:  int(gd.MaxDuration / time.Millisecond),
			SecondaryRatio: gd.SecondaryRatio,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Directory:  filepath.Join(home, "cache"),
			TTLSeconds: cache.DefaultTTLSeconds,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatConsole,
			File:   filepath.Join(home, "logs", "cvindex.log"),
		},
		Output: OutputConfig{Format: OutputTable},
		path:   filepath.Join(home, fileName),
	}
}

// Load reads path over the defaults. An empty path means DefaultPath. A
// missing file is not an error. Env overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := New()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// Path is where Save writes.
func (c *Config) Path() string { return c.path }

// SetPath changes where Save writes.
func (c *Config) SetPath(p string) { c.path = p }

// Save writes the config as YAML, creating the directory.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config has no path")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", c.path, err)
	}
	return nil
}

// Validate checks every section and joins all problems.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Services.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.Services.BaseURL))
	}
	if c.Services.TimeoutSeconds <= 0 {
		errs = append(errs, ErrInvalidTimeout)
	}
	if c.Services.MinVersion != "" {
		if _, err := semver.NewVersion(c.Services.MinVersion); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidVersion, c.Services.MinVersion))
		}
	}
	for _, a := range []nutrient.Anchor{c.Anchors.Cart, c.Anchors.Item} {
		if !a.Valid() {
			errs = append(errs, fmt.Errorf("anchors: %w: %q", nutrient.ErrUnknownAnchor, a))
		}
	}
	if c.Gauge.PerPointMS <= 0 || c.Gauge.MaxDurationMS < c.Gauge.PerPointMS || c.Gauge.SecondaryRatio <= 0 {
		errs = append(errs, ErrInvalidGauge)
	}
	if c.Cache.Enabled {
		if err := cache.ValidateTTL(c.Cache.TTLSeconds); err != nil {
			errs = append(errs, fmt.Errorf("cache.ttl_seconds: %w", err))
		}
		if c.Cache.Directory == "" {
			errs = append(errs, errors.New("cache.directory is required when the cache is enabled"))
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("logging.format: %w: %q", ErrInvalidFormat, c.Logging.Format))
	}
	if !validLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: %w: %q", ErrInvalidLevel, c.Logging.Level))
	}
	switch c.Output.Format {
	case OutputTable, OutputJSON:
	default:
		errs = append(errs, fmt.Errorf("output.format: %w: %q", ErrInvalidFormat, c.Output.Format))
	}
	return errors.Join(errs...)
}

func validLevel(level string) bool {
	switch strings.ToLower(level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
		return true
	}
	return false
}

// Endpoints resolves the full remote URLs.
func (c *Config) Endpoints() remote.Endpoints {
	return remote.Endpoints{
		Score:  joinURL(c.Services.BaseURL, c.Services.ScorePath),
		OCR:    joinURL(c.Services.BaseURL, c.Services.OCRPath),
		Lookup: joinURL(c.Services.BaseURL, c.Services.LookupPath),
	}
}

// HealthURL is the service health endpoint.
func (c *Config) HealthURL() string {
	return joinURL(c.Services.BaseURL, c.Services.HealthPath)
}

// Timeout is the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Services.TimeoutSeconds) * time.Second
}

// GaugeOptions converts the gauge section.
func (c *Config) GaugeOptions() gauge.Options {
	return gauge.Options{
		PerPoint:       time.Duration(c.Gauge.PerPointMS) * time.Millisecond,
		MaxDuration:    time.Duration(c.Gauge.MaxDurationMS) * time.Millisecond,
		SecondaryRatio: c.Gauge.SecondaryRatio,
	}
}

// ToLoggingConfig converts the logging section. File output is only used
// when toFile is set, so plain CLI commands keep logging to stderr.
func (c *Config) ToLoggingConfig(toFile bool) logging.Config {
	lc := logging.Config{Level: c.Logging.Level, Format: strings.ToLower(c.Logging.Format)}
	if toFile {
		lc.File = c.Logging.File
	}
	return lc
}

func joinURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
