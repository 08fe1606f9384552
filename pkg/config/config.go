// Package config loads console settings from a YAML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/logging"
	"github.com/dd0wney/cluso-noc/pkg/validation"
)

const (
	DefaultListen          = ":8080"
	DefaultPollInterval    = 300 * time.Second
	DefaultGeoPollInterval = 60 * time.Second
	MinPollInterval        = time.Second
	MaxPollInterval        = 24 * time.Hour
	DefaultBackendTimeout  = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultLogLevel        = "info"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Config is the console configuration.
type Config struct {
	Listen          string        `yaml:"listen"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	Backend         BackendConfig `yaml:"backend"`
	Polling         PollingConfig `yaml:"polling"`
}

// BackendConfig selects the console backend. An empty URL uses the in-memory
// backend seeded from FixturePath, or the embedded fixture when that is
// empty too.
type BackendConfig struct {
	URL         string        `yaml:"url"`
	Timeout     time.Duration `yaml:"timeout"`
	FixturePath string        `yaml:"fixture"`
}

// PollingConfig holds the overlay refresh intervals.
type PollingConfig struct {
	Interval    time.Duration `yaml:"interval"`
	GeoInterval time.Duration `yaml:"geo_interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:          DefaultListen,
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		Backend:         BackendConfig{Timeout: DefaultBackendTimeout},
		Polling: PollingConfig{
			Interval:    DefaultPollInterval,
			GeoInterval: DefaultGeoPollInterval,
		},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Fields absent from data keep their value.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from NOC_* variables and LOG_LEVEL.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := parseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	str("NOC_LISTEN", &c.Listen)
	str("LOG_LEVEL", &c.LogLevel)
	str("NOC_BACKEND_URL", &c.Backend.URL)
	str("NOC_FIXTURE", &c.Backend.FixturePath)
	dur("NOC_BACKEND_TIMEOUT", &c.Backend.Timeout)
	dur("NOC_POLL_INTERVAL", &c.Polling.Interval)
	dur("NOC_GEO_POLL_INTERVAL", &c.Polling.GeoInterval)
	dur("NOC_SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
	if v, ok := lookup("NOC_CORS_ORIGINS"); ok && v != "" {
		c.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}
	return errors.Join(errs...)
}

// parseDuration accepts Go duration syntax or a bare number of seconds.
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	return validation.NewConfigValidator("Config").
		Required("Listen", c.Listen).
		OneOf("LogLevel", strings.ToLower(c.LogLevel), logLevels).
		RangeDuration("ShutdownTimeout", c.ShutdownTimeout, time.Second, 10*time.Minute).
		URL("Backend.URL", c.Backend.URL).
		When(c.Backend.URL != "", func(v *validation.ConfigValidator) {
			v.RangeDuration("Backend.Timeout", c.Backend.Timeout, 100*time.Millisecond, 5*time.Minute)
		}).
		RangeDuration("Polling.Interval", c.Polling.Interval, MinPollInterval, MaxPollInterval).
		RangeDuration("Polling.GeoInterval", c.Polling.GeoInterval, MinPollInterval, MaxPollInterval).
		Validate()
}

// Level returns the configured log level.
func (c Config) Level() logging.Level {
	return logging.ParseLevel(strings.ToLower(c.LogLevel))
}

// IntervalFor resolves the poll interval for a document: a per-map interval
// wins, then the geo default for geo maps, then the general default. The
// result is never below MinPollInterval.
func (p PollingConfig) IntervalFor(kind graph.DocumentKind, perMap time.Duration) time.Duration {
	d := validation.DefaultOrDuration(p.Interval, DefaultPollInterval)
	if kind == graph.KindGeo {
		d = validation.DefaultOrDuration(p.GeoInterval, DefaultGeoPollInterval)
	}
	if perMap > 0 {
		d = perMap
	}
	return validation.ClampDuration(d, MinPollInterval, MaxPollInterval)
}
