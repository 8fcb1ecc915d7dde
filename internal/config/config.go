package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	MetaAPIURL   string
	GoogleAPIURL string
	Port         string
	HTTPTimeout  time.Duration
	LogLevel     slog.Level

	// Cache health model.
	StaleThreshold  time.Duration // entry age beyond which it is stale
	CriticalRatio   float64       // stale/total ratio at which a table turns critical
	MonitorInterval time.Duration // health gauge poll interval, a caller concern

	// Refresh orchestration.
	Workers int

	// Metric derivation.
	OfflineConversionRate float64

	// Durable store. Empty means in-memory only.
	StorePath string

	// Tenant-specific custom event tags, consulted before the built-in
	// precedence lists for contact metrics.
	EmailEventTags []string
	PhoneEventTags []string
}

func FromEnv() Config {
	cfg := Config{
		MetaAPIURL:            os.Getenv("META_API_URL"),
		GoogleAPIURL:          os.Getenv("GOOGLE_API_URL"),
		Port:                  envOr("PORT", "8080"),
		HTTPTimeout:           envDuration("HTTP_TIMEOUT", 15*time.Second),
		StaleThreshold:        envDuration("STALE_THRESHOLD", 180*time.Minute),
		CriticalRatio:         envFloat("CRITICAL_RATIO", 0.5),
		MonitorInterval:       envDuration("MONITOR_INTERVAL", 60*time.Second),
		Workers:               envInt("REFRESH_WORKERS", 4),
		OfflineConversionRate: envFloat("OFFLINE_CONVERSION_RATE", 0.2),
		StorePath:             os.Getenv("STORE_PATH"),
	}
	cfg.LogLevel = slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		cfg.LogLevel = slog.LevelDebug
	}
	return cfg
}

// fileConfig is the YAML overlay. Only fields that make sense in a checked-in
// file are exposed here; secrets and endpoints stay in the environment.
type fileConfig struct {
	StaleThresholdMinutes int      `yaml:"stale_threshold_minutes"`
	CriticalRatio         *float64 `yaml:"critical_ratio"`
	Workers               int      `yaml:"refresh_workers"`
	OfflineConversionRate *float64 `yaml:"offline_conversion_rate"`
	EmailEventTags        []string `yaml:"email_event_tags"`
	PhoneEventTags        []string `yaml:"phone_event_tags"`
}

// LoadFile overlays settings from a YAML file onto cfg.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	if fc.StaleThresholdMinutes > 0 {
		c.StaleThreshold = time.Duration(fc.StaleThresholdMinutes) * time.Minute
	}
	if fc.CriticalRatio != nil {
		c.CriticalRatio = *fc.CriticalRatio
	}
	if fc.Workers > 0 {
		c.Workers = fc.Workers
	}
	if fc.OfflineConversionRate != nil {
		c.OfflineConversionRate = *fc.OfflineConversionRate
	}
	if len(fc.EmailEventTags) > 0 {
		c.EmailEventTags = fc.EmailEventTags
	}
	if len(fc.PhoneEventTags) > 0 {
		c.PhoneEventTags = fc.PhoneEventTags
	}
	return nil
}

// Validate rejects configurations the core cannot run under. These are
// startup failures, never per-request errors.
func (c Config) Validate() error {
	if c.StaleThreshold <= 0 {
		return fmt.Errorf("stale threshold must be positive, got %v", c.StaleThreshold)
	}
	if c.CriticalRatio <= 0 || c.CriticalRatio > 1 {
		return fmt.Errorf("critical ratio must be in (0,1], got %v", c.CriticalRatio)
	}
	if c.Workers < 1 {
		return fmt.Errorf("refresh workers must be >= 1, got %d", c.Workers)
	}
	if c.OfflineConversionRate < 0 || c.OfflineConversionRate > 1 {
		return fmt.Errorf("offline conversion rate must be in [0,1], got %v", c.OfflineConversionRate)
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
