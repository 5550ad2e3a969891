package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the schedule and delay services
type Config struct {
	// Feeds
	GTFSURL       string `yaml:"gtfs_url" validate:"required,url"`
	GTFSRTURL     string `yaml:"gtfs_rt_url" validate:"required,url"`
	GTFSRTAPIKey  string `yaml:"gtfs_rt_api_key"`
	GTFSRTKeyName string `yaml:"gtfs_rt_api_key_header"`

	// Storage
	CacheDir           string `yaml:"cache_dir" validate:"required"`
	SnapshotDir        string `yaml:"snapshot_dir" validate:"required"`
	DatabasePath       string `yaml:"database_path"`
	ReportArtifactPath string `yaml:"report_artifact_path"`

	// HTTP
	Port int `yaml:"port" validate:"gt=0,lte=65535"`

	// Schedule
	Timezone          string `yaml:"timezone"`
	StaticRefreshDays int    `yaml:"static_refresh_days" validate:"gte=1"`

	// Polling
	PollInterval    time.Duration `yaml:"poll_interval" validate:"gt=0"`
	WarmupDelay     time.Duration `yaml:"warmup_delay" validate:"gte=0"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
	FreshnessWindow time.Duration `yaml:"freshness_window" validate:"gt=0"`
	Retention       time.Duration `yaml:"retention" validate:"gte=0"`

	// Reconciliation
	PairingPolicy string `yaml:"pairing_policy" validate:"oneof=trip positional"`
	AnchorPolicy  string `yaml:"anchor_policy" validate:"oneof=service-day wall-clock"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Defaults returns the configuration used when nothing overrides it
func Defaults() *Config {
	return &Config{
		GTFSURL:            "https://www.data.gouv.fr/fr/datasets/r/b2fd45db-63be-4eb1-a6dd-9f104611594b",
		GTFSRTURL:          "https://www.data.gouv.fr/fr/datasets/r/3fdc110c-a929-4d31-bf3a-0f12eb3f1806",
		GTFSRTKeyName:      "x-api-key",
		CacheDir:           "/data/cache",
		SnapshotDir:        "/data/saved_lates",
		DatabasePath:       "/data/delays.db",
		ReportArtifactPath: "/data/last_report.json",
		Port:               3000,
		StaticRefreshDays:  7,
		PollInterval:       5 * time.Minute,
		WarmupDelay:        5 * time.Second,
		FetchTimeout:       15 * time.Second,
		FreshnessWindow:    10 * time.Minute,
		Retention:          30 * 24 * time.Hour,
		PairingPolicy:      "trip",
		AnchorPolicy:       "service-day",
		LogLevel:           "info",
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE, then environment variables (a .env file is read first).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.GTFSURL = getEnv("GTFS_URL", c.GTFSURL)
	c.GTFSRTURL = getEnv("GTFS_RT_URL", c.GTFSRTURL)
	c.GTFSRTAPIKey = getEnv("GTFS_RT_API_KEY", c.GTFSRTAPIKey)
	c.GTFSRTKeyName = getEnv("GTFS_RT_API_KEY_HEADER", c.GTFSRTKeyName)

	c.CacheDir = getEnv("CACHE_DIR", c.CacheDir)
	c.SnapshotDir = getEnv("SNAPSHOT_DIR", c.SnapshotDir)
	c.DatabasePath = getEnv("SQLITE_DATABASE", c.DatabasePath)
	c.ReportArtifactPath = getEnv("REPORT_ARTIFACT", c.ReportArtifactPath)

	c.Port = getEnvInt("PORT", c.Port)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.StaticRefreshDays = getEnvInt("STATIC_REFRESH_DAYS", c.StaticRefreshDays)

	c.PollInterval = getEnvDuration("POLL_INTERVAL", c.PollInterval)
	c.WarmupDelay = getEnvDuration("WARMUP_DELAY", c.WarmupDelay)
	c.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", c.FetchTimeout)
	c.FreshnessWindow = getEnvDuration("FRESHNESS_WINDOW", c.FreshnessWindow)
	if hours := getEnvInt("RETENTION_HOURS", -1); hours >= 0 {
		c.Retention = time.Duration(hours) * time.Hour
	}

	c.PairingPolicy = getEnv("PAIRING_POLICY", c.PairingPolicy)
	c.AnchorPolicy = getEnv("ANCHOR_POLICY", c.AnchorPolicy)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate checks field constraints and that the timezone resolves
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid configuration: %s failed %q", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// OverridePolicies replaces the pairing and anchor policies with the
// non-empty values given and revalidates
func (c *Config) OverridePolicies(pairing, anchor string) error {
	if pairing != "" {
		c.PairingPolicy = pairing
	}
	if anchor != "" {
		c.AnchorPolicy = anchor
	}
	return c.Validate()
}

// Location resolves Timezone. An empty timezone returns nil so the caller
// can fall back to the agency timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FeedHeaders returns the request headers for the real-time feed
func (c *Config) FeedHeaders() map[string]string {
	if c.GTFSRTAPIKey == "" {
		return nil
	}
	return map[string]string{c.GTFSRTKeyName: c.GTFSRTAPIKey}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts a Go duration ("5m") or a whole number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
