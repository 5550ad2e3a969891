package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads and moves to an empty directory
// so no stray .env file is picked up
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "GTFS_URL", "GTFS_RT_URL", "GTFS_RT_API_KEY", "GTFS_RT_API_KEY_HEADER",
		"CACHE_DIR", "SNAPSHOT_DIR", "SQLITE_DATABASE", "REPORT_ARTIFACT", "PORT", "TIMEZONE",
		"STATIC_REFRESH_DAYS", "POLL_INTERVAL", "WARMUP_DELAY", "FETCH_TIMEOUT",
		"FRESHNESS_WINDOW", "RETENTION_HOURS", "PAIRING_POLICY", "ANCHOR_POLICY", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.WarmupDelay)
	assert.Equal(t, 10*time.Minute, cfg.FreshnessWindow)
	assert.Equal(t, "trip", cfg.PairingPolicy)
	assert.Equal(t, "service-day", cfg.AnchorPolicy)
	assert.Equal(t, 3000, cfg.Port)
	assert.Nil(t, cfg.FeedHeaders())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLL_INTERVAL", "90")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("RETENTION_HOURS", "48")
	t.Setenv("PAIRING_POLICY", "positional")
	t.Setenv("TIMEZONE", "Europe/Paris")
	t.Setenv("GTFS_RT_API_KEY", "secret")
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.PollInterval)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 48*time.Hour, cfg.Retention)
	assert.Equal(t, "positional", cfg.PairingPolicy)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, map[string]string{"x-api-key": "secret"}, cfg.FeedHeaders())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("LOG_LEVEL=debug\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("LOG_LEVEL") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
gtfs_rt_url: https://feeds.example.com/rt.pb
poll_interval: 2m
anchor_policy: wall-clock
port: 8080
`), 0644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://feeds.example.com/rt.pb", cfg.GTFSRTURL)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval)
	assert.Equal(t, "wall-clock", cfg.AnchorPolicy)
	assert.Equal(t, 9090, cfg.Port, "environment wins over the file")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"bad pairing":    func(c *Config) { c.PairingPolicy = "nearest" },
		"bad anchor":     func(c *Config) { c.AnchorPolicy = "utc" },
		"bad url":        func(c *Config) { c.GTFSRTURL = "not a url" },
		"zero interval":  func(c *Config) { c.PollInterval = 0 },
		"bad timezone":   func(c *Config) { c.Timezone = "Mars/Olympus" },
		"missing dir":    func(c *Config) { c.SnapshotDir = "" },
		"bad log level":  func(c *Config) { c.LogLevel = "trace" },
		"port too large": func(c *Config) { c.Port = 70000 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Defaults().Validate())
}

func TestOverridePolicies(t *testing.T) {
	t.Run("empty keeps configured values", func(t *testing.T) {
		cfg := Defaults()
		cfg.AnchorPolicy = "wall-clock"
		require.NoError(t, cfg.OverridePolicies("", ""))
		assert.Equal(t, "trip", cfg.PairingPolicy)
		assert.Equal(t, "wall-clock", cfg.AnchorPolicy)
	})

	t.Run("valid overrides", func(t *testing.T) {
		cfg := Defaults()
		require.NoError(t, cfg.OverridePolicies("positional", "wall-clock"))
		assert.Equal(t, "positional", cfg.PairingPolicy)
		assert.Equal(t, "wall-clock", cfg.AnchorPolicy)
	})

	t.Run("typo is rejected", func(t *testing.T) {
		err := Defaults().OverridePolicies("positionl", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PairingPolicy")

		err = Defaults().OverridePolicies("", "serviceday")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AnchorPolicy")
	})
}
