package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "settlement-service")
	t.Setenv("STORAGE_DRIVER", "sqlite")

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "8084", cfg.HTTPPort)
	assert.Equal(t, "9100", cfg.MetricsPort)
	assert.Equal(t, int32(2), cfg.CurrencyDecimals)
	assert.Equal(t, 30*time.Second, cfg.SettlementInterval)
	assert.Equal(t, "bet_settled", cfg.TopicBetSettled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "wallet-service")
	t.Setenv("HTTP_PORT_WALLET", "9999")
	t.Setenv("SETTLEMENT_POLL_INTERVAL", "5s")
	t.Setenv("SETTLEMENT_WORKERS", "not-a-number")

	cfg := Load()
	assert.Equal(t, "9999", cfg.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.SettlementInterval)
	assert.Equal(t, 4, cfg.SettlementWorkers, "unparseable values fall back to the default")
}

func TestValidate(t *testing.T) {
	base := Config{
		StorageDriver:      DriverSQLite,
		SQLitePath:         "x.db",
		CurrencyDecimals:   2,
		SettlementInterval: time.Second,
		SettlementWorkers:  1,
		ResultFeedTimeout:  time.Second,
	}
	require.NoError(t, base.Validate())

	cases := map[string]func(c *Config){
		"unknown-driver":    func(c *Config) { c.StorageDriver = "mysql" },
		"empty-sqlite-path": func(c *Config) { c.SQLitePath = "" },
		"too-many-decimals": func(c *Config) { c.CurrencyDecimals = 9 },
		"zero-interval":     func(c *Config) { c.SettlementInterval = 0 },
		"zero-workers":      func(c *Config) { c.SettlementWorkers = 0 },
		"zero-feed-timeout": func(c *Config) { c.ResultFeedTimeout = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
