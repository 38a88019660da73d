// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "autoapply", cfg.Logger.ServiceName)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 60*time.Second, cfg.Network.NavigationTimeout)
	assert.Equal(t, 8*time.Second, cfg.Network.NewTabWait)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, 5*time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, ":8787", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.Autofill.LoginLinger)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate(), "a default config should validate cleanly")

	t.Run("MissingAddress", func(t *testing.T) {
		bad := *cfg
		bad.Server.Address = ""
		err := bad.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "server.address")
	})

	t.Run("NonPositiveTimeouts", func(t *testing.T) {
		bad := *cfg
		bad.Network.NavigationTimeout = 0
		assert.Error(t, bad.Validate())

		bad = *cfg
		bad.Network.ElementWait = -time.Second
		assert.Error(t, bad.Validate())

		bad = *cfg
		bad.Session.SweepInterval = 0
		assert.Error(t, bad.Validate())
	})

	t.Run("NonPositiveRate", func(t *testing.T) {
		bad := *cfg
		bad.Server.RatePerMinute = 0
		err := bad.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "rate_per_minute")
	})
}

// -- File Loading Tests --

func TestNewConfigFromViper(t *testing.T) {
	yamlConfig := []byte(`
logger:
  level: debug
  format: json
network:
  navigation_timeout: 45s
  new_tab_wait: 4s
session:
  idle_ttl: 10m
server:
  address: ":9900"
`)

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, 45*time.Second, cfg.Network.NavigationTimeout)
	assert.Equal(t, 4*time.Second, cfg.Network.NewTabWait)
	assert.Equal(t, 10*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, ":9900", cfg.Server.Address)

	// Defaults survive a partial file.
	assert.Equal(t, 5*time.Minute, cfg.Session.SweepInterval)
}

func TestHomeExpansion(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	// The default screenshot dir uses "~"; it must come back absolute.
	assert.NotContains(t, cfg.Browser.ScreenshotDir, "~")
}
