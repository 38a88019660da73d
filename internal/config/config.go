// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Network  NetworkConfig  `mapstructure:"network" yaml:"network"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
	Autofill AutofillConfig `mapstructure:"autofill" yaml:"autofill"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless browser processes.
// Each automation session launches its own isolated browser; these settings
// apply to every launch.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	UserAgent       string   `mapstructure:"user_agent" yaml:"user_agent"`
	ViewportWidth   int      `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight  int      `mapstructure:"viewport_height" yaml:"viewport_height"`
	Args            []string `mapstructure:"args" yaml:"args"`
	ScreenshotDir   string   `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
}

// NetworkConfig tunes every bounded wait in the automation pipeline.
// No operation in the pipeline blocks indefinitely; each timeout here is
// individually tunable.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	NetworkIdleWait   time.Duration `mapstructure:"network_idle_wait" yaml:"network_idle_wait"`
	SettleDelay       time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	ElementWait       time.Duration `mapstructure:"element_wait" yaml:"element_wait"`
	ClickTimeout      time.Duration `mapstructure:"click_timeout" yaml:"click_timeout"`
	NewTabWait        time.Duration `mapstructure:"new_tab_wait" yaml:"new_tab_wait"`
}

// ServerConfig configures the HTTP surface of the service.
type ServerConfig struct {
	Address         string        `mapstructure:"address" yaml:"address"`
	AuthToken       string        `mapstructure:"auth_token" yaml:"-"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	RatePerMinute   float64       `mapstructure:"rate_per_minute" yaml:"rate_per_minute"`
	RateBurst       int           `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// SessionConfig governs the in-memory session store and its reaper.
type SessionConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl" yaml:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// AutofillConfig holds orchestration-level knobs.
type AutofillConfig struct {
	// LoginLinger is how long a session stays observable in login_required
	// state before its browser is proactively closed, so a status poll can
	// see the terminal state.
	LoginLinger time.Duration `mapstructure:"login_linger" yaml:"login_linger"`
}

// NewDefaultConfig creates a configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "autoapply")
	v.SetDefault("logger.log_file", "autoapply.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	v.SetDefault("browser.viewport_width", 1920)
	v.SetDefault("browser.viewport_height", 1080)
	v.SetDefault("browser.screenshot_dir", "~/.autoapply/screenshots")

	// -- Network --
	v.SetDefault("network.navigation_timeout", "60s")
	v.SetDefault("network.network_idle_wait", "10s")
	v.SetDefault("network.settle_delay", "3s")
	v.SetDefault("network.element_wait", "5s")
	v.SetDefault("network.click_timeout", "10s")
	v.SetDefault("network.new_tab_wait", "8s")

	// -- Server --
	v.SetDefault("server.address", ":8787")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "20s")
	v.SetDefault("server.rate_per_minute", 60.0)
	v.SetDefault("server.rate_burst", 20)

	// -- Session --
	v.SetDefault("session.idle_ttl", "30m")
	v.SetDefault("session.sweep_interval", "5m")

	// -- Autofill --
	v.SetDefault("autofill.login_linger", "10s")
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("server.auth_token", "AUTOAPPLY_AUTH_TOKEN")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand "~" in user-facing paths.
	if dir, err := homedir.Expand(cfg.Browser.ScreenshotDir); err == nil {
		cfg.Browser.ScreenshotDir = dir
	}
	if file, err := homedir.Expand(cfg.Logger.LogFile); err == nil {
		cfg.Logger.LogFile = file
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is a required configuration field")
	}
	if c.Network.NavigationTimeout <= 0 {
		return fmt.Errorf("network.navigation_timeout must be a positive duration")
	}
	if c.Network.ElementWait <= 0 {
		return fmt.Errorf("network.element_wait must be a positive duration")
	}
	if c.Network.NewTabWait <= 0 {
		return fmt.Errorf("network.new_tab_wait must be a positive duration")
	}
	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("session.idle_ttl must be a positive duration")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session.sweep_interval must be a positive duration")
	}
	if c.Server.RatePerMinute <= 0 {
		return fmt.Errorf("server.rate_per_minute must be positive")
	}
	return nil
}
