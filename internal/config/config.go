// Package config provides the typed configuration for sitegate. Values are
// layered by viper (defaults, optional config file, SITEGATE_* environment
// variables) and decoded here in one place.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Store     StoreConfig     `mapstructure:"store"`
	Admission AdmissionConfig `mapstructure:"admission"`
	Contact   ContactConfig   `mapstructure:"contact"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig contains the shared counter store connection settings. The
// Timeout bounds every store round trip; a timed-out call denies the request
// it was serving.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// QuotaConfig is one admission strategy's budget.
type QuotaConfig struct {
	Capacity int64         `mapstructure:"capacity"`
	Window   time.Duration `mapstructure:"window"`
}

// AdmissionConfig tunes the request admission control core.
type AdmissionConfig struct {
	// ProtectedPrefixes lists the path prefixes the interceptor guards.
	ProtectedPrefixes []string `mapstructure:"protected_prefixes"`

	// ContactPath is the endpoint additionally covered by the
	// multi-strategy gate.
	ContactPath string `mapstructure:"contact_path"`

	// AbuseThreshold requests within AbuseWindow from one address triggers
	// a ban of BanTTL.
	AbuseThreshold int64         `mapstructure:"abuse_threshold"`
	AbuseWindow    time.Duration `mapstructure:"abuse_window"`
	BanTTL         time.Duration `mapstructure:"ban_ttl"`

	Global     QuotaConfig `mapstructure:"global"`
	PerAddress QuotaConfig `mapstructure:"per_address"`
	PerDevice  QuotaConfig `mapstructure:"per_device"`
}

// ContactConfig tunes contact form handling.
type ContactConfig struct {
	MaxMessageLength int    `mapstructure:"max_message_length"`
	AdminEmail       string `mapstructure:"admin_email"`
}

// AdminConfig contains the admin surface settings. An empty token disables
// the admin routes entirely.
type AdminConfig struct {
	Token string `mapstructure:"token"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load decodes the current viper state into a typed Config.
func Load() (*Config, error) {
	cfg := &Config{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(viper.AllSettings()); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultStorePath returns the default on-disk location for the libsql store.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sitegate.db"
	}
	return filepath.Join(home, ".local", "share", "sitegate", "sitegate.db")
}
