// Package config loads, defaults and validates the OmniFS configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (OMNIFS_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Store Configuration Pattern:
// each store implementation defines its own configuration type; the Config
// struct carries type-specific sections as raw maps and only the section
// matching the selected type is decoded.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete OmniFS server configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains the listener settings
	Server ServerConfig `mapstructure:"server"`

	// Store specifies the store type and type-specific configuration
	Store StoreConfig `mapstructure:"store"`

	// Sessions controls session lifetime
	Sessions SessionsConfig `mapstructure:"sessions"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains the listener settings.
type ServerConfig struct {
	// Host is the bind address. Empty binds all interfaces.
	Host string `mapstructure:"host"`

	// Port is the TCP port to listen on
	Port int `mapstructure:"port" validate:"required,gt=0,lte=65535"`

	// Framing selects the message boundary scheme
	// Valid values: length, scan
	Framing string `mapstructure:"framing" validate:"required,oneof=length scan"`

	// MaxMessageSize bounds one request document in bytes
	MaxMessageSize int `mapstructure:"max_message_size" validate:"gte=0"`

	// MaxConnections caps concurrently served connections. 0 = unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"gte=0"`

	// IdleTimeout disconnects clients with no request for this duration.
	// 0 disables the deadline.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`

	// RequestRate throttles request processing, in requests per second.
	// 0 = unlimited.
	RequestRate uint `mapstructure:"request_rate"`

	// RequestBurst is the throttle's burst capacity. 0 = RequestRate.
	RequestBurst uint `mapstructure:"request_burst"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// StoreConfig specifies store selection and configuration.
//
// The Type field determines which implementation is used. Only the
// corresponding type-specific section is decoded.
type StoreConfig struct {
	// Type specifies which store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`

	// Admin seeds the initial administrator account
	Admin AdminConfig `mapstructure:"admin"`
}

// AdminConfig seeds the initial administrator account.
type AdminConfig struct {
	// Username of the seeded administrator. Empty skips seeding, which
	// leaves the server with no way to log in on a fresh store.
	Username string `mapstructure:"username" validate:"required"`

	// Password for the seeded administrator
	Password string `mapstructure:"password" validate:"required"`
}

// SessionsConfig controls session lifetime.
type SessionsConfig struct {
	// IdleTimeout evicts sessions with no request for this duration.
	// 0 means sessions never expire.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the HTTP endpoint
	Enabled bool `mapstructure:"enabled"`

	// Listen is the HTTP address serving /metrics
	Listen string `mapstructure:"listen"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: path to config file (empty string uses the default location)
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file
// settings.
//
// Environment variables use the OMNIFS_ prefix with underscores, for example
// OMNIFS_LOGGING_LEVEL=DEBUG or OMNIFS_SERVER_PORT=9300.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("OMNIFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing file
// is acceptable; the defaults take over.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, falling back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "omnifs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "omnifs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
