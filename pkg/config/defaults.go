package config

import (
	"strings"
	"time"
)

// Default network and store values.
const (
	DefaultPort           = 9300
	DefaultMetricsListen  = ":9301"
	DefaultTotalSizeBytes = uint64(64 << 20)
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
// Store-specific defaults beyond capacity are handled by the store
// implementations.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets listener defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Framing == "" {
		cfg.Framing = "length"
	}
	// MaxMessageSize 0 means the protocol default.
	// MaxConnections 0 means unlimited.
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyStoreDefaults sets store selection defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	// Capacity defaults apply to both sections so a generated config file
	// documents them regardless of the selected type.
	if _, ok := cfg.Memory["total_size"]; !ok {
		cfg.Memory["total_size"] = DefaultTotalSizeBytes
	}
	if _, ok := cfg.Badger["total_size"]; !ok {
		cfg.Badger["total_size"] = DefaultTotalSizeBytes
	}
	if _, ok := cfg.Badger["dir"]; !ok {
		cfg.Badger["dir"] = "/var/lib/omnifs"
	}

	if cfg.Admin.Username == "" {
		cfg.Admin.Username = "admin"
	}
	// The admin password has no default. Validation rejects an empty one
	// so a fresh deployment cannot come up with a guessable account.
}

// applyMetricsDefaults sets metrics endpoint defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Listen == "" {
		cfg.Listen = DefaultMetricsListen
	}
}

// GetDefaultConfig returns a Config with all default values applied, useful
// for generating sample configuration files and for tests. The admin
// password is left empty and must be filled in before the config validates.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Store: StoreConfig{
			Memory: make(map[string]any),
			Badger: make(map[string]any),
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
