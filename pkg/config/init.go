package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with yaml tags for config file generation.
// Durations are rendered as strings so the file stays human-editable.
type fileConfig struct {
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Server struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		Framing         string `yaml:"framing"`
		MaxMessageSize  int    `yaml:"max_message_size"`
		MaxConnections  int    `yaml:"max_connections"`
		IdleTimeout     string `yaml:"idle_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		RequestRate     uint   `yaml:"request_rate"`
		RequestBurst    uint   `yaml:"request_burst"`
	} `yaml:"server"`
	Store struct {
		Type   string         `yaml:"type"`
		Memory map[string]any `yaml:"memory"`
		Badger map[string]any `yaml:"badger"`
		Admin  struct {
			Username string `yaml:"username"`
			Password string `yaml:"password"`
		} `yaml:"admin"`
	} `yaml:"store"`
	Sessions struct {
		IdleTimeout string `yaml:"idle_timeout"`
	} `yaml:"sessions"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Listen  string `yaml:"listen"`
	} `yaml:"metrics"`
}

// WriteDefaultConfig writes a sample configuration file with all defaults
// filled in. It refuses to overwrite an existing file.
func WriteDefaultConfig(path string) error {
	if path == "" {
		path = GetDefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	cfg := GetDefaultConfig()

	var out fileConfig
	out.Logging.Level = cfg.Logging.Level
	out.Logging.Format = cfg.Logging.Format
	out.Logging.Output = cfg.Logging.Output
	out.Server.Host = cfg.Server.Host
	out.Server.Port = cfg.Server.Port
	out.Server.Framing = cfg.Server.Framing
	out.Server.MaxMessageSize = cfg.Server.MaxMessageSize
	out.Server.MaxConnections = cfg.Server.MaxConnections
	out.Server.IdleTimeout = cfg.Server.IdleTimeout.String()
	out.Server.ShutdownTimeout = cfg.Server.ShutdownTimeout.String()
	out.Server.RequestRate = cfg.Server.RequestRate
	out.Server.RequestBurst = cfg.Server.RequestBurst
	out.Store.Type = cfg.Store.Type
	out.Store.Memory = cfg.Store.Memory
	out.Store.Badger = cfg.Store.Badger
	out.Store.Admin.Username = cfg.Store.Admin.Username
	out.Store.Admin.Password = "change-me"
	out.Sessions.IdleTimeout = cfg.Sessions.IdleTimeout.String()
	out.Metrics.Enabled = cfg.Metrics.Enabled
	out.Metrics.Listen = cfg.Metrics.Listen

	raw, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
