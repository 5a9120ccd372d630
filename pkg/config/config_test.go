package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeTempConfig(t, `
store:
  admin:
    password: secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "length", cfg.Server.Framing)
	assert.Equal(t, 5*time.Minute, cfg.Server.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "admin", cfg.Store.Admin.Username)
	assert.Equal(t, "secret", cfg.Store.Admin.Password)
}

func TestLoad_ExplicitValues(t *testing.T) {
	path := writeTempConfig(t, `
logging:
  level: debug
  format: json
server:
  host: 127.0.0.1
  port: 7000
  framing: scan
  max_connections: 64
store:
  type: badger
  badger:
    dir: /data/omnifs
    total_size: 1048576
  admin:
    username: root
    password: hunter2
sessions:
  idle_timeout: 15m
metrics:
  enabled: true
  listen: ":9400"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Lowercase level is normalized.
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "scan", cfg.Server.Framing)
	assert.Equal(t, 64, cfg.Server.MaxConnections)
	assert.Equal(t, "badger", cfg.Store.Type)
	assert.Equal(t, "/data/omnifs", cfg.Store.Badger["dir"])
	assert.Equal(t, "root", cfg.Store.Admin.Username)
	assert.Equal(t, 15*time.Minute, cfg.Sessions.IdleTimeout)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9400", cfg.Metrics.Listen)
}

func TestLoad_MissingAdminPassword(t *testing.T) {
	path := writeTempConfig(t, `
server:
  port: 7000
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoad_InvalidFraming(t *testing.T) {
	path := writeTempConfig(t, `
server:
  framing: chunked
store:
  admin:
    password: secret
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	path := writeTempConfig(t, `
logging:
  level: verbose
store:
  admin:
    password: secret
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate_BadgerRequiresDir(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "badger"
	cfg.Store.Badger["dir"] = ""
	cfg.Store.Admin.Password = "x"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dir is required")

	cfg.Store.Badger["in_memory"] = true
	require.NoError(t, Validate(cfg))
}

func TestCreateStore_Memory(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Admin.Password = "secret"
	cfg.Store.Memory["bcrypt_cost"] = 4

	s, err := CreateStore(cfg.Store)
	require.NoError(t, err)
	defer s.Close()

	user, err := s.Authenticate(t.Context(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
}

func TestCreateStore_Badger(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "badger"
	cfg.Store.Badger["dir"] = t.TempDir()
	cfg.Store.Badger["bcrypt_cost"] = 4
	cfg.Store.Admin.Password = "secret"

	s, err := CreateStore(cfg.Store)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Authenticate(t.Context(), "admin", "secret")
	require.NoError(t, err)
}

func TestCreateStore_UnknownType(t *testing.T) {
	_, err := CreateStore(StoreConfig{Type: "sqlite"})
	require.Error(t, err)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, WriteDefaultConfig(path))

	// The generated file loads cleanly once the password placeholder is
	// in place.
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "change-me", cfg.Store.Admin.Password)

	// Refuses to clobber.
	require.Error(t, WriteDefaultConfig(path))
}
