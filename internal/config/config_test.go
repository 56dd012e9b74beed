package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:8080", cfg.GetAddress())
	assert.Equal(t, PasswordModeNone, cfg.Auth.PasswordMode)
	assert.True(t, cfg.IsFormatSupported(".mp3"))
	assert.False(t, cfg.IsFormatSupported(".ogg"))
}

func TestLoadConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.toml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Songshelf Configuration"))
	assert.Contains(t, string(data), `backend = "file"`)
}

func TestLoadConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = "9090"
host = "0.0.0.0"

[storage]
backend = "sqlite"
path = "songs.db"

[auth]
password_mode = "bcrypt"

[logging]
level = "debug"
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.GetAddress())
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, PasswordModeBcrypt, cfg.Auth.PasswordMode)
	assert.Equal(t, "json", cfg.Logging.Format)
	// Sections missing from the file keep their defaults.
	assert.Equal(t, "songshelf", cfg.Storage.Namespace)
	assert.Equal(t, []string{".flac", ".mp3", ".wav", ".m4a"}, cfg.Library.SupportedFormats)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, DefaultConfig().SaveToFile(path))

	t.Setenv("SONGSHELF_STORAGE_BACKEND", "redis")
	t.Setenv("SONGSHELF_STORAGE_REDIS_ADDR", "cache:6380")
	t.Setenv("SONGSHELF_AUTH_PASSWORD_MODE", "plain")
	t.Setenv("SONGSHELF_LIBRARY_SUPPORTED_FORMATS", ".mp3,.flac")
	t.Setenv("SONGSHELF_SERVER_AUTH_RATE_LIMIT_PER_SECOND", "2.5")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "cache:6380", cfg.Storage.RedisAddr)
	assert.Equal(t, PasswordModePlain, cfg.Auth.PasswordMode)
	assert.Equal(t, []string{".mp3", ".flac"}, cfg.Library.SupportedFormats)
	assert.InDelta(t, 2.5, cfg.Server.AuthRateLimit, 0.0001)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport="), 0644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }, "server port"},
		{"negative timeout", func(c *Config) { c.Server.ReadTimeout = -1 }, "timeouts"},
		{"negative rate", func(c *Config) { c.Server.AuthRateLimit = -1 }, "rate limit"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "mongo" }, "invalid storage backend"},
		{"file without path", func(c *Config) { c.Storage.Path = "" }, "storage path"},
		{"redis without addr", func(c *Config) {
			c.Storage.Backend = BackendRedis
			c.Storage.RedisAddr = ""
		}, "redis address"},
		{"memory without path", func(c *Config) {
			c.Storage.Backend = BackendMemory
			c.Storage.Path = ""
		}, ""},
		{"unknown password mode", func(c *Config) { c.Auth.PasswordMode = "md5" }, "password mode"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "log level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
		{"no formats", func(c *Config) { c.Library.SupportedFormats = nil }, "audio format"},
		{"bad trusted proxy", func(c *Config) { c.Server.TrustedProxies = []string{"proxy.local"} }, "trusted proxy"},
		{"trusted proxies", func(c *Config) { c.Server.TrustedProxies = []string{"10.0.0.0/8", "127.0.0.1", "::1"} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestTrustedProxyPrefixes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.TrustedProxies = []string{"10.1.2.3/8", "192.168.1.5"}

	prefixes, err := cfg.TrustedProxyPrefixes()
	require.NoError(t, err)
	require.Len(t, prefixes, 2)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "192.168.1.5/32", prefixes[1].String())
}
