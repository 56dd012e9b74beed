package config

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Storage backends
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Password modes
const (
	PasswordModeNone   = "none"
	PasswordModePlain  = "plain"
	PasswordModeBcrypt = "bcrypt"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `toml:"server" envPrefix:"SERVER_"`
	Storage StorageConfig `toml:"storage" envPrefix:"STORAGE_"`
	Auth    AuthConfig    `toml:"auth" envPrefix:"AUTH_"`
	Logging LoggingConfig `toml:"logging" envPrefix:"LOG_"`
	Library LibraryConfig `toml:"library" envPrefix:"LIBRARY_"`
}

// ServerConfig contains settings of the HTTP shell
type ServerConfig struct {
	Port           string  `toml:"port" env:"PORT"`
	Host           string  `toml:"host" env:"HOST"`
	EnableCORS     bool    `toml:"enable_cors" env:"ENABLE_CORS"`
	ReadTimeout    int     `toml:"read_timeout_seconds" env:"READ_TIMEOUT_SECONDS"`
	WriteTimeout   int     `toml:"write_timeout_seconds" env:"WRITE_TIMEOUT_SECONDS"`
	RequestLogging bool    `toml:"request_logging" env:"REQUEST_LOGGING"`
	AuthRateLimit  float64 `toml:"auth_rate_limit_per_second" env:"AUTH_RATE_LIMIT_PER_SECOND"`
	AuthRateBurst  int     `toml:"auth_rate_burst" env:"AUTH_RATE_BURST"`

	// TrustedProxies lists proxy addresses or CIDR ranges whose
	// X-Forwarded-For header is believed. Empty trusts no one.
	TrustedProxies []string `toml:"trusted_proxies" env:"TRUSTED_PROXIES" envSeparator:","`
}

// StorageConfig selects and configures the durable key-value backend
type StorageConfig struct {
	Backend   string `toml:"backend" env:"BACKEND"`
	Namespace string `toml:"namespace" env:"NAMESPACE"`
	// Path is the data directory for the file backend and the database file for sqlite.
	Path      string `toml:"path" env:"PATH"`
	RedisAddr string `toml:"redis_addr" env:"REDIS_ADDR"`
	RedisDB   int    `toml:"redis_db" env:"REDIS_DB"`
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	PasswordMode string `toml:"password_mode" env:"PASSWORD_MODE"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
	File   string `toml:"file" env:"FILE"`
}

// LibraryConfig contains settings for importing songs from audio files and
// watching the data directory.
type LibraryConfig struct {
	// ImportPath is the directory audio files may be imported from.
	ImportPath       string   `toml:"import_path" env:"IMPORT_PATH"`
	SupportedFormats []string `toml:"supported_formats" env:"SUPPORTED_FORMATS" envSeparator:","`
	WatchForChanges  bool     `toml:"watch_for_changes" env:"WATCH_FOR_CHANGES"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			Host:           "127.0.0.1",
			EnableCORS:     true,
			ReadTimeout:    30,
			WriteTimeout:   30,
			RequestLogging: true,
			AuthRateLimit:  1,
			AuthRateBurst:  5,
			TrustedProxies: []string{},
		},
		Storage: StorageConfig{
			Backend:   BackendFile,
			Namespace: "songshelf",
			Path:      "./data",
			RedisAddr: "127.0.0.1:6379",
			RedisDB:   0,
		},
		Auth: AuthConfig{
			PasswordMode: PasswordModeNone,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
		Library: LibraryConfig{
			ImportPath:       "./music",
			SupportedFormats: []string{".flac", ".mp3", ".wav", ".m4a"},
			WatchForChanges:  true,
		},
	}
}

// LoadConfig loads configuration from a TOML file, creating it with defaults
// when it does not exist, then applies SONGSHELF_* environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
	} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from SONGSHELF_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: "SONGSHELF_"}); err != nil {
		return fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	return nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Songshelf Configuration
# Storage backends: memory, file, sqlite, redis.
# Password modes: none (any password logs in), plain, bcrypt.
# Every value can be overridden with a SONGSHELF_* environment variable.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Server.AuthRateLimit < 0 || c.Server.AuthRateBurst < 0 {
		return fmt.Errorf("auth rate limit must not be negative")
	}

	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path cannot be empty for the %s backend", c.Storage.Backend)
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty for the redis backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be memory, file, sqlite, or redis)", c.Storage.Backend)
	}

	switch c.Auth.PasswordMode {
	case PasswordModeNone, PasswordModePlain, PasswordModeBcrypt:
	default:
		return fmt.Errorf("invalid password mode: %s (must be none, plain, or bcrypt)", c.Auth.PasswordMode)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	if len(c.Library.SupportedFormats) == 0 {
		return fmt.Errorf("at least one supported audio format must be specified")
	}

	return nil
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address becomes a
// single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.Server.TrustedProxies))
	for _, entry := range c.Server.TrustedProxies {
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy: %s", entry)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// IsFormatSupported checks if an audio format is supported
func (c *Config) IsFormatSupported(format string) bool {
	for _, supported := range c.Library.SupportedFormats {
		if supported == format {
			return true
		}
	}
	return false
}
