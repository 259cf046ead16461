// Package config loads the daemon configuration from YAML with
// environment overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the full daemon configuration.
type Config struct {
	Remote    RemoteConfig    `yaml:"remote"`
	Cache     CacheConfig     `yaml:"cache"`
	Snapshots SnapshotsConfig `yaml:"snapshots"`
	Server    ServerConfig    `yaml:"server"`
}

// RemoteConfig holds the remote database sync settings.
type RemoteConfig struct {
	DSN            string `yaml:"dsn"`              // Postgres DSN; empty runs offline
	LoadTimeoutMs  int    `yaml:"load_timeout_ms"`  // Startup load deadline
	SaveDebounceMs int    `yaml:"save_debounce_ms"` // Quiet period before a remote save
	EnsureSchema   bool   `yaml:"ensure_schema"`    // Create missing tables on startup
}

// CacheConfig holds the local cache settings.
type CacheConfig struct {
	Path string `yaml:"path"` // SQLite file path
}

// SnapshotsConfig selects the archive backend.
type SnapshotsConfig struct {
	Driver string   `yaml:"driver"` // fs|s3|memory
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// S3Config parameterizes the S3 archive backend.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`   // optional, for MinIO
	PathStyle bool   `yaml:"path_style"` // default false
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Addr string `yaml:"addr"` // state/status/metrics listener
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Remote: RemoteConfig{
			LoadTimeoutMs:  15000,
			SaveDebounceMs: 1500,
			EnsureSchema:   true,
		},
		Cache: CacheConfig{Path: "plancore.db"},
		Snapshots: SnapshotsConfig{
			Driver: "fs",
			FSRoot: "./snapshots",
		},
		Server: ServerConfig{Addr: ":9180"},
	}
}

// Load reads path, falling back to defaults when the file does not
// exist. Environment overrides are applied after file loading.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnvOverrides()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PLANCORE_REMOTE_DSN"); v != "" {
		c.Remote.DSN = v
	}
	if v := os.Getenv("PLANCORE_CACHE_PATH"); v != "" {
		c.Cache.Path = v
	}
	if v := os.Getenv("PLANCORE_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PLANCORE_SNAPSHOTS_DRIVER"); v != "" {
		c.Snapshots.Driver = v
	}
	if v := os.Getenv("PLANCORE_SNAPSHOTS_S3_BUCKET"); v != "" {
		c.Snapshots.S3.Bucket = v
	}
	if v := os.Getenv("PLANCORE_SAVE_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Remote.SaveDebounceMs = ms
		}
	}
}

func (c *Config) validate() error {
	if c.Remote.SaveDebounceMs < 0 {
		return fmt.Errorf("remote.save_debounce_ms must not be negative")
	}
	if c.Remote.LoadTimeoutMs < 0 {
		return fmt.Errorf("remote.load_timeout_ms must not be negative")
	}
	switch strings.ToLower(c.Snapshots.Driver) {
	case "", "fs", "memory":
	case "s3":
		if c.Snapshots.S3.Bucket == "" {
			return fmt.Errorf("snapshots.s3.bucket required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown snapshots.driver %q", c.Snapshots.Driver)
	}
	return nil
}
