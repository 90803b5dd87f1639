package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Sync      SyncConfig      `yaml:"sync"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Converter ConverterConfig `yaml:"converter"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // mysql, postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	Debug                  bool   `yaml:"debug"`
}

// SyncConfig controls the scheduled hierarchy synchronization.
type SyncConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Schedule   string `yaml:"schedule"`
	RunOnStart bool   `yaml:"run_on_start"`
}

// GatewayConfig controls the edge gateway monitor.
type GatewayConfig struct {
	Enabled             bool          `yaml:"enabled"`
	Schedule            string        `yaml:"schedule"`
	Size                int           `yaml:"size"`
	ProbeTimeoutSeconds int           `yaml:"probe_timeout_seconds"`
	ProbeTimeout        time.Duration `yaml:"-"`
	StatusTTLSeconds    int           `yaml:"status_ttl_seconds"`
	StatusTTL           time.Duration `yaml:"-"`
}

// ConverterConfig points at the external AAS/AASX converter.
type ConverterConfig struct {
	URL            string        `yaml:"url"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes <= 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}

	if cfg.Sync.Schedule == "" {
		cfg.Sync.Schedule = "@every 1h"
	}

	if cfg.Gateway.Schedule == "" {
		cfg.Gateway.Schedule = "@every 1m"
	}
	if cfg.Gateway.Size <= 0 {
		log.Printf("gateway.size is not set or invalid; defaulting to 4")
		cfg.Gateway.Size = 4
	}
	if cfg.Gateway.ProbeTimeoutSeconds <= 0 {
		cfg.Gateway.ProbeTimeoutSeconds = 2
	}
	cfg.Gateway.ProbeTimeout = time.Duration(cfg.Gateway.ProbeTimeoutSeconds) * time.Second
	if cfg.Gateway.StatusTTLSeconds <= 0 {
		cfg.Gateway.StatusTTLSeconds = 60
	}
	cfg.Gateway.StatusTTL = time.Duration(cfg.Gateway.StatusTTLSeconds) * time.Second

	if cfg.Converter.TimeoutSeconds <= 0 {
		cfg.Converter.TimeoutSeconds = 30
	}
	cfg.Converter.Timeout = time.Duration(cfg.Converter.TimeoutSeconds) * time.Second
}

// ApplyEnv overlays environment variables, after loading .env files if any,
// on top of the file configuration.
func ApplyEnv(cfg *Config, envFiles ...string) error {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("PYTHON_SERVER_URL"); v != "" {
		cfg.Converter.URL = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}
