// Package config loads the service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the dcaflow backend
type Config struct {
	Server    Server    `yaml:"server"`
	Database  Database  `yaml:"database"`
	Alpaca    Alpaca    `yaml:"alpaca"`
	Scheduler Scheduler `yaml:"scheduler"`
	Backtest  Backtest  `yaml:"backtest"`
	Logging   Logging   `yaml:"logging"`
}

// Server holds network listener and authentication configuration
type Server struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	APIToken string `yaml:"api_token"`
}

// Addr returns the listen address in host:port form
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Database holds postgres connection parameters. ConnStr wins when set;
// otherwise the individual fields are assembled (Docker friendly).
type Database struct {
	ConnStr  string `yaml:"conn_str"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnectionString builds the lib/pq connection string
func (d Database) ConnectionString() string {
	if d.ConnStr != "" {
		return d.ConnStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Alpaca holds credentials for the Alpaca market-data API. When the key is
// empty, the backend serves prices from its own price_history table instead.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Scheduler configures the recurrence engine
type Scheduler struct {
	// FallbackUTCOffsetHours approximates civil time when timezone data is
	// unavailable. Explicit configuration, not a process-wide zone lookup.
	FallbackUTCOffsetHours int `yaml:"fallback_utc_offset_hours"`
}

// Backtest configures the simulation engine
type Backtest struct {
	ToleranceHours int `yaml:"tolerance_hours"` // staleness window, default 48
	MaxPeriods     int `yaml:"max_periods"`     // execution dates per run, default 5000
}

// Logging configures the application logger
type Logging struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: Server{
			Host:     "0.0.0.0",
			Port:     8080,
			APIToken: "dev-token",
		},
		Database: Database{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "dcaflow",
			SSLMode:  "disable",
		},
		Alpaca: Alpaca{
			Feed: "iex",
		},
		Backtest: Backtest{
			ToleranceHours: 48,
			MaxPeriods:     5000,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load reads the YAML configuration file at the given path, parses it over
// the defaults, and then applies environment variable overrides. A missing
// file is not an error: defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env overrides
	default:
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("API_TOKEN"); v != "" {
		cfg.Server.APIToken = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("DB_CONN_STR"); v != "" {
		cfg.Database.ConnStr = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		cfg.Database.Port = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}

	// Canonical Alpaca env vars used by the SDK
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
