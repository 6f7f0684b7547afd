package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server struct {
		Port         string `yaml:"port"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Storage struct {
		Driver     string `yaml:"driver"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Tests struct {
		TTL string `yaml:"ttl"`
	} `yaml:"tests"`
	Leaderboard struct {
		DefaultLimit int `yaml:"default_limit"`
	} `yaml:"leaderboard"`
	Seed struct {
		Path string `yaml:"path"`
	} `yaml:"seed"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Storage.Driver = DriverMemory
	cfg.Storage.SQLitePath = "data/aptitude.db"
	cfg.Leaderboard.DefaultLimit = 10
	cfg.Seed.Path = "config/seed.yaml"
	return cfg
}

// Load reads YAML config from path over the defaults, then applies .env and
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LEADERBOARD_DEFAULT_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LEADERBOARD_DEFAULT_LIMIT: %w", err)
		}
		c.Leaderboard.DefaultLimit = n
	}
	return nil
}

// Validate reports configuration that cannot start a server.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("storage driver %q requires postgres.url", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == DriverSQLite && c.Storage.SQLitePath == "" {
		return fmt.Errorf("storage driver %q requires storage.sqlite_path", c.Storage.Driver)
	}
	if c.Leaderboard.DefaultLimit < 1 {
		return fmt.Errorf("leaderboard.default_limit must be positive, got %d", c.Leaderboard.DefaultLimit)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
