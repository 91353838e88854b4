// Package config loads service configuration from a YAML file, a .env file
// and FINMODEL_* environment overrides, in that order of precedence (last
// wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"smme_finmodel/pkg/core/logger"
)

// DefaultPath is where binaries look for the config file.
const DefaultPath = "config/finmodel.yaml"

// Store backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type EngineConfig struct {
	Tolerance    float64 `yaml:"tolerance"`
	DaysInYear   float64 `yaml:"days_in_year"`
	DiscountRate float64 `yaml:"discount_rate"` // annual, percent
}

type ScenarioConfig struct {
	Workers int `yaml:"workers"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`
	Dir     string `yaml:"dir"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the full service configuration.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Scenario ScenarioConfig `yaml:"scenario"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Log      logger.Config  `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine:   EngineConfig{Tolerance: 0.01, DaysInYear: 365, DiscountRate: 12},
		Scenario: ScenarioConfig{Workers: 4},
		Store:    StoreConfig{Backend: BackendMemory, Dir: "data/models"},
		Server:   ServerConfig{Addr: ":8080"},
		Log:      logger.DefaultConfig(),
	}
}

// Load reads path (a missing file keeps the defaults), then .env, then the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	// .env is optional.
	_ = godotenv.Load()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"FINMODEL_STORE":     &c.Store.Backend,
		"DATABASE_URL":       &c.Store.DSN,
		"FINMODEL_DATA_DIR":  &c.Store.Dir,
		"FINMODEL_ADDR":      &c.Server.Addr,
		"FINMODEL_LOG_LEVEL": &c.Log.Level,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("FINMODEL_TOLERANCE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FINMODEL_TOLERANCE: %w", err)
		}
		c.Engine.Tolerance = f
	}
	if v, ok := lookup("FINMODEL_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FINMODEL_WORKERS: %w", err)
		}
		c.Scenario.Workers = n
	}
	return nil
}

// Validate rejects configurations the services cannot start with.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Store.Dir == "" {
			return errors.New("config: store.dir is required for the file backend")
		}
	case BackendSQLite, BackendPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for the %s backend", c.Store.Backend)
		}
	default:
		return fmt.Errorf("config: unknown store backend '%s'", c.Store.Backend)
	}
	if c.Engine.Tolerance <= 0 {
		return errors.New("config: engine.tolerance must be positive")
	}
	if c.Engine.DaysInYear != 360 && c.Engine.DaysInYear != 365 {
		return fmt.Errorf("config: engine.days_in_year must be 360 or 365 (got %g)", c.Engine.DaysInYear)
	}
	return nil
}
