package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Engine, cfg.Engine)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finmodel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  tolerance: 0.5
  days_in_year: 360
  discount_rate: 15
scenario:
  workers: 8
store:
  backend: file
  dir: /tmp/models
log:
  level: debug
  format: json
`), 0o644))

	t.Setenv("FINMODEL_ADDR", ":9090")
	t.Setenv("FINMODEL_WORKERS", "2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Engine.Tolerance)
	assert.Equal(t, 360.0, cfg.Engine.DaysInYear)
	assert.Equal(t, 15.0, cfg.Engine.DiscountRate)
	assert.Equal(t, 2, cfg.Scenario.Workers)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestApplyEnv_BadNumber(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		if k == "FINMODEL_TOLERANCE" {
			return "abc", true
		}
		return "", false
	})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = BackendPostgres }, false},
		{"sqlite with dsn", func(c *Config) { c.Store.Backend = BackendSQLite; c.Store.DSN = "file:models.db" }, true},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, false},
		{"zero tolerance", func(c *Config) { c.Engine.Tolerance = 0 }, false},
		{"odd day count", func(c *Config) { c.Engine.DaysInYear = 364 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			if tt.ok {
				assert.NoError(t, c.Validate())
			} else {
				assert.Error(t, c.Validate())
			}
		})
	}
}
