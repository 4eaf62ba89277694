package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "dev-token", cfg.Server.APIToken)
	assert.Equal(t, "dcaflow", cfg.Database.Name)
	assert.Equal(t, "iex", cfg.Alpaca.Feed)
	assert.Equal(t, 48, cfg.Backtest.ToleranceHours)
	assert.Equal(t, 5000, cfg.Backtest.MaxPeriods)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "dcaflow", cfg.Database.Name)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: 9090
  api_token: file-token
database:
  name: dcaflow_test
scheduler:
  fallback_utc_offset_hours: -5
backtest:
  tolerance_hours: 24
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "file-token", cfg.Server.APIToken)
	assert.Equal(t, "dcaflow_test", cfg.Database.Name)
	assert.Equal(t, -5, cfg.Scheduler.FallbackUTCOffsetHours)
	assert.Equal(t, 24, cfg.Backtest.ToleranceHours)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched sections keep their defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Backtest.MaxPeriods)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("API_TOKEN", "env-token")
	t.Setenv("PORT", "7070")
	t.Setenv("DB_CONN_STR", "postgres://env")
	t.Setenv("APCA_API_KEY_ID", "env-key")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Server.APIToken)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres://env", cfg.Database.ConnStr)
	assert.Equal(t, "postgres://env", cfg.Database.ConnectionString())
	assert.Equal(t, "env-key", cfg.Alpaca.APIKey)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestConnectionString_Assembled(t *testing.T) {
	d := Database{
		Host: "db", Port: "5433", User: "u", Password: "p",
		Name: "dcaflow", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5433 user=u password=p dbname=dcaflow sslmode=disable",
		d.ConnectionString())
}
