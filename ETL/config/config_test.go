package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binisha8/sales_inventory_etl/ETL/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "etl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Warehouse.Driver)
	assert.Equal(t, int64(100), cfg.Inventory.DefaultBOH)
	assert.Equal(t, GapPolicyLiteral, cfg.Inventory.GapPolicy)
	assert.Equal(t, DuplicateReject, cfg.Staging.DuplicateKeys)
	assert.Equal(t, time.Hour, cfg.RunInterval)
}

func TestLoadConfig_FileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
job_name: nightly
run_interval: 30m
warehouse:
  driver: mysql
  host: db.internal
  port: 3306
  user: etl
  password: secret
  dbname: dw
inventory:
  default_boh: 250
  gap_policy: fill
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "nightly", cfg.JobName)
	assert.Equal(t, 30*time.Minute, cfg.RunInterval)
	assert.Equal(t, "mysql", cfg.Warehouse.Driver)
	assert.Equal(t, int64(250), cfg.Inventory.DefaultBOH)
	assert.Equal(t, GapPolicyFill, cfg.Inventory.GapPolicy)
	// не указано в файле - остается по умолчанию
	assert.Equal(t, DuplicateReject, cfg.Staging.DuplicateKeys)
	assert.Equal(t, ":8090", cfg.Server.Addr)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	path := writeConfig(t, "job_name: from_env\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "from_env", cfg.JobName)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "warehouse:\n  driver: postgres\n"},
		{"mysql without host", "warehouse:\n  driver: mysql\n  path: ''\n"},
		{"bad gap policy", "inventory:\n  gap_policy: magic\n"},
		{"negative default boh", "inventory:\n  default_boh: -1\n"},
		{"bad duplicate policy", "staging:\n  duplicate_keys: first_wins\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDSN_MySQL(t *testing.T) {
	dsn := DSN(DatabaseConfig{
		Driver:   "mysql",
		Host:     "localhost",
		Port:     3306,
		User:     "root",
		Password: "pw",
		DBName:   "dw",
	})

	assert.True(t, strings.HasPrefix(dsn, "root:pw@tcp(localhost:3306)/dw?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
}

func TestConnectWarehouse_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dw.db")

	db, dialect, err := ConnectWarehouse(context.Background(), DatabaseConfig{Driver: "sqlite3", Path: path})
	require.NoError(t, err)
	defer CloseWarehouse(db)

	assert.Equal(t, models.DialectSQLite, dialect)
	assert.NoError(t, db.Ping())
}

func TestConnectWarehouse_UnknownDriver(t *testing.T) {
	_, _, err := ConnectWarehouse(context.Background(), DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
