package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/worklog/config"
	"github.com/kilianp07/worklog/core/ledger"
)

func TestOpen_SQLite(t *testing.T) {
	cfg := config.StoreConfig{Driver: config.DriverSQLite, DSN: filepath.Join(t.TempDir(), "worklog.db")}
	cfg.SetDefaults()
	b, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer b.Close()

	assert.NotNil(t, b.SQL)
	assert.Equal(t, config.DriverSQLite, b.Dialect)
	assert.NoError(t, b.PingContext(context.Background()))
	v, err := b.Directory.AddVehicle(context.Background(), "Van", "06 AA 1")
	require.NoError(t, err)
	_, err = b.Ledger.Apply(context.Background(), ledger.Delta{
		VehicleID: v.ID, Day: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Active: decimal.NewFromInt(2), At: time.Now(),
	})
	require.NoError(t, err)
}

func TestOpen_Memory(t *testing.T) {
	cfg := config.StoreConfig{Driver: config.DriverMemory}
	cfg.SetDefaults()
	b, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, b.SQL)
	assert.NoError(t, b.PingContext(context.Background()))
	assert.NoError(t, b.Close())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "cassandra", TimeoutSeconds: 1})
	assert.ErrorContains(t, err, "unknown store driver")
}
