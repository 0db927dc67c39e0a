// Package store opens the ledger backend named in the configuration.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kilianp07/worklog/config"
	"github.com/kilianp07/worklog/core/fleet"
	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/infra/store/mongo"
	"github.com/kilianp07/worklog/infra/store/mysql"
	"github.com/kilianp07/worklog/infra/store/postgres"
	"github.com/kilianp07/worklog/infra/store/sqlite"
)

// Backend bundles the ledger with the directory stored next to it.
type Backend struct {
	Ledger    ledger.Store
	Directory fleet.Registry
	// SQL is the shared handle for SQL drivers, nil otherwise.
	SQL *sql.DB
	// Dialect names the SQL flavour of SQL.
	Dialect string

	pinger interface{ Ping(context.Context) error }
}

// Close releases the ledger connection.
func (b *Backend) Close() error {
	if b == nil || b.Ledger == nil {
		return nil
	}
	return b.Ledger.Close()
}

// PingContext checks the backend connection. The memory driver is always up.
func (b *Backend) PingContext(ctx context.Context) error {
	switch {
	case b.SQL != nil:
		return b.SQL.PingContext(ctx)
	case b.pinger != nil:
		return b.pinger.Ping(ctx)
	}
	return nil
}

// Open connects to the configured backend and migrates its schema.
func Open(ctx context.Context, cfg config.StoreConfig) (*Backend, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	switch cfg.Driver {
	case config.DriverMemory:
		dir := fleet.NewMemoryDirectory()
		return &Backend{Ledger: ledger.NewMemoryStore(dir), Directory: dir}, nil
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &Backend{Ledger: s, Directory: s.Directory(), SQL: s.DB(), Dialect: config.DriverSQLite}, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &Backend{Ledger: s, Directory: s.Directory(), SQL: s.DB(), Dialect: config.DriverPostgres}, nil
	case config.DriverMySQL:
		s, err := mysql.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		return &Backend{Ledger: s, Directory: s.Directory(), SQL: s.DB(), Dialect: config.DriverMySQL}, nil
	case config.DriverMongo:
		s, err := mongo.Open(ctx, cfg.DSN, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open mongo: %w", err)
		}
		return &Backend{Ledger: s, Directory: s.Directory(), pinger: s}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
