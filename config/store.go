package config

import "fmt"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongo    = "mongo"
)

// StoreConfig selects the ledger backend.
type StoreConfig struct {
	// Driver is one of memory, sqlite, postgres, mysql or mongo.
	Driver string `json:"driver"`
	// DSN is the file path for sqlite, the connection string otherwise.
	DSN string `json:"dsn"`
	// Database names the MongoDB database.
	Database string `json:"database"`
	// TimeoutSeconds bounds connecting and migrating at startup.
	TimeoutSeconds int `json:"timeout_seconds"`
}

func (c *StoreConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.Driver == DriverSQLite && c.DSN == "" {
		c.DSN = "worklog.db"
	}
	if c.Database == "" {
		c.Database = "worklog"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
}

func (c StoreConfig) Validate() error {
	switch c.Driver {
	case DriverMemory:
		return nil
	case DriverSQLite, DriverPostgres, DriverMySQL, DriverMongo:
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn is required for %s", c.Driver)
	}
	return nil
}
