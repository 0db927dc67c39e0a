// Package sqlite persists the ledger in an embedded SQLite database. Hours
// are stored as integer hundredths so the cap check is exact.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/infra/store/sqlutil"
)

// Schema creates the ledger and directory tables.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS vehicles (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL,
        plate TEXT NOT NULL DEFAULT ''
    )`,
	`CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS work_logs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        vehicle_id INTEGER NOT NULL,
        work_date TEXT NOT NULL,
        active_hours INTEGER NOT NULL CHECK (active_hours >= 0),
        maintenance_hours INTEGER NOT NULL CHECK (maintenance_hours >= 0),
        created_by INTEGER NOT NULL,
        created_at INTEGER NOT NULL,
        updated_by INTEGER,
        updated_at INTEGER,
        UNIQUE (vehicle_id, work_date),
        CHECK (active_hours + maintenance_hours <= 2400)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_work_logs_date ON work_logs (work_date)`,
}

const capCenti = 2400

// Store implements ledger.Store on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and migrates the schema. Use
// "file:name?mode=memory&cache=shared" for an in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := sqlutil.Migrate(ctx, db, Schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenDB opens the database with a single connection. SQLite serialises
// writers anyway; one connection keeps busy errors out of the write path.
func OpenDB(path string) (*sql.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "_pragma=busy_timeout") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// New wraps an already migrated database.
func New(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the handle for the directory and audit stores sharing the file.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Get(ctx context.Context, id int64) (ledger.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqlutil.EntryColumns+` FROM work_logs WHERE id = ?`, id)
	e, err := sqlutil.ScanEntry(row)
	return e, sqlutil.Classify(err)
}

func (s *Store) GetByVehicleAndDay(ctx context.Context, vehicleID int64, day time.Time) (ledger.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqlutil.EntryColumns+` FROM work_logs WHERE vehicle_id = ? AND work_date = ?`,
		vehicleID, sqlutil.DateArg(day))
	e, err := sqlutil.ScanEntry(row)
	return e, sqlutil.Classify(err)
}

func (s *Store) ScanByVehicle(ctx context.Context, vehicleID int64, r ledger.DateRange) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqlutil.EntryColumns+`
        FROM work_logs
        WHERE vehicle_id = ? AND work_date >= ? AND work_date < ?
        ORDER BY work_date DESC`,
		vehicleID, sqlutil.DateArg(r.Start), sqlutil.DateArg(r.End))
	if err != nil {
		return nil, sqlutil.Classify(err)
	}
	res, err := sqlutil.ScanEntries(rows)
	return res, sqlutil.Classify(err)
}

func (s *Store) ScanByVehicles(ctx context.Context, vehicleIDs []int64, r ledger.DateRange) ([]ledger.Row, error) {
	if len(vehicleIDs) == 0 {
		return nil, nil
	}
	marks, args := sqlutil.InClause(vehicleIDs)
	args = append(args, sqlutil.DateArg(r.Start), sqlutil.DateArg(r.End))
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqlutil.RowColumns+`
        FROM work_logs w
        LEFT JOIN vehicles v ON v.id = w.vehicle_id
        LEFT JOIN users u ON u.id = w.created_by
        WHERE w.vehicle_id IN (`+marks+`) AND w.work_date >= ? AND w.work_date < ?
        ORDER BY w.vehicle_id, w.work_date`, args...)
	if err != nil {
		return nil, sqlutil.Classify(err)
	}
	res, err := sqlutil.ScanRows(rows)
	return res, sqlutil.Classify(err)
}

func (s *Store) Apply(ctx context.Context, d ledger.Delta) (ledger.Applied, error) {
	return ledger.ApplyConditional(ctx, s, d)
}

// UpdateCell adds the delta in place when the resulting hours stay within
// [0, cap]. The statement re-evaluates its condition against the row it writes.
func (s *Store) UpdateCell(ctx context.Context, d ledger.Delta) (ledger.Entry, bool, error) {
	da, dm := ledger.Centi(d.Active), ledger.Centi(d.Maintenance)
	row := s.db.QueryRowContext(ctx, `UPDATE work_logs SET
            active_hours = active_hours + ?,
            maintenance_hours = maintenance_hours + ?,
            updated_by = ?,
            updated_at = ?
        WHERE vehicle_id = ? AND work_date = ?
          AND active_hours + ? >= 0
          AND maintenance_hours + ? >= 0
          AND active_hours + maintenance_hours + ? <= ?
        RETURNING `+sqlutil.EntryColumns,
		da, dm, d.Actor, d.At.UnixMilli(),
		d.VehicleID, sqlutil.DateArg(d.Day),
		da, dm, da+dm, capCenti)
	e, err := sqlutil.ScanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Entry{}, false, nil
	}
	if err != nil {
		return ledger.Entry{}, false, sqlutil.Classify(err)
	}
	return e, true, nil
}

// InsertCell creates the cell unless it already exists.
func (s *Store) InsertCell(ctx context.Context, d ledger.Delta) (ledger.Entry, bool, error) {
	if !ledger.Fits(d.Active, d.Maintenance) {
		return ledger.Entry{}, false, nil
	}
	row := s.db.QueryRowContext(ctx, `INSERT INTO work_logs
            (vehicle_id, work_date, active_hours, maintenance_hours, created_by, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (vehicle_id, work_date) DO NOTHING
        RETURNING `+sqlutil.EntryColumns,
		d.VehicleID, sqlutil.DateArg(d.Day), ledger.Centi(d.Active), ledger.Centi(d.Maintenance), d.Actor, d.At.UnixMilli())
	e, err := sqlutil.ScanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Entry{}, false, nil
	}
	if err != nil {
		return ledger.Entry{}, false, sqlutil.Classify(err)
	}
	return e, true, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (ledger.Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `DELETE FROM work_logs WHERE id = ? RETURNING `+sqlutil.EntryColumns, id)
	e, err := sqlutil.ScanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Entry{}, false, nil
	}
	if err != nil {
		return ledger.Entry{}, false, sqlutil.Classify(err)
	}
	return e, true, nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return sqlutil.Classify(err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite close: %w", err)
	}
	return nil
}
