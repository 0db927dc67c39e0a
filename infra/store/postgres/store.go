// Package postgres persists the ledger in PostgreSQL through lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/infra/store/sqlutil"
)

// Schema creates the ledger and directory tables.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS vehicles (
        id BIGSERIAL PRIMARY KEY,
        name TEXT NOT NULL,
        plate TEXT NOT NULL DEFAULT ''
    )`,
	`CREATE TABLE IF NOT EXISTS users (
        id BIGSERIAL PRIMARY KEY,
        name TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS work_logs (
        id BIGSERIAL PRIMARY KEY,
        vehicle_id BIGINT NOT NULL,
        work_date DATE NOT NULL,
        active_hours NUMERIC(5,2) NOT NULL CHECK (active_hours >= 0),
        maintenance_hours NUMERIC(5,2) NOT NULL CHECK (maintenance_hours >= 0),
        created_by BIGINT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL,
        updated_by BIGINT NULL,
        updated_at TIMESTAMPTZ NULL,
        CONSTRAINT uq_work_logs_vehicle_day UNIQUE (vehicle_id, work_date),
        CONSTRAINT ck_work_logs_daily_cap CHECK (active_hours + maintenance_hours <= 24)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_work_logs_date ON work_logs (work_date)`,
}

// Store implements ledger.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects with the given DSN and migrates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, Classify(err)
	}
	if err := sqlutil.Migrate(ctx, db, Schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// New wraps an already migrated database.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) DB() *sql.DB { return s.db }

// Directory returns the vehicle directory stored next to the ledger.
func (s *Store) Directory() *sqlutil.Directory {
	return sqlutil.NewDirectory(s.db, sqlutil.Dollar, true)
}

// Classify adds PostgreSQL connection exception classes to the generic
// classification.
func Classify(err error) error {
	return sqlutil.Classify(err, connectionFailure)
}

func connectionFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exception. Class 57P: operator intervention.
		code := string(pqErr.Code)
		return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "57P")
	}
	return false
}

func (s *Store) Get(ctx context.Context, id int64) (ledger.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqlutil.EntryColumns+` FROM work_logs WHERE id = $1`, id)
	e, err := sqlutil.ScanEntry(row)
	return e, Classify(err)
}

func (s *Store) GetByVehicleAndDay(ctx context.Context, vehicleID int64, day time.Time) (ledger.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqlutil.EntryColumns+`
        FROM work_logs WHERE vehicle_id = $1 AND work_date = $2::date`,
		vehicleID, sqlutil.DateArg(day))
	e, err := sqlutil.ScanEntry(row)
	return e, Classify(err)
}

func (s *Store) ScanByVehicle(ctx context.Context, vehicleID int64, r ledger.DateRange) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqlutil.EntryColumns+`
        FROM work_logs
        WHERE vehicle_id = $1 AND work_date >= $2::date AND work_date < $3::date
        ORDER BY work_date DESC`,
		vehicleID, sqlutil.DateArg(r.Start), sqlutil.DateArg(r.End))
	if err != nil {
		return nil, Classify(err)
	}
	res, err := sqlutil.ScanEntries(rows)
	return res, Classify(err)
}

func (s *Store) ScanByVehicles(ctx context.Context, vehicleIDs []int64, r ledger.DateRange) ([]ledger.Row, error) {
	if len(vehicleIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqlutil.RowColumns+`
        FROM work_logs w
        LEFT JOIN vehicles v ON v.id = w.vehicle_id
        LEFT JOIN users u ON u.id = w.created_by
        WHERE w.vehicle_id = ANY($1) AND w.work_date >= $2::date AND w.work_date < $3::date
        ORDER BY w.vehicle_id, w.work_date`,
		pq.Array(vehicleIDs), sqlutil.DateArg(r.Start), sqlutil.DateArg(r.End))
	if err != nil {
		return nil, Classify(err)
	}
	res, err := sqlutil.ScanRows(rows)
	return res, Classify(err)
}

func (s *Store) Apply(ctx context.Context, d ledger.Delta) (ledger.Applied, error) {
	return ledger.ApplyConditional(ctx, s, d)
}

// UpdateCell adds the delta in place. Under READ COMMITTED a concurrent
// update on the same row makes this statement wait and re-check its WHERE
// clause against the committed version.
func (s *Store) UpdateCell(ctx context.Context, d ledger.Delta) (ledger.Entry, bool, error) {
	da, dm := ledger.Hours(d.Active), ledger.Hours(d.Maintenance)
	row := s.db.QueryRowContext(ctx, `UPDATE work_logs SET
            active_hours = active_hours + $1::numeric,
            maintenance_hours = maintenance_hours + $2::numeric,
            updated_by = $3,
            updated_at = $4
        WHERE vehicle_id = $5 AND work_date = $6::date
          AND active_hours + $1::numeric >= 0
          AND maintenance_hours + $2::numeric >= 0
          AND active_hours + maintenance_hours + $1::numeric + $2::numeric <= 24
        RETURNING `+sqlutil.EntryColumns,
		da.String(), dm.String(), d.Actor, d.At.UTC(), d.VehicleID, sqlutil.DateArg(d.Day))
	e, err := sqlutil.ScanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Entry{}, false, nil
	}
	if err != nil {
		return ledger.Entry{}, false, Classify(err)
	}
	return e, true, nil
}

// InsertCell creates the cell unless it exists. A concurrent insert of the
// same cell blocks on the unique index and then does nothing.
func (s *Store) InsertCell(ctx context.Context, d ledger.Delta) (ledger.Entry, bool, error) {
	if !ledger.Fits(d.Active, d.Maintenance) {
		return ledger.Entry{}, false, nil
	}
	row := s.db.QueryRowContext(ctx, `INSERT INTO work_logs
            (vehicle_id, work_date, active_hours, maintenance_hours, created_by, created_at)
        VALUES ($1, $2::date, $3::numeric, $4::numeric, $5, $6)
        ON CONFLICT (vehicle_id, work_date) DO NOTHING
        RETURNING `+sqlutil.EntryColumns,
		d.VehicleID, sqlutil.DateArg(d.Day), ledger.Hours(d.Active).String(), ledger.Hours(d.Maintenance).String(), d.Actor, d.At.UTC())
	e, err := sqlutil.ScanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Entry{}, false, nil
	}
	if err != nil {
		return ledger.Entry{}, false, Classify(err)
	}
	return e, true, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (ledger.Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `DELETE FROM work_logs WHERE id = $1 RETURNING `+sqlutil.EntryColumns, id)
	e, err := sqlutil.ScanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Entry{}, false, nil
	}
	if err != nil {
		return ledger.Entry{}, false, Classify(err)
	}
	return e, true, nil
}

func (s *Store) Ping(ctx context.Context) error { return Classify(s.db.PingContext(ctx)) }

func (s *Store) Close() error { return s.db.Close() }
