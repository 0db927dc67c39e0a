// Package mysql persists the ledger in MySQL or MariaDB. MySQL has no
// RETURNING clause, so a matched update is re-read inside the same
// transaction while the row lock is held.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/infra/store/sqlutil"
)

// Schema creates the ledger and directory tables.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS vehicles (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        name VARCHAR(128) NOT NULL,
        plate VARCHAR(32) NOT NULL DEFAULT ''
    ) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS users (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        name VARCHAR(128) NOT NULL
    ) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS work_logs (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        vehicle_id BIGINT NOT NULL,
        work_date DATE NOT NULL,
        active_hours DECIMAL(5,2) NOT NULL,
        maintenance_hours DECIMAL(5,2) NOT NULL,
        created_by BIGINT NOT NULL,
        created_at DATETIME(3) NOT NULL,
        updated_by BIGINT NULL,
        updated_at DATETIME(3) NULL,
        UNIQUE KEY uq_work_logs_vehicle_day (vehicle_id, work_date),
        KEY idx_work_logs_date (work_date),
        CONSTRAINT ck_work_logs_hours CHECK (active_hours >= 0 AND maintenance_hours >= 0 AND active_hours + maintenance_hours <= 24)
    ) ENGINE=InnoDB`,
}

const errDuplicateEntry = 1062

// Store implements ledger.Store on MySQL.
type Store struct {
	db *sql.DB
}

// Open connects with the given DSN and migrates the schema. parseTime and
// clientFoundRows are forced on: dates scan as time values and an update that
// matches a row always reports it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
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

func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) DB() *sql.DB { return s.db }

// Directory returns the vehicle directory stored next to the ledger.
func (s *Store) Directory() *sqlutil.Directory {
	return sqlutil.NewDirectory(s.db, nil, false)
}

// Classify adds the driver's broken connection errors to the generic
// classification.
func Classify(err error) error {
	return sqlutil.Classify(err, func(err error) bool {
		return errors.Is(err, mysql.ErrInvalidConn)
	})
}

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDuplicateEntry
}

func (s *Store) Get(ctx context.Context, id int64) (ledger.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqlutil.EntryColumns+` FROM work_logs WHERE id = ?`, id)
	e, err := sqlutil.ScanEntry(row)
	return e, Classify(err)
}

func (s *Store) GetByVehicleAndDay(ctx context.Context, vehicleID int64, day time.Time) (ledger.Entry, error) {
	return getByCell(ctx, s.db, vehicleID, day)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getByCell(ctx context.Context, q queryer, vehicleID int64, day time.Time) (ledger.Entry, error) {
	row := q.QueryRowContext(ctx, `SELECT `+sqlutil.EntryColumns+`
        FROM work_logs WHERE vehicle_id = ? AND work_date = ?`, vehicleID, sqlutil.DateArg(day))
	e, err := sqlutil.ScanEntry(row)
	return e, Classify(err)
}

func (s *Store) ScanByVehicle(ctx context.Context, vehicleID int64, r ledger.DateRange) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqlutil.EntryColumns+`
        FROM work_logs
        WHERE vehicle_id = ? AND work_date >= ? AND work_date < ?
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
	marks, args := sqlutil.InClause(vehicleIDs)
	args = append(args, sqlutil.DateArg(r.Start), sqlutil.DateArg(r.End))
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqlutil.RowColumns+`
        FROM work_logs w
        LEFT JOIN vehicles v ON v.id = w.vehicle_id
        LEFT JOIN users u ON u.id = w.created_by
        WHERE w.vehicle_id IN (`+marks+`) AND w.work_date >= ? AND w.work_date < ?
        ORDER BY w.vehicle_id, w.work_date`, args...)
	if err != nil {
		return nil, Classify(err)
	}
	res, err := sqlutil.ScanRows(rows)
	return res, Classify(err)
}

func (s *Store) Apply(ctx context.Context, d ledger.Delta) (ledger.Applied, error) {
	return ledger.ApplyConditional(ctx, s, d)
}

// UpdateCell runs the conditional update and reads the row back before the
// transaction releases its lock. InnoDB evaluates the WHERE clause of an
// UPDATE against the latest committed row.
func (s *Store) UpdateCell(ctx context.Context, d ledger.Delta) (e ledger.Entry, ok bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Entry{}, false, Classify(err)
	}
	defer func() {
		if err != nil || !ok {
			_ = tx.Rollback()
		}
	}()

	da, dm := ledger.Hours(d.Active), ledger.Hours(d.Maintenance)
	res, err := tx.ExecContext(ctx, `UPDATE work_logs SET
            active_hours = active_hours + ?,
            maintenance_hours = maintenance_hours + ?,
            updated_by = ?,
            updated_at = ?
        WHERE vehicle_id = ? AND work_date = ?
          AND active_hours + ? >= 0
          AND maintenance_hours + ? >= 0
          AND active_hours + maintenance_hours + ? <= 24`,
		da, dm, d.Actor, d.At.UTC(), d.VehicleID, sqlutil.DateArg(d.Day),
		da, dm, da.Add(dm))
	if err != nil {
		return ledger.Entry{}, false, Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ledger.Entry{}, false, Classify(err)
	}
	if n == 0 {
		return ledger.Entry{}, false, nil
	}
	e, err = getByCell(ctx, tx, d.VehicleID, d.Day)
	if err != nil {
		return ledger.Entry{}, false, err
	}
	if err = tx.Commit(); err != nil {
		return ledger.Entry{}, false, Classify(err)
	}
	return e, true, nil
}

// InsertCell creates the cell. A duplicate key means another writer created it
// first.
func (s *Store) InsertCell(ctx context.Context, d ledger.Delta) (ledger.Entry, bool, error) {
	if !ledger.Fits(d.Active, d.Maintenance) {
		return ledger.Entry{}, false, nil
	}
	e := ledger.Entry{
		VehicleID:        d.VehicleID,
		WorkDate:         ledger.Day(d.Day),
		ActiveHours:      ledger.Hours(d.Active),
		MaintenanceHours: ledger.Hours(d.Maintenance),
		CreatedBy:        d.Actor,
		CreatedAt:        d.At.UTC().Truncate(time.Millisecond),
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO work_logs
            (vehicle_id, work_date, active_hours, maintenance_hours, created_by, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		e.VehicleID, sqlutil.DateArg(e.WorkDate), e.ActiveHours, e.MaintenanceHours, e.CreatedBy, e.CreatedAt)
	if isDuplicate(err) {
		return ledger.Entry{}, false, nil
	}
	if err != nil {
		return ledger.Entry{}, false, Classify(err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return ledger.Entry{}, false, err
	}
	return e, true, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (e ledger.Entry, ok bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Entry{}, false, Classify(err)
	}
	defer func() {
		if err != nil || !ok {
			_ = tx.Rollback()
		}
	}()
	row := tx.QueryRowContext(ctx, `SELECT `+sqlutil.EntryColumns+` FROM work_logs WHERE id = ? FOR UPDATE`, id)
	e, err = sqlutil.ScanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Entry{}, false, nil
	}
	if err != nil {
		return ledger.Entry{}, false, Classify(err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM work_logs WHERE id = ?`, id); err != nil {
		return ledger.Entry{}, false, Classify(err)
	}
	if err = tx.Commit(); err != nil {
		return ledger.Entry{}, false, Classify(err)
	}
	return e, true, nil
}

func (s *Store) Ping(ctx context.Context) error { return Classify(s.db.PingContext(ctx)) }

func (s *Store) Close() error { return s.db.Close() }
