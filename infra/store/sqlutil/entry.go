package sqlutil

import (
	"database/sql"

	"github.com/kilianp07/worklog/core/ledger"
)

// EntryColumns is the column list every store selects for an Entry.
const EntryColumns = "id, vehicle_id, work_date, active_hours, maintenance_hours, created_by, created_at, updated_by, updated_at"

// RowColumns is the column list of a joined reporting row, with work_logs
// aliased w, vehicles v and users u.
const RowColumns = "w.vehicle_id, COALESCE(v.name, ''), COALESCE(v.plate, ''), w.work_date, w.active_hours, w.maintenance_hours, COALESCE(u.name, '')"

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanEntry reads EntryColumns.
func ScanEntry(s Scanner) (ledger.Entry, error) {
	var (
		e         ledger.Entry
		day       Date
		active    Hours
		maint     Hours
		createdAt NullTime
		updatedBy sql.NullInt64
		updatedAt NullTime
	)
	if err := s.Scan(&e.ID, &e.VehicleID, &day, &active, &maint, &e.CreatedBy, &createdAt, &updatedBy, &updatedAt); err != nil {
		return ledger.Entry{}, err
	}
	e.WorkDate = day.Time
	e.ActiveHours = active.Value
	e.MaintenanceHours = maint.Value
	e.CreatedAt = createdAt.Time
	if updatedBy.Valid {
		v := updatedBy.Int64
		e.UpdatedBy = &v
	}
	e.UpdatedAt = updatedAt.Ptr()
	return e, nil
}

// ScanEntries drains rows of EntryColumns.
func ScanEntries(rows *sql.Rows) ([]ledger.Entry, error) {
	defer func() { _ = rows.Close() }()
	var res []ledger.Entry
	for rows.Next() {
		e, err := ScanEntry(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// ScanRows drains rows of RowColumns.
func ScanRows(rows *sql.Rows) ([]ledger.Row, error) {
	defer func() { _ = rows.Close() }()
	var res []ledger.Row
	for rows.Next() {
		var (
			r      ledger.Row
			day    Date
			active Hours
			maint  Hours
		)
		if err := rows.Scan(&r.VehicleID, &r.VehicleName, &r.Plate, &day, &active, &maint, &r.CreatedByName); err != nil {
			return nil, err
		}
		r.WorkDate = day.Time
		r.ActiveHours = active.Value
		r.MaintenanceHours = maint.Value
		res = append(res, r)
	}
	return res, rows.Err()
}
