// Package export writes reports in interchange formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/core/report"
)

// WriteJSON writes the weekly report to w in JSON format.
func WriteJSON(w io.Writer, rep report.WeeklyReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// WriteCSV writes one line per vehicle with hours and percentages at two
// decimals.
func WriteCSV(w io.Writer, rep report.WeeklyReport) error {
	cw := csv.NewWriter(w)
	header := []string{"week_start", "vehicle_id", "name", "plate", "active_hours", "maintenance_hours", "idle_hours", "active_pct", "maintenance_pct", "idle_pct"}
	if err := cw.Write(header); err != nil {
		return err
	}
	week := rep.WeekStart.Format(ledger.DateLayout)
	for _, u := range rep.Vehicles {
		rec := []string{
			week,
			strconv.FormatInt(u.VehicleID, 10),
			u.Name,
			u.Plate,
			u.Active.StringFixed(2),
			u.Maintenance.StringFixed(2),
			u.Idle.StringFixed(2),
			u.ActivePct.StringFixed(2),
			u.MaintenancePct.StringFixed(2),
			u.IdlePct.StringFixed(2),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEntriesCSV writes ledger entries, one per line.
func WriteEntriesCSV(w io.Writer, entries []ledger.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "vehicle_id", "work_date", "active_hours", "maintenance_hours", "created_by"}); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			strconv.FormatInt(e.ID, 10),
			strconv.FormatInt(e.VehicleID, 10),
			e.WorkDate.Format(ledger.DateLayout),
			e.ActiveHours.StringFixed(ledger.HoursScale),
			e.MaintenanceHours.StringFixed(ledger.HoursScale),
			strconv.FormatInt(e.CreatedBy, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
