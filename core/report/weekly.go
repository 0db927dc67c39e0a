// Package report derives utilization summaries and timelines from ledger
// rows. Weekly, Gantt and FleetStats are pure; Builder loads their inputs.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/worklog/core/fleet"
	"github.com/kilianp07/worklog/core/ledger"
)

// BaseWeek is the 7×24 hour denominator of weekly utilization.
var BaseWeek = decimal.NewFromInt(168)

var hundred = decimal.NewFromInt(100)

// Utilization is the weekly summary of one vehicle.
type Utilization struct {
	VehicleID      int64           `json:"vehicle_id"`
	Name           string          `json:"name"`
	Plate          string          `json:"plate"`
	Active         decimal.Decimal `json:"active_hours"`
	Maintenance    decimal.Decimal `json:"maintenance_hours"`
	Idle           decimal.Decimal `json:"idle_hours"`
	ActivePct      decimal.Decimal `json:"active_pct"`
	MaintenancePct decimal.Decimal `json:"maintenance_pct"`
	IdlePct        decimal.Decimal `json:"idle_pct"`
}

// Weekly sums the rows of every roster vehicle against base hours. Roster
// vehicles without rows get zero hours and full idle; rows of vehicles outside
// the roster are ignored. Idle never goes below zero. The result is ordered by
// vehicle name, ordinal ascending. Percentages are unrounded; use Round2 for
// presentation.
func Weekly(base decimal.Decimal, roster []fleet.Vehicle, rows []ledger.Row) []Utilization {
	byVehicle := make(map[int64]*Utilization, len(roster))
	out := make([]Utilization, len(roster))
	for i, v := range roster {
		out[i] = Utilization{VehicleID: v.ID, Name: v.Name, Plate: v.Plate}
		byVehicle[v.ID] = &out[i]
	}
	for _, r := range rows {
		u, ok := byVehicle[r.VehicleID]
		if !ok {
			continue
		}
		u.Active = u.Active.Add(r.ActiveHours)
		u.Maintenance = u.Maintenance.Add(r.MaintenanceHours)
	}
	for i := range out {
		u := &out[i]
		u.Idle = decimal.Max(decimal.Zero, base.Sub(u.Active).Sub(u.Maintenance))
		u.ActivePct = pct(u.Active, base)
		u.MaintenancePct = pct(u.Maintenance, base)
		u.IdlePct = pct(u.Idle, base)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func pct(v, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return v.Mul(hundred).DivRound(base, 8)
}

// Round2 returns u with hours and percentages rounded to two decimals.
func Round2(u Utilization) Utilization {
	u.Active = u.Active.Round(2)
	u.Maintenance = u.Maintenance.Round(2)
	u.Idle = u.Idle.Round(2)
	u.ActivePct = u.ActivePct.Round(2)
	u.MaintenancePct = u.MaintenancePct.Round(2)
	u.IdlePct = u.IdlePct.Round(2)
	return u
}

// WeekOf returns the Monday-start half-open week containing day.
func WeekOf(day time.Time) ledger.DateRange {
	d := ledger.Day(day)
	offset := (int(d.Weekday()) + 6) % 7
	start := d.AddDate(0, 0, -offset)
	return ledger.DateRange{Start: start, End: start.AddDate(0, 0, 7)}
}
