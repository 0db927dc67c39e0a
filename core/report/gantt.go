package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/worklog/core/ledger"
)

// Kind selects which hours a timeline bar represents.
type Kind string

const (
	KindActive      Kind = "active"
	KindMaintenance Kind = "maintenance"
)

// ParseKind maps "" to KindActive and rejects unknown kinds.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindActive:
		return KindActive, nil
	case KindMaintenance:
		return KindMaintenance, nil
	}
	return "", fmt.Errorf("%w: unknown timeline kind %q", ledger.ErrInvalidInput, s)
}

// Segment is one timeline bar.
type Segment struct {
	VehicleID int64     `json:"vehicle_id"`
	Label     string    `json:"label"`
	User      string    `json:"user"`
	Kind      Kind      `json:"kind"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// Gantt turns rows into bars starting at midnight of the work day and lasting
// the selected hours. Rows with no hours of that kind produce no bar.
func Gantt(rows []ledger.Row, kind Kind) []Segment {
	var out []Segment
	for _, r := range rows {
		hours := r.ActiveHours
		if kind == KindMaintenance {
			hours = r.MaintenanceHours
		}
		if !hours.IsPositive() {
			continue
		}
		start := ledger.Day(r.WorkDate)
		out = append(out, Segment{
			VehicleID: r.VehicleID,
			Label:     label(r),
			User:      r.CreatedByName,
			Kind:      kind,
			Start:     start,
			End:       start.Add(duration(hours)),
		})
	}
	return out
}

func label(r ledger.Row) string {
	name := r.VehicleName
	if name == "" {
		name = fmt.Sprintf("#%d", r.VehicleID)
	}
	if r.Plate == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, r.Plate)
}

func duration(hours decimal.Decimal) time.Duration {
	return time.Duration(hours.Mul(decimal.NewFromInt(int64(time.Hour))).IntPart())
}
