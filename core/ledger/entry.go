package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one ledger cell: the accumulated hours of a vehicle on a day.
type Entry struct {
	ID               int64           `json:"id"`
	VehicleID        int64           `json:"vehicle_id"`
	WorkDate         time.Time       `json:"work_date"`
	ActiveHours      decimal.Decimal `json:"active_hours"`
	MaintenanceHours decimal.Decimal `json:"maintenance_hours"`
	CreatedBy        int64           `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedBy        *int64          `json:"updated_by,omitempty"`
	UpdatedAt        *time.Time      `json:"updated_at,omitempty"`
}

// Total returns active+maintenance hours.
func (e Entry) Total() decimal.Decimal {
	return e.ActiveHours.Add(e.MaintenanceHours)
}

// Row is a ledger cell joined with the display data of its vehicle and the
// name of the user who created it. Rows feed the reporting side.
type Row struct {
	VehicleID        int64           `json:"vehicle_id"`
	VehicleName      string          `json:"vehicle_name"`
	Plate            string          `json:"plate"`
	WorkDate         time.Time       `json:"work_date"`
	ActiveHours      decimal.Decimal `json:"active_hours"`
	MaintenanceHours decimal.Decimal `json:"maintenance_hours"`
	CreatedByName    string          `json:"created_by_name"`
}

// Delta is a signed change applied to a (vehicle, day) cell by Actor at At.
type Delta struct {
	VehicleID   int64
	Day         time.Time
	Active      decimal.Decimal
	Maintenance decimal.Decimal
	Actor       int64
	At          time.Time
	// UpdateOnly forbids creating the cell. A correction must not resurrect
	// a cell deleted since it was read.
	UpdateOnly bool
}

// Applied is the outcome of a successful Store.Apply.
type Applied struct {
	Entry   Entry
	Created bool
}
