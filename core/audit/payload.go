package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Payload is the action specific body of a Fact.
type Payload interface {
	Action() Action
	// Cell returns the ledger cell the payload refers to.
	Cell() (vehicleID int64, workDate time.Time)
}

// WorkLogCreated records the first accumulation on a cell.
type WorkLogCreated struct {
	VehicleID   int64           `json:"vehicle_id"`
	WorkDate    Date            `json:"work_date"`
	Active      decimal.Decimal `json:"active_hours"`
	Maintenance decimal.Decimal `json:"maintenance_hours"`
}

// WorkLogUpdated records an accumulation or correction on an existing cell.
type WorkLogUpdated struct {
	VehicleID        int64           `json:"vehicle_id"`
	WorkDate         Date            `json:"work_date"`
	DeltaActive      decimal.Decimal `json:"delta_active_hours"`
	DeltaMaintenance decimal.Decimal `json:"delta_maintenance_hours"`
	Active           decimal.Decimal `json:"active_hours"`
	Maintenance      decimal.Decimal `json:"maintenance_hours"`
}

// WorkLogDeleted records the removal of a cell with its last values.
type WorkLogDeleted struct {
	VehicleID   int64           `json:"vehicle_id"`
	WorkDate    Date            `json:"work_date"`
	Active      decimal.Decimal `json:"active_hours"`
	Maintenance decimal.Decimal `json:"maintenance_hours"`
}

func (WorkLogCreated) Action() Action { return ActionCreate }
func (WorkLogUpdated) Action() Action { return ActionUpdate }
func (WorkLogDeleted) Action() Action { return ActionDelete }

func (p WorkLogCreated) Cell() (int64, time.Time) { return p.VehicleID, time.Time(p.WorkDate) }
func (p WorkLogUpdated) Cell() (int64, time.Time) { return p.VehicleID, time.Time(p.WorkDate) }
func (p WorkLogDeleted) Cell() (int64, time.Time) { return p.VehicleID, time.Time(p.WorkDate) }

// DecodePayload decodes raw into the variant owned by action.
func DecodePayload(action Action, raw []byte) (Payload, error) {
	switch action {
	case ActionCreate:
		var p WorkLogCreated
		if err := unmarshalPayload(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case ActionUpdate:
		var p WorkLogUpdated
		if err := unmarshalPayload(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case ActionDelete:
		var p WorkLogDeleted
		if err := unmarshalPayload(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("audit: unknown action %q", action)
	}
}

func unmarshalPayload(raw []byte, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("audit: empty payload")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("audit: decode payload: %w", err)
	}
	return nil
}

// Date is a calendar day serialised as YYYY-MM-DD.
type Date time.Time

const dateLayout = "2006-01-02"

func (d Date) String() string { return time.Time(d).Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	*d = Date(t)
	return nil
}
