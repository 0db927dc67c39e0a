package ledger

import (
	"context"
	"errors"
	"time"
)

// AllTime covers every representable work date of all backends.
var AllTime = DateRange{
	Start: time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC),
}

// Store persists ledger cells.
//
// Apply must evaluate the daily cap against the value it writes on top of,
// atomically with the write: update the existing cell when existing+delta fits,
// insert when the cell is absent and the delta fits, otherwise change nothing
// and return ErrCapacityExceeded. Stores unable to do this atomically must be
// wrapped with Serialize.
type Store interface {
	Get(ctx context.Context, id int64) (Entry, error)
	GetByVehicleAndDay(ctx context.Context, vehicleID int64, day time.Time) (Entry, error)
	// ScanByVehicle returns the cells of one vehicle within r, newest first.
	ScanByVehicle(ctx context.Context, vehicleID int64, r DateRange) ([]Entry, error)
	// ScanByVehicles returns joined rows within r ordered by vehicle then date.
	ScanByVehicles(ctx context.Context, vehicleIDs []int64, r DateRange) ([]Row, error)
	Apply(ctx context.Context, d Delta) (Applied, error)
	// Delete removes the cell and reports the removed entry. A missing id is
	// not an error: ok is false.
	Delete(ctx context.Context, id int64) (removed Entry, ok bool, err error)
	Close() error
}

// CellWriter is implemented by backends without a single-statement
// conditional upsert. Both methods must be atomic on their own.
type CellWriter interface {
	// UpdateCell adds the delta to an existing cell when the result fits.
	// ok is false when no row matched.
	UpdateCell(ctx context.Context, d Delta) (e Entry, ok bool, err error)
	// InsertCell creates the cell when it is absent and the delta fits.
	// ok is false on a uniqueness conflict or when the delta does not fit.
	InsertCell(ctx context.Context, d Delta) (e Entry, ok bool, err error)
	GetByVehicleAndDay(ctx context.Context, vehicleID int64, day time.Time) (Entry, error)
}

// ApplyConditional realises Apply on top of a CellWriter with the two-branch
// algorithm: conditional update, else conditional insert guarded by the
// (vehicle, day) unique key. An insert losing a race against a concurrent
// insert retries the update once, which then decides against the committed row.
func ApplyConditional(ctx context.Context, w CellWriter, d Delta) (Applied, error) {
	for attempt := 0; attempt < 2; attempt++ {
		e, ok, err := w.UpdateCell(ctx, d)
		if err != nil {
			return Applied{}, err
		}
		if ok {
			return Applied{Entry: e}, nil
		}
		if attempt > 0 {
			break
		}
		if d.UpdateOnly {
			return Applied{}, missingOrFull(ctx, w, d)
		}
		e, ok, err = w.InsertCell(ctx, d)
		if err != nil {
			return Applied{}, err
		}
		if ok {
			return Applied{Entry: e, Created: true}, nil
		}
		if !Fits(d.Active, d.Maintenance) {
			break
		}
	}
	return Applied{}, ErrCapacityExceeded
}

// missingOrFull tells a rejected update-only delta apart from a missing cell.
func missingOrFull(ctx context.Context, w CellWriter, d Delta) error {
	_, err := w.GetByVehicleAndDay(ctx, d.VehicleID, d.Day)
	switch {
	case err == nil:
		return ErrCapacityExceeded
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	default:
		return err
	}
}
