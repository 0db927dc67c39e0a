package ledger

import (
	"context"
	"time"
)

// Reader is the read path of the ledger.
type Reader struct {
	store Store
}

func NewReader(store Store) *Reader { return &Reader{store: store} }

// Get returns one entry by id.
func (r *Reader) Get(ctx context.Context, id int64) (Entry, error) {
	return r.store.Get(ctx, id)
}

// VehicleRange returns the entries of a vehicle between start and end, both
// inclusive, newest first.
func (r *Reader) VehicleRange(ctx context.Context, vehicleID int64, start, end time.Time) ([]Entry, error) {
	if Day(end).Before(Day(start)) {
		return nil, invalid("end date %s before start date %s", end.Format(DateLayout), start.Format(DateLayout))
	}
	return r.store.ScanByVehicle(ctx, vehicleID, Inclusive(start, end))
}

// History returns every entry of a vehicle, newest first.
func (r *Reader) History(ctx context.Context, vehicleID int64) ([]Entry, error) {
	return r.store.ScanByVehicle(ctx, vehicleID, AllTime)
}

// FleetRange returns joined rows for the given vehicles within the half-open
// window, ascending by vehicle then date. Vehicles without rows are absent.
func (r *Reader) FleetRange(ctx context.Context, vehicleIDs []int64, window DateRange) ([]Row, error) {
	if len(vehicleIDs) == 0 || window.Empty() {
		return nil, nil
	}
	return r.store.ScanByVehicles(ctx, vehicleIDs, window)
}
