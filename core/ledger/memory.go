package ledger

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// Resolver supplies the display data joined into Rows by stores that do not
// hold vehicle and user tables themselves.
type Resolver interface {
	VehicleLabel(ctx context.Context, id int64) (name, plate string, ok bool)
	UserName(ctx context.Context, id int64) string
}

type cellKey struct {
	vehicle int64
	day     time.Time
}

// MemoryStore keeps ledger cells in memory for tests and lightweight usage.
// Apply runs under a single mutex so the cap check and the write are atomic.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	byID     map[int64]*Entry
	byCell   map[cellKey]int64
	resolver Resolver
}

// NewMemoryStore returns an empty MemoryStore. resolver may be nil, in which
// case rows carry no names.
func NewMemoryStore(resolver Resolver) *MemoryStore {
	return &MemoryStore{
		byID:     map[int64]*Entry{},
		byCell:   map[cellKey]int64{},
		resolver: resolver,
	}
}

func (s *MemoryStore) Get(_ context.Context, id int64) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return *e, nil
}

func (s *MemoryStore) GetByVehicleAndDay(_ context.Context, vehicleID int64, day time.Time) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byCell[cellKey{vehicleID, Day(day)}]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return *s.byID[id], nil
}

func (s *MemoryStore) ScanByVehicle(_ context.Context, vehicleID int64, r DateRange) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []Entry
	for _, e := range s.byID {
		if e.VehicleID == vehicleID && r.Contains(e.WorkDate) {
			res = append(res, *e)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].WorkDate.After(res[j].WorkDate) })
	return res, nil
}

func (s *MemoryStore) ScanByVehicles(ctx context.Context, vehicleIDs []int64, r DateRange) ([]Row, error) {
	s.mu.Lock()
	var entries []Entry
	for _, e := range s.byID {
		if slices.Contains(vehicleIDs, e.VehicleID) && r.Contains(e.WorkDate) {
			entries = append(entries, *e)
		}
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].VehicleID != entries[j].VehicleID {
			return entries[i].VehicleID < entries[j].VehicleID
		}
		return entries[i].WorkDate.Before(entries[j].WorkDate)
	})
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		row := Row{
			VehicleID:        e.VehicleID,
			WorkDate:         e.WorkDate,
			ActiveHours:      e.ActiveHours,
			MaintenanceHours: e.MaintenanceHours,
		}
		if s.resolver != nil {
			row.VehicleName, row.Plate, _ = s.resolver.VehicleLabel(ctx, e.VehicleID)
			row.CreatedByName = s.resolver.UserName(ctx, e.CreatedBy)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Apply adds d to the cell, creating it when absent.
func (s *MemoryStore) Apply(ctx context.Context, d Delta) (Applied, error) {
	if err := ctx.Err(); err != nil {
		return Applied{}, Unavailable(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := cellKey{d.VehicleID, Day(d.Day)}
	if id, ok := s.byCell[key]; ok {
		e := s.byID[id]
		active := Hours(e.ActiveHours.Add(d.Active))
		maint := Hours(e.MaintenanceHours.Add(d.Maintenance))
		if !Fits(active, maint) {
			return Applied{}, ErrCapacityExceeded
		}
		e.ActiveHours, e.MaintenanceHours = active, maint
		actor, at := d.Actor, d.At
		e.UpdatedBy, e.UpdatedAt = &actor, &at
		return Applied{Entry: *e}, nil
	}
	if d.UpdateOnly {
		return Applied{}, ErrNotFound
	}
	if !Fits(d.Active, d.Maintenance) {
		return Applied{}, ErrCapacityExceeded
	}
	s.nextID++
	e := &Entry{
		ID:               s.nextID,
		VehicleID:        d.VehicleID,
		WorkDate:         key.day,
		ActiveHours:      Hours(d.Active),
		MaintenanceHours: Hours(d.Maintenance),
		CreatedBy:        d.Actor,
		CreatedAt:        d.At,
	}
	s.byID[e.ID] = e
	s.byCell[key] = e.ID
	return Applied{Entry: *e, Created: true}, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return Entry{}, false, nil
	}
	delete(s.byID, id)
	delete(s.byCell, cellKey{e.VehicleID, e.WorkDate})
	return *e, true, nil
}

func (s *MemoryStore) Close() error { return nil }
