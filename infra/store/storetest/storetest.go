// Package storetest is a conformance suite every ledger.Store backend runs in
// its tests.
package storetest

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/worklog/core/fleet"
	"github.com/kilianp07/worklog/core/ledger"
)

// Factory returns a fresh, empty store with its directory.
type Factory func(t *testing.T) (ledger.Store, fleet.Registry)

// RequireDocker skips container tests when docker is missing or -short is set.
func RequireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
}

var base = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func h(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Run executes the suite. Each subtest gets its own store from f.
func Run(t *testing.T, f Factory) {
	t.Run("scenarios", func(t *testing.T) { scenarios(t, f) })
	t.Run("signed deltas", func(t *testing.T) { signed(t, f) })
	t.Run("concurrent pair", func(t *testing.T) { concurrentPair(t, f) })
	t.Run("scans", func(t *testing.T) { scans(t, f) })
	t.Run("delete", func(t *testing.T) { deletes(t, f) })
}

func delta(vehicle int64, day time.Time, active, maint string, actor int64) ledger.Delta {
	return ledger.Delta{VehicleID: vehicle, Day: day, Active: h(active), Maintenance: h(maint), Actor: actor, At: time.Now().UTC()}
}

func scenarios(t *testing.T, f Factory) {
	s, _ := f(t)
	ctx := context.Background()

	res, err := s.Apply(ctx, delta(1, base, "5", "1", 7))
	require.NoError(t, err)
	require.True(t, res.Created)
	assert.Equal(t, "5.00", res.Entry.ActiveHours.StringFixed(2))
	assert.Equal(t, "1.00", res.Entry.MaintenanceHours.StringFixed(2))
	assert.Equal(t, int64(7), res.Entry.CreatedBy)
	assert.Equal(t, base, res.Entry.WorkDate)

	_, err = s.Apply(ctx, delta(1, base, "19", "0", 8))
	require.ErrorIs(t, err, ledger.ErrCapacityExceeded)
	cur, err := s.GetByVehicleAndDay(ctx, 1, base)
	require.NoError(t, err)
	assert.Equal(t, "6.00", cur.Total().StringFixed(2))
	assert.Nil(t, cur.UpdatedBy)

	res, err = s.Apply(ctx, delta(1, base, "18", "0", 9))
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "24.00", res.Entry.Total().StringFixed(2))
	require.NotNil(t, res.Entry.UpdatedBy)
	assert.Equal(t, int64(9), *res.Entry.UpdatedBy)
	assert.Equal(t, int64(7), res.Entry.CreatedBy)

	_, err = s.Apply(ctx, delta(2, base, "24.01", "0", 1))
	assert.ErrorIs(t, err, ledger.ErrCapacityExceeded)
	_, err = s.GetByVehicleAndDay(ctx, 2, base)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func signed(t *testing.T, f Factory) {
	s, _ := f(t)
	ctx := context.Background()
	_, err := s.Apply(ctx, delta(1, base, "10", "2", 1))
	require.NoError(t, err)
	res, err := s.Apply(ctx, delta(1, base, "-6", "1", 2))
	require.NoError(t, err)
	assert.Equal(t, "4.00", res.Entry.ActiveHours.StringFixed(2))
	assert.Equal(t, "3.00", res.Entry.MaintenanceHours.StringFixed(2))
	_, err = s.Apply(ctx, delta(1, base, "-5", "0", 2))
	assert.ErrorIs(t, err, ledger.ErrCapacityExceeded)

	d := delta(3, base, "2", "0", 2)
	d.UpdateOnly = true
	_, err = s.Apply(ctx, d)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func concurrentPair(t *testing.T, f Factory) {
	s, _ := f(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		day := base.AddDate(0, 0, i)
		var wg sync.WaitGroup
		var ok, capacity atomic.Int32
		for g := 0; g < 2; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Apply(ctx, delta(1, day, "13", "0", 1))
				switch {
				case err == nil:
					ok.Add(1)
				case errors.Is(err, ledger.ErrCapacityExceeded):
					capacity.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), ok.Load())
		require.Equal(t, int32(1), capacity.Load())
		e, err := s.GetByVehicleAndDay(ctx, 1, day)
		require.NoError(t, err)
		require.Equal(t, "13.00", e.Total().StringFixed(2))
	}
}

func scans(t *testing.T, f Factory) {
	s, dir := f(t)
	ctx := context.Background()
	van, err := dir.AddVehicle(ctx, "Van", "06 AA 1")
	require.NoError(t, err)
	bus, err := dir.AddVehicle(ctx, "Bus", "06 BB 2")
	require.NoError(t, err)
	u, err := dir.AddUser(ctx, "zeynep")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := s.Apply(ctx, delta(van.ID, base.AddDate(0, 0, i), "2", "0", u.ID))
		require.NoError(t, err)
	}
	_, err = s.Apply(ctx, delta(bus.ID, base, "1", "1", u.ID))
	require.NoError(t, err)
	_, err = s.Apply(ctx, delta(bus.ID, base.AddDate(0, 0, 7), "1", "1", u.ID))
	require.NoError(t, err)

	entries, err := s.ScanByVehicle(ctx, van.ID, ledger.Inclusive(base, base.AddDate(0, 0, 1)))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, base.AddDate(0, 0, 1), entries[0].WorkDate)
	assert.Equal(t, base, entries[1].WorkDate)

	rows, err := s.ScanByVehicles(ctx, []int64{bus.ID, van.ID}, ledger.DateRange{Start: base, End: base.AddDate(0, 0, 7)})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	first, last := rows[0], rows[3]
	if van.ID > bus.ID {
		first, last = rows[3], rows[0]
	}
	assert.Equal(t, van.ID, first.VehicleID)
	assert.Equal(t, "Van", first.VehicleName)
	assert.Equal(t, "06 AA 1", first.Plate)
	assert.Equal(t, "zeynep", first.CreatedByName)
	assert.Equal(t, bus.ID, last.VehicleID)
	for i := 1; i < len(rows); i++ {
		if rows[i].VehicleID == rows[i-1].VehicleID {
			assert.True(t, rows[i].WorkDate.After(rows[i-1].WorkDate))
		}
	}

	ok, err := dir.Exists(ctx, bus.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = dir.Exists(ctx, bus.ID+van.ID+100)
	require.NoError(t, err)
	assert.False(t, ok)
	list, err := dir.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bus", list[0].Name)
}

func deletes(t *testing.T, f Factory) {
	s, _ := f(t)
	ctx := context.Background()
	res, err := s.Apply(ctx, delta(1, base, "3", "1", 1))
	require.NoError(t, err)

	removed, ok, err := s.Delete(ctx, res.Entry.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3.00", removed.ActiveHours.StringFixed(2))
	_, ok, err = s.Delete(ctx, res.Entry.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = s.Get(ctx, res.Entry.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	res, err = s.Apply(ctx, delta(1, base, "24", "0", 1))
	require.NoError(t, err)
	assert.True(t, res.Created)
}
