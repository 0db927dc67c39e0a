package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/worklog/core/fleet"
	"github.com/kilianp07/worklog/core/ledger"
)

func TestReader(t *testing.T) {
	ctx := context.Background()
	dir := fleet.NewMemoryDirectory()
	dir.Put(fleet.Vehicle{ID: 1, Name: "Van", Plate: "06 AA 1"})
	dir.Put(fleet.Vehicle{ID: 2, Name: "Bus", Plate: "06 BB 2"})
	dir.PutUser(fleet.User{ID: 7, Name: "mehmet"})
	store := ledger.NewMemoryStore(dir)
	acc := ledger.NewAccumulator(store)

	mon := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_, err := acc.Accumulate(ctx, 1, mon.AddDate(0, 0, i), h("1"), h("0"), 7)
		require.NoError(t, err)
	}
	_, err := acc.Accumulate(ctx, 2, mon.AddDate(0, 0, 1), h("2"), h("1"), 7)
	require.NoError(t, err)

	r := ledger.NewReader(store)
	entries, err := r.VehicleRange(ctx, 1, mon.AddDate(0, 0, 1), mon.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, mon.AddDate(0, 0, 2), entries[0].WorkDate, "newest first, end inclusive")
	assert.Equal(t, mon.AddDate(0, 0, 1), entries[1].WorkDate)

	_, err = r.VehicleRange(ctx, 1, mon.AddDate(0, 0, 2), mon)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	all, err := r.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	rows, err := r.FleetRange(ctx, []int64{2, 1, 3}, ledger.DateRange{Start: mon, End: mon.AddDate(0, 0, 3)})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, int64(1), rows[0].VehicleID)
	assert.Equal(t, mon, rows[0].WorkDate)
	assert.Equal(t, mon.AddDate(0, 0, 2), rows[2].WorkDate, "half-open window excludes the end day")
	assert.Equal(t, int64(2), rows[3].VehicleID)
	assert.Equal(t, "Bus", rows[3].VehicleName)
	assert.Equal(t, "06 BB 2", rows[3].Plate)
	assert.Equal(t, "mehmet", rows[3].CreatedByName)

	none, err := r.FleetRange(ctx, nil, ledger.DateRange{Start: mon, End: mon.AddDate(0, 0, 7)})
	require.NoError(t, err)
	assert.Empty(t, none)
}
