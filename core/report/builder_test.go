package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/worklog/core/fleet"
	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/core/metrics"
)

type captureRecorder struct {
	samples []metrics.UtilizationSample
	err     error
}

func (c *captureRecorder) RecordUtilization(s []metrics.UtilizationSample) error {
	c.samples = append(c.samples, s...)
	return c.err
}

func seeded(t *testing.T) (*ledger.MemoryStore, *fleet.MemoryDirectory) {
	t.Helper()
	dir := fleet.NewMemoryDirectory()
	dir.Put(fleet.Vehicle{ID: 1, Name: "Truck", Plate: "AB-1"})
	dir.Put(fleet.Vehicle{ID: 2, Name: "Bus"})
	dir.PutUser(fleet.User{ID: 7, Name: "zeynep"})
	store := ledger.NewMemoryStore(dir)
	acc := ledger.NewAccumulator(store)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := acc.Accumulate(ctx, 1, monday.AddDate(0, 0, i), d("8"), d("1"), 7)
		require.NoError(t, err)
	}
	// next week, must stay out of the report
	_, err := acc.Accumulate(ctx, 1, monday.AddDate(0, 0, 7), d("10"), d("0"), 7)
	require.NoError(t, err)
	return store, dir
}

func TestBuilder_Weekly(t *testing.T) {
	store, dir := seeded(t)
	rec := &captureRecorder{}
	b := NewBuilder(ledger.NewReader(store), dir, WithUtilizationRecorder(rec))

	rep, err := b.Weekly(context.Background(), monday.AddDate(0, 0, 3), nil)
	require.NoError(t, err)
	assert.Equal(t, monday, rep.WeekStart)
	assert.Equal(t, monday.AddDate(0, 0, 6), rep.WeekEnd)
	assert.Equal(t, "168", rep.BaseHours)
	require.Len(t, rep.Vehicles, 2)

	bus, truck := rep.Vehicles[0], rep.Vehicles[1]
	assert.Equal(t, "Bus", bus.Name)
	assert.Equal(t, "168.00", bus.Idle.StringFixed(2))
	assert.Equal(t, "100.00", bus.IdlePct.StringFixed(2))
	assert.Equal(t, "40.00", truck.Active.StringFixed(2))
	assert.Equal(t, "23.81", truck.ActivePct.StringFixed(2))
	assert.Equal(t, 2, rep.Summary.Vehicles)

	require.Len(t, rec.samples, 2)
	assert.Equal(t, monday, rec.samples[1].WeekStart)
	assert.InDelta(t, 40.0, rec.samples[1].ActiveHours, 1e-9)
}

func TestBuilder_WeeklySelection(t *testing.T) {
	store, dir := seeded(t)
	b := NewBuilder(ledger.NewReader(store), dir, WithBase(d("100")))

	rep, err := b.Weekly(context.Background(), monday, []int64{1})
	require.NoError(t, err)
	require.Len(t, rep.Vehicles, 1)
	assert.Equal(t, "40.00", rep.Vehicles[0].ActivePct.StringFixed(2))
	assert.Equal(t, "100", rep.BaseHours)
}

func TestBuilder_RecorderErrorIgnored(t *testing.T) {
	store, dir := seeded(t)
	rec := &captureRecorder{err: errors.New("down")}
	b := NewBuilder(ledger.NewReader(store), dir, WithUtilizationRecorder(rec))

	_, err := b.Weekly(context.Background(), monday, nil)
	require.NoError(t, err)
}

func TestBuilder_Timeline(t *testing.T) {
	store, dir := seeded(t)
	b := NewBuilder(ledger.NewReader(store), dir)
	ctx := context.Background()

	segs, err := b.Timeline(ctx, nil, monday, monday.AddDate(0, 0, 1), KindActive)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "Truck (AB-1)", segs[0].Label)
	assert.Equal(t, "zeynep", segs[0].User)

	_, err = b.Timeline(ctx, nil, monday.AddDate(0, 0, 1), monday, KindActive)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	segs, err = b.Timeline(ctx, []int64{2}, monday, monday.AddDate(0, 0, 6), "")
	require.NoError(t, err)
	assert.Empty(t, segs)
}
