package fleet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDirectory()
	b, err := d.AddVehicle(ctx, "Truck B", "34 AB 12")
	require.NoError(t, err)
	a, err := d.AddVehicle(ctx, "Truck A", "")
	require.NoError(t, err)
	_, err = d.AddVehicle(ctx, "  ", "x")
	assert.Error(t, err)

	list, err := d.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)

	ok, err := d.Exists(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = d.Exists(ctx, 99)
	assert.False(t, ok)

	name, plate, ok := d.VehicleLabel(ctx, b.ID)
	assert.True(t, ok)
	assert.Equal(t, "Truck B", name)
	assert.Equal(t, "34 AB 12", plate)

	u, err := d.AddUser(ctx, "ayse")
	require.NoError(t, err)
	assert.Equal(t, "ayse", d.UserName(ctx, u.ID))
	assert.Equal(t, "", d.UserName(ctx, 42))
}

func TestVehicleLabel(t *testing.T) {
	assert.Equal(t, "Van (06 XY 1)", Vehicle{Name: "Van", Plate: "06 XY 1"}.Label())
	assert.Equal(t, "Van", Vehicle{Name: "Van"}.Label())
}

func TestSelect(t *testing.T) {
	vs := []Vehicle{{ID: 1}, {ID: 2}, {ID: 3}}
	assert.Len(t, Select(vs, nil), 3)
	got := Select(vs, []int64{3, 1})
	assert.Equal(t, []int64{1, 3}, IDs(got))
	assert.Empty(t, Select(vs, []int64{}))
}
