package mongo

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/worklog/core/fleet"
	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/infra/store/storetest"
)

func TestConformance(t *testing.T) {
	addr := storetest.Start(t, storetest.Container{
		Image: "mongo:7",
		Port:  "27017/tcp",
		Wait:  wait.ForListeningPort("27017/tcp").WithStartupTimeout(90 * time.Second),
	})
	uri := "mongodb://" + addr
	var n atomic.Int32

	storetest.Run(t, func(t *testing.T) (ledger.Store, fleet.Registry) {
		s, err := Open(context.Background(), uri, fmt.Sprintf("worklog_%d", n.Add(1)))
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.db.Drop(context.Background())
			_ = s.Close()
		})
		return s, s.Directory()
	})
}

func TestCellDocEntry(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	by := int64(4)
	doc := cellDoc{
		ID: 3, VehicleID: 9, WorkDate: "2025-03-10",
		Active: 725, Maintenance: 50,
		CreatedBy: 2, CreatedAt: now,
		UpdatedBy: &by, UpdatedAt: &now,
	}
	e := doc.entry()
	assert.Equal(t, int64(3), e.ID)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), e.WorkDate)
	assert.Equal(t, "7.25", e.ActiveHours.StringFixed(2))
	assert.Equal(t, "0.50", e.MaintenanceHours.StringFixed(2))
	require.NotNil(t, e.UpdatedBy)
	assert.Equal(t, int64(4), *e.UpdatedBy)
}
