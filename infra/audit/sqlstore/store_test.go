package sqlstore

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/worklog/core/audit"
	"github.com/kilianp07/worklog/infra/store/sqlite"
)

var seq atomic.Int32

func openTest(t *testing.T) *Store {
	t.Helper()
	db, err := sqlite.OpenDB(fmt.Sprintf("file:audit%d?mode=memory&cache=shared", seq.Add(1)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s, err := Open(context.Background(), db, SQLite)
	require.NoError(t, err)
	return s
}

var (
	base = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	day  = audit.Date(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
)

func record(t *testing.T, s *Store, actor int64, p audit.Payload, subject int64, at time.Time) audit.Fact {
	t.Helper()
	f, err := audit.NewFact(actor, p.Action(), subject, p, at)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), f))
	return f
}

func seed(t *testing.T, s *Store) []audit.Fact {
	return []audit.Fact{
		record(t, s, 1, audit.WorkLogCreated{VehicleID: 10, WorkDate: day, Active: decimal.NewFromInt(5), Maintenance: decimal.NewFromInt(1)}, 100, base),
		record(t, s, 2, audit.WorkLogUpdated{VehicleID: 10, WorkDate: day, DeltaActive: decimal.NewFromInt(2), DeltaMaintenance: decimal.Zero, Active: decimal.NewFromInt(7), Maintenance: decimal.NewFromInt(1)}, 100, base.Add(time.Hour)),
		record(t, s, 1, audit.WorkLogCreated{VehicleID: 11, WorkDate: day, Active: decimal.NewFromInt(3), Maintenance: decimal.Zero}, 101, base.Add(2*time.Hour)),
		record(t, s, 2, audit.WorkLogDeleted{VehicleID: 11, WorkDate: day, Active: decimal.NewFromInt(3), Maintenance: decimal.Zero}, 101, base.Add(3*time.Hour)),
	}
}

func TestFind_RoundTripsFacts(t *testing.T) {
	s := openTest(t)
	facts := seed(t, s)

	got, err := s.Find(context.Background(), audit.NewQuery())
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, facts[3].ID, got[0].ID)
	assert.Equal(t, facts[0].ID, got[3].ID)
	assert.True(t, facts[1].OccurredAt.Equal(got[2].OccurredAt))

	upd, ok := got[2].Payload.(audit.WorkLogUpdated)
	require.True(t, ok)
	assert.Equal(t, "2", upd.DeltaActive.String())
	assert.Equal(t, audit.SubjectWorkLog, got[2].SubjectKind)
}

func TestFind_Filters(t *testing.T) {
	s := openTest(t)
	seed(t, s)
	ctx := context.Background()

	cases := []struct {
		name  string
		query audit.Query
		want  int
	}{
		{"vehicle", audit.NewQuery(audit.ForVehicle(10)), 2},
		{"actor", audit.NewQuery(audit.ByActor(2)), 2},
		{"vehicle and actor", audit.NewQuery(audit.ForVehicle(11), audit.ByActor(2)), 1},
		{"action", audit.NewQuery(audit.WithAction(audit.ActionCreate)), 2},
		{"window", audit.NewQuery(audit.Between(base.Add(time.Hour), base.Add(3*time.Hour))), 2},
		{"open end", audit.NewQuery(audit.Between(base.Add(2*time.Hour), time.Time{})), 2},
		{"text", audit.NewQuery(audit.Containing("DELETE")), 1},
		{"text subject", audit.NewQuery(audit.Containing("101")), 2},
		{"limit", audit.NewQuery(audit.Limit(3)), 3},
		{"nothing", audit.NewQuery(audit.ForVehicle(99)), 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := s.Find(ctx, c.query)
			require.NoError(t, err)
			assert.Len(t, got, c.want)
			for _, f := range got {
				assert.True(t, c.query.Matches(f), "sql and memory filters disagree on %s", f.ID)
			}
		})
	}
}

func TestRecord_DuplicateFactRejected(t *testing.T) {
	s := openTest(t)
	f := seed(t, s)[0]
	assert.Error(t, s.Record(context.Background(), f))
}

func TestNew_UnknownDialect(t *testing.T) {
	_, err := New(nil, "oracle")
	assert.Error(t, err)
}

func TestNew_PostgresPlaceholders(t *testing.T) {
	s, err := New(nil, Postgres)
	require.NoError(t, err)
	assert.Contains(t, s.find, "CAST($1 AS BIGINT) IS NULL OR vehicle_id = $2")
	assert.Contains(t, s.find, "LIMIT $13")
	assert.NotContains(t, s.find, "?")
}
