package ledger_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/worklog/core/audit"
	"github.com/kilianp07/worklog/core/fleet"
	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/core/metrics"
	"github.com/kilianp07/worklog/core/monitoring"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func h(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type countingStore struct {
	ledger.Store
	applies atomic.Int32
}

func (c *countingStore) Apply(ctx context.Context, d ledger.Delta) (ledger.Applied, error) {
	c.applies.Add(1)
	return c.Store.Apply(ctx, d)
}

type captureSink struct {
	mu     sync.Mutex
	events []metrics.AccumulationEvent
}

func (c *captureSink) RecordAccumulation(ev metrics.AccumulationEvent) error {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return nil
}

type fixture struct {
	store   *countingStore
	log     *audit.MemoryLog
	acc     *ledger.Accumulator
	metrics *captureSink
}

func newFixture(t *testing.T, opts ...ledger.Option) fixture {
	t.Helper()
	log := audit.NewMemoryLog()
	store := &countingStore{Store: ledger.NewMemoryStore(nil)}
	sink := &captureSink{}
	opts = append([]ledger.Option{ledger.WithAudit(audit.NewEmitter(log)), ledger.WithMetrics(sink)}, opts...)
	return fixture{store: store, log: log, acc: ledger.NewAccumulator(store, opts...), metrics: sink}
}

func TestAccumulate_FreshCell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.acc.Accumulate(ctx, 1, day, h("5"), h("1"), 7)
	require.NoError(t, err)
	assert.True(t, e.ActiveHours.Equal(h("5.00")))
	assert.True(t, e.MaintenanceHours.Equal(h("1.00")))
	assert.Equal(t, int64(7), e.CreatedBy)
	assert.Nil(t, e.UpdatedBy)
	assert.Equal(t, day, e.WorkDate)

	facts := f.log.All()
	require.Len(t, facts, 1)
	assert.Equal(t, audit.ActionCreate, facts[0].Action)
	assert.Equal(t, e.ID, facts[0].SubjectID)
	assert.Equal(t, int64(7), facts[0].Actor)
	assert.Equal(t, audit.SubjectWorkLog, facts[0].SubjectKind)
	p, ok := facts[0].Payload.(audit.WorkLogCreated)
	require.True(t, ok)
	assert.True(t, p.Active.Equal(h("5")))
}

func TestAccumulate_CapacityRejectionLeavesCellUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.acc.Accumulate(ctx, 1, day, h("5"), h("1"), 7)
	require.NoError(t, err)

	_, err = f.acc.Accumulate(ctx, 1, day, h("19"), h("0"), 8)
	require.ErrorIs(t, err, ledger.ErrCapacityExceeded)
	assert.NotErrorIs(t, err, ledger.ErrInvalidInput)

	got, err := f.store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.ActiveHours.Equal(h("5")))
	assert.True(t, got.MaintenanceHours.Equal(h("1")))
	assert.Nil(t, got.UpdatedBy)
	assert.Len(t, f.log.All(), 1, "rejected calls emit no fact")
}

func TestAccumulate_ExactBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.acc.Accumulate(ctx, 1, day, h("5"), h("1"), 7)
	require.NoError(t, err)

	e, err := f.acc.Accumulate(ctx, 1, day, h("18"), h("0"), 9)
	require.NoError(t, err)
	assert.True(t, e.Total().Equal(h("24.00")))
	require.NotNil(t, e.UpdatedBy)
	assert.Equal(t, int64(9), *e.UpdatedBy)
	assert.Equal(t, int64(7), e.CreatedBy)

	facts := f.log.All()
	require.Len(t, facts, 2)
	assert.Equal(t, audit.ActionUpdate, facts[1].Action)
	p := facts[1].Payload.(audit.WorkLogUpdated)
	assert.True(t, p.DeltaActive.Equal(h("18")))
	assert.True(t, p.Active.Equal(h("23")))

	_, err = f.acc.Accumulate(ctx, 1, day, h("0.01"), h("0"), 9)
	assert.ErrorIs(t, err, ledger.ErrCapacityExceeded)
}

func TestAccumulate_InvalidInputNeverTouchesStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := []struct {
		name        string
		vehicle     int64
		active      string
		maintenance string
	}{
		{"negative active", 1, "-1", "0"},
		{"negative maintenance", 1, "0", "-0.5"},
		{"single call over cap", 1, "20", "4.01"},
		{"negative below rounding", 1, "-0.004", "0"},
		{"over cap below rounding", 1, "24.004", "0"},
		{"three decimal places", 1, "0.005", "0"},
		{"three decimal maintenance", 1, "1", "0.125"},
		{"no vehicle", 0, "1", "1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.acc.Accumulate(ctx, tc.vehicle, day, h(tc.active), h(tc.maintenance), 1)
			require.ErrorIs(t, err, ledger.ErrInvalidInput)
			assert.NotErrorIs(t, err, ledger.ErrCapacityExceeded)
		})
	}
	assert.Zero(t, f.store.applies.Load())
	assert.Empty(t, f.log.All())
	for _, ev := range f.metrics.events {
		assert.Equal(t, metrics.OutcomeInvalid, ev.Outcome)
	}
}

func TestAccumulate_KeepsTwoDecimals(t *testing.T) {
	f := newFixture(t)
	e, err := f.acc.Accumulate(context.Background(), 1, day, h("23.990"), h("0.01"), 1)
	require.NoError(t, err)
	assert.Equal(t, "23.99", e.ActiveHours.StringFixed(2))
	assert.True(t, e.Total().Equal(ledger.MaxDailyHours))

	_, err = f.acc.Accumulate(context.Background(), 2, day, h("23.996"), h("0"), 1)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
}

func TestAccumulate_UnknownVehicle(t *testing.T) {
	dir := fleet.NewMemoryDirectory()
	v, err := dir.AddVehicle(context.Background(), "Truck", "34 TR 1")
	require.NoError(t, err)
	f := newFixture(t, ledger.WithVehicles(dir))

	_, err = f.acc.Accumulate(context.Background(), v.ID+1, day, h("1"), h("0"), 1)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	_, err = f.acc.Accumulate(context.Background(), v.ID, day, h("1"), h("0"), 1)
	assert.NoError(t, err)
}

func TestAccumulate_ConcurrentPairExactlyOneWins(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newFixture(t)
		ctx := context.Background()
		var wg sync.WaitGroup
		errs := make([]error, 2)
		for g := 0; g < 2; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				_, errs[g] = f.acc.Accumulate(ctx, 1, day, h("13"), h("0"), int64(g+1))
			}(g)
		}
		wg.Wait()

		var ok, capacity int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ledger.ErrCapacityExceeded):
				capacity++
			default:
				t.Fatalf("unexpected error %v", err)
			}
		}
		require.Equal(t, 1, ok)
		require.Equal(t, 1, capacity)
		e, err := f.store.GetByVehicleAndDay(ctx, 1, day)
		require.NoError(t, err)
		require.True(t, e.Total().Equal(h("13")))
		require.Len(t, f.log.All(), 1)
	}
}

func TestAccumulate_ManyWritersNeverOvershoot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	var ok atomic.Int32
	for g := 0; g < 60; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.acc.Accumulate(ctx, 1, day, h("0.5"), h("0.25"), 1); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(32), ok.Load())
	e, err := f.store.GetByVehicleAndDay(ctx, 1, day)
	require.NoError(t, err)
	assert.True(t, e.Total().Equal(h("24")))
	assert.Len(t, f.log.All(), 32)
}

func TestAccumulate_InvariantHoldsForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 500; i++ {
		vehicle := int64(rng.Intn(3) + 1)
		d := day.AddDate(0, 0, rng.Intn(2))
		a := decimal.New(int64(rng.Intn(800)), -2)
		m := decimal.New(int64(rng.Intn(300)), -2)

		before, berr := f.store.GetByVehicleAndDay(ctx, vehicle, d)
		_, err := f.acc.Accumulate(ctx, vehicle, d, a, m, 1)
		after, aerr := f.store.GetByVehicleAndDay(ctx, vehicle, d)
		if err != nil {
			require.ErrorIs(t, err, ledger.ErrCapacityExceeded)
			require.Equal(t, berr, aerr)
			if berr == nil {
				require.True(t, before.Total().Equal(after.Total()))
			}
			continue
		}
		require.NoError(t, aerr)
		require.True(t, after.Total().LessThanOrEqual(ledger.MaxDailyHours))
		require.False(t, after.ActiveHours.IsNegative())
	}
}

func TestCorrect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.acc.Accumulate(ctx, 1, day, h("10"), h("2"), 7)
	require.NoError(t, err)

	got, err := f.acc.Correct(ctx, e.ID, h("4"), h("3"), 8)
	require.NoError(t, err)
	assert.True(t, got.ActiveHours.Equal(h("4")))
	assert.True(t, got.MaintenanceHours.Equal(h("3")))
	require.NotNil(t, got.UpdatedBy)
	assert.Equal(t, int64(8), *got.UpdatedBy)

	facts := f.log.All()
	require.Len(t, facts, 2)
	p := facts[1].Payload.(audit.WorkLogUpdated)
	assert.True(t, p.DeltaActive.Equal(h("-6")))
	assert.True(t, p.DeltaMaintenance.Equal(h("1")))

	_, err = f.acc.Correct(ctx, e.ID, h("20"), h("5"), 8)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	_, err = f.acc.Correct(ctx, e.ID, h("-1"), h("5"), 8)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	_, err = f.acc.Correct(ctx, e.ID, h("-0.004"), h("3"), 8)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	_, err = f.acc.Correct(ctx, e.ID, h("24.004"), h("0"), 8)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	_, err = f.acc.Correct(ctx, e.ID, h("4.005"), h("3"), 8)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)
	_, err = f.acc.Correct(ctx, 999, h("1"), h("1"), 8)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	same, err := f.acc.Correct(ctx, e.ID, h("4"), h("3"), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(8), *same.UpdatedBy)
	assert.Len(t, f.log.All(), 2, "no-op correction emits no fact")
}

type raceStore struct {
	ledger.Store
	before func()
}

func (r *raceStore) Apply(ctx context.Context, d ledger.Delta) (ledger.Applied, error) {
	if r.before != nil {
		r.before()
		r.before = nil
	}
	return r.Store.Apply(ctx, d)
}

func TestCorrect_ComposesWithConcurrentAccumulation(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemoryStore(nil)
	rs := &raceStore{Store: mem}
	acc := ledger.NewAccumulator(rs)
	e, err := acc.Accumulate(ctx, 1, day, h("10"), h("0"), 1)
	require.NoError(t, err)

	// Another writer adds 10h between the correction's read and its write.
	rs.before = func() {
		_, err := mem.Apply(ctx, ledger.Delta{VehicleID: 1, Day: day, Active: h("10"), At: time.Now()})
		require.NoError(t, err)
	}
	_, err = acc.Correct(ctx, e.ID, h("16"), h("0"), 2)
	require.ErrorIs(t, err, ledger.ErrCapacityExceeded)
	got, err := mem.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, got.ActiveHours.Equal(h("20")))
}

func TestCorrect_DeletedInBetweenIsNotResurrected(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemoryStore(nil)
	rs := &raceStore{Store: mem}
	acc := ledger.NewAccumulator(rs)
	e, err := acc.Accumulate(ctx, 1, day, h("2"), h("0"), 1)
	require.NoError(t, err)

	rs.before = func() {
		_, _, err := mem.Delete(ctx, e.ID)
		require.NoError(t, err)
	}
	_, err = acc.Correct(ctx, e.ID, h("5"), h("0"), 2)
	require.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = mem.GetByVehicleAndDay(ctx, 1, day)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDelete_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.acc.Accumulate(ctx, 1, day, h("3"), h("1"), 7)
	require.NoError(t, err)

	require.NoError(t, f.acc.Delete(ctx, e.ID, 7))
	require.NoError(t, f.acc.Delete(ctx, e.ID, 7))
	require.NoError(t, f.acc.Delete(ctx, 12345, 7))

	facts := f.log.All()
	require.Len(t, facts, 2)
	assert.Equal(t, audit.ActionDelete, facts[1].Action)
	p := facts[1].Payload.(audit.WorkLogDeleted)
	assert.True(t, p.Active.Equal(h("3")))

	_, err = f.store.Get(ctx, e.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	// The cell is free again.
	_, err = f.acc.Accumulate(ctx, 1, day, h("24"), h("0"), 7)
	assert.NoError(t, err)
}

type failingAuditSink struct{ calls atomic.Int32 }

func (f *failingAuditSink) Record(context.Context, audit.Fact) error {
	f.calls.Add(1)
	return errors.New("broker down")
}

func TestAuditFailureDoesNotRollBack(t *testing.T) {
	sink := &failingAuditSink{}
	store := ledger.NewMemoryStore(nil)
	acc := ledger.NewAccumulator(store, ledger.WithAudit(audit.NewEmitter(sink)))
	e, err := acc.Accumulate(context.Background(), 1, day, h("1"), h("0"), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), sink.calls.Load())
	_, err = store.Get(context.Background(), e.ID)
	assert.NoError(t, err)
}

func TestMetricsOutcomes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.acc.Accumulate(ctx, 1, day, h("20"), h("0"), 1)
	_, _ = f.acc.Accumulate(ctx, 1, day, h("2"), h("0"), 1)
	_, _ = f.acc.Accumulate(ctx, 1, day, h("3"), h("0"), 1)

	var outcomes []metrics.Outcome
	for _, ev := range f.metrics.events {
		outcomes = append(outcomes, ev.Outcome)
	}
	assert.Equal(t, []metrics.Outcome{metrics.OutcomeCreated, metrics.OutcomeUpdated, metrics.OutcomeCapacity}, outcomes)
}

type captureMonitor struct {
	monitoring.NopMonitor
	mu   sync.Mutex
	errs []error
	tags []map[string]string
}

func (c *captureMonitor) CaptureException(err error, tags map[string]string) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.tags = append(c.tags, tags)
	c.mu.Unlock()
}

type brokenStore struct{ ledger.Store }

func (brokenStore) Apply(context.Context, ledger.Delta) (ledger.Applied, error) {
	return ledger.Applied{}, ledger.Unavailable(errors.New("connection reset"))
}

func TestMonitorSeesOnlyUnexpectedErrors(t *testing.T) {
	mon := &captureMonitor{}
	monitoring.Init(mon)
	t.Cleanup(func() { monitoring.Init(monitoring.NopMonitor{}) })
	ctx := context.Background()

	f := newFixture(t)
	_, _ = f.acc.Accumulate(ctx, 1, day, h("-1"), h("0"), 1)
	_, _ = f.acc.Accumulate(ctx, 1, day, h("20"), h("0"), 1)
	_, _ = f.acc.Accumulate(ctx, 1, day, h("5"), h("0"), 1)
	_, _ = f.acc.Correct(ctx, 999, h("1"), h("0"), 1)
	assert.Empty(t, mon.errs)

	acc := ledger.NewAccumulator(brokenStore{ledger.NewMemoryStore(nil)})
	_, err := acc.Accumulate(ctx, 1, day, h("1"), h("0"), 1)
	require.ErrorIs(t, err, ledger.ErrStorageUnavailable)
	require.Len(t, mon.errs, 1)
	assert.ErrorIs(t, mon.errs[0], ledger.ErrStorageUnavailable)
	assert.Equal(t, map[string]string{"component": "ledger", "operation": "accumulate"}, mon.tags[0])
}
