package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/worklog/core/audit"
	"github.com/kilianp07/worklog/core/logger"
	"github.com/kilianp07/worklog/core/metrics"
	"github.com/kilianp07/worklog/core/monitoring"
)

// VehicleChecker confirms that a vehicle id is known to the fleet.
type VehicleChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Accumulator is the write path of the ledger. It validates input, delegates
// the capped write to the Store and emits one audit fact per mutation.
type Accumulator struct {
	store    Store
	emitter  *audit.Emitter
	vehicles VehicleChecker
	metrics  metrics.MetricsSink
	log      logger.Logger
	now      func() time.Time
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithAudit routes mutation facts to e.
func WithAudit(e *audit.Emitter) Option { return func(a *Accumulator) { a.emitter = e } }

// WithVehicles rejects accumulations for vehicles unknown to c.
func WithVehicles(c VehicleChecker) Option { return func(a *Accumulator) { a.vehicles = c } }

func WithMetrics(s metrics.MetricsSink) Option {
	return func(a *Accumulator) {
		if s != nil {
			a.metrics = s
		}
	}
}

func WithLogger(l logger.Logger) Option { return func(a *Accumulator) { a.log = logger.OrNop(l) } }

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option { return func(a *Accumulator) { a.now = now } }

// NewAccumulator returns an Accumulator writing to store.
func NewAccumulator(store Store, opts ...Option) *Accumulator {
	a := &Accumulator{
		store:   store,
		emitter: audit.NewEmitter(nil),
		metrics: metrics.NopSink{},
		log:     logger.NopLogger{},
		now:     time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Accumulate adds active and maintenance hours to the (vehicle, day) cell,
// creating it on first use. It fails with ErrInvalidInput for negative hours,
// more than two decimal places or a single call above the daily cap, and with ErrCapacityExceeded when the
// stored total plus the delta would exceed the cap.
func (a *Accumulator) Accumulate(ctx context.Context, vehicleID int64, day time.Time, active, maintenance decimal.Decimal, actor int64) (Entry, error) {
	start := a.now()
	ev := metrics.AccumulationEvent{
		VehicleID:   vehicleID,
		Day:         Day(day),
		Operation:   "accumulate",
		Active:      active.InexactFloat64(),
		Maintenance: maintenance.InexactFloat64(),
	}

	if err := a.validate(ctx, vehicleID, day, active, maintenance); err != nil {
		a.record(ev, start, err, false)
		return Entry{}, err
	}
	active, maintenance = Hours(active), Hours(maintenance)
	res, err := a.store.Apply(ctx, Delta{
		VehicleID:   vehicleID,
		Day:         Day(day),
		Active:      active,
		Maintenance: maintenance,
		Actor:       actor,
		At:          start.UTC(),
	})
	a.record(ev, start, err, res.Created)
	if err != nil {
		return Entry{}, err
	}

	if res.Created {
		a.emit(ctx, actor, res.Entry.ID, audit.WorkLogCreated{
			VehicleID:   res.Entry.VehicleID,
			WorkDate:    audit.Date(res.Entry.WorkDate),
			Active:      res.Entry.ActiveHours,
			Maintenance: res.Entry.MaintenanceHours,
		})
	} else {
		a.emit(ctx, actor, res.Entry.ID, updated(res.Entry, active, maintenance))
	}
	a.log.Debugw("worklog accumulated", map[string]any{
		"id":          res.Entry.ID,
		"vehicle_id":  vehicleID,
		"work_date":   res.Entry.WorkDate.Format(DateLayout),
		"created":     res.Created,
		"active":      res.Entry.ActiveHours.StringFixed(HoursScale),
		"maintenance": res.Entry.MaintenanceHours.StringFixed(HoursScale),
	})
	return res.Entry, nil
}

// Correct sets the totals of an existing entry. The difference to the stored
// values is applied as a signed delta through the same capped write, so
// corrections racing with other writes on the cell compose additively.
// A correction matching the stored values changes nothing and emits no fact.
func (a *Accumulator) Correct(ctx context.Context, id int64, active, maintenance decimal.Decimal, actor int64) (Entry, error) {
	start := a.now()
	ev := metrics.AccumulationEvent{Operation: "correct", Active: active.InexactFloat64(), Maintenance: maintenance.InexactFloat64()}
	if err := checkHours(active, maintenance); err != nil {
		a.record(ev, start, err, false)
		return Entry{}, err
	}
	active, maintenance = Hours(active), Hours(maintenance)
	cur, err := a.store.Get(ctx, id)
	if err != nil {
		a.record(ev, start, err, false)
		return Entry{}, err
	}
	ev.VehicleID, ev.Day = cur.VehicleID, cur.WorkDate

	dA := active.Sub(cur.ActiveHours)
	dM := maintenance.Sub(cur.MaintenanceHours)
	if dA.IsZero() && dM.IsZero() {
		return cur, nil
	}
	res, err := a.store.Apply(ctx, Delta{
		VehicleID:   cur.VehicleID,
		Day:         cur.WorkDate,
		Active:      dA,
		Maintenance: dM,
		Actor:       actor,
		At:          start.UTC(),
		UpdateOnly:  true,
	})
	a.record(ev, start, err, false)
	if err != nil {
		return Entry{}, err
	}
	a.emit(ctx, actor, res.Entry.ID, updated(res.Entry, dA, dM))
	return res.Entry, nil
}

// Delete removes an entry. Deleting a missing id succeeds without a fact.
func (a *Accumulator) Delete(ctx context.Context, id int64, actor int64) error {
	start := a.now()
	removed, ok, err := a.store.Delete(ctx, id)
	ev := metrics.AccumulationEvent{Operation: "delete", VehicleID: removed.VehicleID, Day: removed.WorkDate}
	if err != nil {
		a.record(ev, start, err, false)
		return err
	}
	if !ok {
		a.record(ev, start, ErrNotFound, false)
		return nil
	}
	ev.Outcome = metrics.OutcomeDeleted
	a.send(ev, start)
	a.emit(ctx, actor, removed.ID, audit.WorkLogDeleted{
		VehicleID:   removed.VehicleID,
		WorkDate:    audit.Date(removed.WorkDate),
		Active:      removed.ActiveHours,
		Maintenance: removed.MaintenanceHours,
	})
	return nil
}

func (a *Accumulator) validate(ctx context.Context, vehicleID int64, day time.Time, active, maintenance decimal.Decimal) error {
	if vehicleID <= 0 {
		return invalid("vehicle id must be positive")
	}
	if day.IsZero() {
		return invalid("work date required")
	}
	if err := checkHours(active, maintenance); err != nil {
		return err
	}
	if a.vehicles != nil {
		ok, err := a.vehicles.Exists(ctx, vehicleID)
		if err != nil {
			return Unavailable(err)
		}
		if !ok {
			return invalid("unknown vehicle %d", vehicleID)
		}
	}
	return nil
}

// checkHours validates hours as given, before any rounding.
func checkHours(active, maintenance decimal.Decimal) error {
	if active.IsNegative() || maintenance.IsNegative() {
		return invalid("hours must be non negative")
	}
	if !Exact(active) || !Exact(maintenance) {
		return invalid("hours allow at most %d decimal places", HoursScale)
	}
	if active.Add(maintenance).GreaterThan(MaxDailyHours) {
		return invalid("a single entry cannot exceed %s hours", MaxDailyHours)
	}
	return nil
}

func updated(e Entry, dA, dM decimal.Decimal) audit.WorkLogUpdated {
	return audit.WorkLogUpdated{
		VehicleID:        e.VehicleID,
		WorkDate:         audit.Date(e.WorkDate),
		DeltaActive:      dA,
		DeltaMaintenance: dM,
		Active:           e.ActiveHours,
		Maintenance:      e.MaintenanceHours,
	}
}

func (a *Accumulator) emit(ctx context.Context, actor, id int64, p audit.Payload) {
	if _, err := a.emitter.Emit(ctx, actor, id, p); err != nil {
		a.log.Errorf("ledger: build audit fact for %d: %v", id, err)
	}
}

func (a *Accumulator) record(ev metrics.AccumulationEvent, start time.Time, err error, created bool) {
	monitoring.CaptureUnexpected(err, map[string]string{"component": "ledger", "operation": ev.Operation},
		ErrInvalidInput, ErrCapacityExceeded, ErrNotFound)
	switch {
	case err == nil && created:
		ev.Outcome = metrics.OutcomeCreated
	case err == nil:
		ev.Outcome = metrics.OutcomeUpdated
	case errors.Is(err, ErrInvalidInput):
		ev.Outcome = metrics.OutcomeInvalid
	case errors.Is(err, ErrCapacityExceeded):
		ev.Outcome = metrics.OutcomeCapacity
	case errors.Is(err, ErrNotFound):
		ev.Outcome = metrics.OutcomeNotFound
	default:
		ev.Outcome = metrics.OutcomeError
		a.log.Errorf("ledger: %s vehicle %d: %v", ev.Operation, ev.VehicleID, err)
	}
	a.send(ev, start)
}

func (a *Accumulator) send(ev metrics.AccumulationEvent, start time.Time) {
	ev.Time = a.now()
	ev.Duration = ev.Time.Sub(start)
	if err := a.metrics.RecordAccumulation(ev); err != nil {
		a.log.Warnf("ledger: record metrics: %v", err)
	}
}
