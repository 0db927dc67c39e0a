package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/worklog/core/fleet"
	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/core/logger"
	"github.com/kilianp07/worklog/core/metrics"
)

// WeeklyReport is the utilization of a roster over one week.
type WeeklyReport struct {
	WeekStart time.Time     `json:"week_start"`
	WeekEnd   time.Time     `json:"week_end"`
	BaseHours string        `json:"base_hours"`
	Vehicles  []Utilization `json:"vehicles"`
	Summary   FleetSummary  `json:"summary"`
}

// Builder reads ledger rows and the vehicle roster for reports.
type Builder struct {
	reader   *ledger.Reader
	dir      fleet.Directory
	base     decimal.Decimal
	recorder metrics.UtilizationRecorder
	log      logger.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBase overrides the weekly base hours.
func WithBase(base decimal.Decimal) BuilderOption {
	return func(b *Builder) {
		if base.IsPositive() {
			b.base = base
		}
	}
}

// WithUtilizationRecorder exports every weekly report as metrics samples.
func WithUtilizationRecorder(r metrics.UtilizationRecorder) BuilderOption {
	return func(b *Builder) { b.recorder = r }
}

func WithLogger(l logger.Logger) BuilderOption { return func(b *Builder) { b.log = logger.OrNop(l) } }

func NewBuilder(reader *ledger.Reader, dir fleet.Directory, opts ...BuilderOption) *Builder {
	b := &Builder{reader: reader, dir: dir, base: BaseWeek, log: logger.NopLogger{}}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Builder) roster(ctx context.Context, ids []int64) ([]fleet.Vehicle, error) {
	all, err := b.dir.List(ctx)
	if err != nil {
		return nil, err
	}
	return fleet.Select(all, ids), nil
}

// Weekly reports the Monday-start week containing day for the vehicles in ids,
// or the whole fleet when ids is nil. Percentages are rounded to two decimals.
func (b *Builder) Weekly(ctx context.Context, day time.Time, ids []int64) (WeeklyReport, error) {
	if day.IsZero() {
		return WeeklyReport{}, fmt.Errorf("%w: week day required", ledger.ErrInvalidInput)
	}
	week := WeekOf(day)
	roster, err := b.roster(ctx, ids)
	if err != nil {
		return WeeklyReport{}, err
	}
	rows, err := b.reader.FleetRange(ctx, fleet.IDs(roster), week)
	if err != nil {
		return WeeklyReport{}, err
	}
	us := Weekly(b.base, roster, rows)
	rep := WeeklyReport{
		WeekStart: week.Start,
		WeekEnd:   week.End.AddDate(0, 0, -1),
		BaseHours: b.base.String(),
		Vehicles:  make([]Utilization, len(us)),
		Summary:   FleetStats(us),
	}
	for i, u := range us {
		rep.Vehicles[i] = Round2(u)
	}
	b.export(week.Start, rep.Vehicles)
	return rep, nil
}

func (b *Builder) export(week time.Time, us []Utilization) {
	if b.recorder == nil || len(us) == 0 {
		return
	}
	samples := make([]metrics.UtilizationSample, len(us))
	for i, u := range us {
		samples[i] = metrics.UtilizationSample{
			VehicleID:      u.VehicleID,
			VehicleName:    u.Name,
			WeekStart:      week,
			ActiveHours:    u.Active.InexactFloat64(),
			Maintenance:    u.Maintenance.InexactFloat64(),
			IdleHours:      u.Idle.InexactFloat64(),
			ActivePct:      u.ActivePct.InexactFloat64(),
			MaintenancePct: u.MaintenancePct.InexactFloat64(),
			IdlePct:        u.IdlePct.InexactFloat64(),
		}
	}
	if err := b.recorder.RecordUtilization(samples); err != nil {
		b.log.Warnf("export utilization: %v", err)
	}
}

// Timeline returns the bars of the vehicles in ids (all when nil) between
// start and end, both inclusive.
func (b *Builder) Timeline(ctx context.Context, ids []int64, start, end time.Time, kind Kind) ([]Segment, error) {
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("%w: start and end required", ledger.ErrInvalidInput)
	}
	if ledger.Day(end).Before(ledger.Day(start)) {
		return nil, fmt.Errorf("%w: end before start", ledger.ErrInvalidInput)
	}
	roster, err := b.roster(ctx, ids)
	if err != nil {
		return nil, err
	}
	rows, err := b.reader.FleetRange(ctx, fleet.IDs(roster), ledger.Inclusive(start, end))
	if err != nil {
		return nil, err
	}
	return Gantt(rows, kind), nil
}
