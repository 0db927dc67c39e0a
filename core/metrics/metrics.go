package metrics

import "time"

// Outcome classifies the result of a ledger write.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeUpdated  Outcome = "updated"
	OutcomeDeleted  Outcome = "deleted"
	OutcomeInvalid  Outcome = "invalid_input"
	OutcomeCapacity Outcome = "capacity_exceeded"
	OutcomeNotFound Outcome = "not_found"
	OutcomeError    Outcome = "error"
)

// AccumulationEvent describes one ledger write attempt.
type AccumulationEvent struct {
	VehicleID   int64
	Day         time.Time
	Operation   string
	Outcome     Outcome
	Active      float64
	Maintenance float64
	Duration    time.Duration
	Time        time.Time
}

// MetricsSink records ledger write attempts.
type MetricsSink interface {
	RecordAccumulation(ev AccumulationEvent) error
}

// UtilizationSample is the weekly utilization of one vehicle.
type UtilizationSample struct {
	VehicleID      int64
	VehicleName    string
	WeekStart      time.Time
	ActiveHours    float64
	Maintenance    float64
	IdleHours      float64
	ActivePct      float64
	MaintenancePct float64
	IdlePct        float64
}

// UtilizationRecorder records weekly utilization snapshots.
type UtilizationRecorder interface {
	RecordUtilization(samples []UtilizationSample) error
}

// AuditFactEvent is a recorded audit fact, reduced to what metrics need.
type AuditFactEvent struct {
	Action string
	Time   time.Time
}

// AuditRecorder counts audit facts.
type AuditRecorder interface {
	RecordAuditFact(ev AuditFactEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordAccumulation(AccumulationEvent) error  { return nil }
func (NopSink) RecordUtilization([]UtilizationSample) error { return nil }
func (NopSink) RecordAuditFact(AuditFactEvent) error        { return nil }
