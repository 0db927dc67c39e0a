package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/worklog/core/metrics"
)

// PromSink records ledger activity in Prometheus metrics.
type PromSink struct {
	writes      *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	utilization *prometheus.GaugeVec
	facts       *prometheus.CounterVec
}

// NewPromSink registers the ledger metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	writes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worklog_writes_total",
		Help: "Ledger write attempts by operation and outcome",
	}, []string{"operation", "outcome"}))
	if err != nil {
		return nil, err
	}
	latency, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worklog_write_duration_seconds",
		Help:    "Time spent in the store for one ledger write",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"}))
	if err != nil {
		return nil, err
	}
	utilization, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "worklog_vehicle_utilization_percent",
		Help: "Share of the last reported week spent active, in maintenance or idle",
	}, []string{"vehicle_id", "kind"}))
	if err != nil {
		return nil, err
	}
	facts, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "worklog_audit_facts_total",
		Help: "Audit facts emitted by action",
	}, []string{"action"}))
	if err != nil {
		return nil, err
	}
	return &PromSink{writes: writes, latency: latency, utilization: utilization, facts: facts}, nil
}

// register returns the collector already registered under the same
// descriptor when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordAccumulation counts the attempt and observes its store latency.
func (s *PromSink) RecordAccumulation(ev coremetrics.AccumulationEvent) error {
	s.writes.WithLabelValues(ev.Operation, string(ev.Outcome)).Inc()
	if ev.Duration > 0 {
		s.latency.WithLabelValues(ev.Operation).Observe(ev.Duration.Seconds())
	}
	return nil
}

// RecordUtilization sets the per-vehicle utilization gauges.
func (s *PromSink) RecordUtilization(samples []coremetrics.UtilizationSample) error {
	for _, u := range samples {
		id := strconv.FormatInt(u.VehicleID, 10)
		s.utilization.WithLabelValues(id, "active").Set(u.ActivePct)
		s.utilization.WithLabelValues(id, "maintenance").Set(u.MaintenancePct)
		s.utilization.WithLabelValues(id, "idle").Set(u.IdlePct)
	}
	return nil
}

// RecordAuditFact counts an emitted fact.
func (s *PromSink) RecordAuditFact(ev coremetrics.AuditFactEvent) error {
	s.facts.WithLabelValues(ev.Action).Inc()
	return nil
}
