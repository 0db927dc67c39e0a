package metrics

import "errors"

// MultiSink fans out events to multiple sinks. Optional recorder interfaces are
// forwarded only to sinks implementing them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink returns a sink forwarding to all provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordAccumulation(ev AccumulationEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordAccumulation(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordUtilization(samples []UtilizationSample) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(UtilizationRecorder); ok {
			if err := r.RecordUtilization(samples); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordAuditFact(ev AuditFactEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(AuditRecorder); ok {
			if err := r.RecordAuditFact(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
