package audit

import (
	"context"
	"errors"

	coreaudit "github.com/kilianp07/worklog/core/audit"
)

// MultiSink fans a fact out to several sinks. Every sink is tried; their
// errors are joined.
type MultiSink struct {
	sinks []coreaudit.Sink
}

func NewMultiSink(sinks ...coreaudit.Sink) *MultiSink {
	out := make([]coreaudit.Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &MultiSink{sinks: out}
}

func (m *MultiSink) Record(ctx context.Context, f coreaudit.Fact) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Record(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if c, ok := s.(coreaudit.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
