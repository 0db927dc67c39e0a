package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	count int
}

func (r *recordSink) RecordAccumulation(AccumulationEvent) error {
	r.count++
	return nil
}

func (r *recordSink) RecordUtilization([]UtilizationSample) error {
	r.count++
	return nil
}

type failingSink struct{}

func (failingSink) RecordAccumulation(AccumulationEvent) error { return errors.New("down") }

// TestMultiSink ensures events are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordAccumulation(AccumulationEvent{Outcome: OutcomeCreated}); err != nil {
		t.Fatalf("record accumulation: %v", err)
	}
	if err := m.RecordUtilization(nil); err != nil {
		t.Fatalf("record utilization: %v", err)
	}
	if err := m.RecordAuditFact(AuditFactEvent{Action: "Create"}); err != nil {
		t.Fatalf("record audit: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("events not forwarded")
	}
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	s := &recordSink{}
	m := NewMultiSink(failingSink{}, s)
	if err := m.RecordAccumulation(AccumulationEvent{}); err == nil {
		t.Fatal("expected error")
	}
	if s.count != 1 {
		t.Fatalf("healthy sink skipped")
	}
}
