package audit

import (
	"fmt"

	coreaudit "github.com/kilianp07/worklog/core/audit"
	"github.com/kilianp07/worklog/core/factory"
)

var registry = factory.NewRegistry[coreaudit.Sink]()

// RegisterSink adds a sink factory under name.
func RegisterSink(name string, f factory.Factory[coreaudit.Sink]) error {
	return registry.Register(name, f)
}

// NewSink builds one configured sink.
func NewSink(cfg factory.ModuleConfig) (coreaudit.Sink, error) {
	return registry.Create(cfg)
}

// NewSinks builds every configured sink and combines them. No configuration
// yields a NopSink.
func NewSinks(cfgs []factory.ModuleConfig) (coreaudit.Sink, error) {
	sinks, err := registry.CreateAll(cfgs)
	if err != nil {
		return nil, fmt.Errorf("audit sinks: %w", err)
	}
	switch len(sinks) {
	case 0:
		return coreaudit.NopSink{}, nil
	case 1:
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return registry.Names() }
