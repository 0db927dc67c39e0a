package audit

import (
	"fmt"

	coreaudit "github.com/kilianp07/worklog/core/audit"
	"github.com/kilianp07/worklog/core/factory"
	"github.com/kilianp07/worklog/infra/audit/kafka"
	"github.com/kilianp07/worklog/infra/audit/mqtt"
)

// init registers built-in audit sinks.
func init() {
	_ = RegisterSink("nop", func(map[string]any) (coreaudit.Sink, error) {
		return coreaudit.NopSink{}, nil
	})

	_ = RegisterSink("log", func(map[string]any) (coreaudit.Sink, error) {
		return NewLogSink(nil), nil
	})

	_ = RegisterSink("kafka", func(conf map[string]any) (coreaudit.Sink, error) {
		var cfg kafka.Config
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, fmt.Errorf("decode kafka config: %w", err)
		}
		return kafka.NewSink(cfg)
	})

	_ = RegisterSink("mqtt", func(conf map[string]any) (coreaudit.Sink, error) {
		var cfg mqtt.Config
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, fmt.Errorf("decode mqtt config: %w", err)
		}
		return mqtt.NewSink(cfg)
	})
}
