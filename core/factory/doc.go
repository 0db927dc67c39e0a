// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation. Metrics sinks and audit sinks are both built this
// way from the `metrics.sinks` and `audit.sinks` config lists.
//
// Example usage:
//
//	reg := factory.NewRegistry[audit.Sink]()
//	reg.Register("kafka", func(conf map[string]any) (audit.Sink, error) {
//	    var c struct{ Brokers []string `json:"brokers"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return kafka.NewSink(c.Brokers, "worklog.audit"), nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "kafka", Conf: map[string]any{"brokers": []string{"localhost:9092"}}})
package factory
