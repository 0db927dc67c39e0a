// Package metrics defines the observability events of the ledger. Sinks like
// PromSink and InfluxSink record accumulation outcomes, store latency and
// weekly utilization and can be combined with NewMultiSink. The factory
// helpers return a MultiSink automatically when multiple sinks are configured.
// Optional capabilities are separate recorder interfaces discovered by type
// assertion.
package metrics
