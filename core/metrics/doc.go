// Package metrics defines the events emitted by the analysis engine and the
// sink interfaces that record them. Sinks like PromSink and InfluxSink live in
// infra/metrics and register themselves in the sink registry; NewMetricsSink
// builds a MultiSink automatically when several sinks are configured.
package metrics
