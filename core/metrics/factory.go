package metrics

import (
	"fmt"

	"github.com/kilianp07/rtsa/core/factory"
)

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a sink factory under the given type name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return sinkRegistry.Names() }

// NewMetricsSink builds the configured sinks. No entry yields a NopSink and
// several entries a MultiSink. Sinks already built are closed when a later
// entry fails.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinkRegistry.Create(cfgs[0])
	}
	multi := NewMultiSink()
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			multi.Close()
			return nil, fmt.Errorf("sink %d: %w", i, err)
		}
		multi.Sinks = append(multi.Sinks, s)
	}
	return multi, nil
}
