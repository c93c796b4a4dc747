package metrics

import (
	"context"

	corelogger "github.com/kilianp07/rtsa/core/logger"
	coremetrics "github.com/kilianp07/rtsa/core/metrics"
	"github.com/kilianp07/rtsa/internal/eventbus"
)

// StartEventCollector subscribes to the bus and records every analysis event
// on sink. The returned channel is closed once the collector has stopped,
// either because ctx was canceled or the bus was closed.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[coremetrics.AnalysisEvent], sink coremetrics.MetricsSink, log corelogger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := sink.RecordAnalysis(ev); err != nil && log != nil {
					log.Warnf("collector: record %s: %v", ev.ReportID, err)
				}
			}
		}
	}()
	return done
}
