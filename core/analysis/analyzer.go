package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/rtsa/core/logger"
	"github.com/kilianp07/rtsa/core/metrics"
	"github.com/kilianp07/rtsa/core/model"
)

// EventPublisher receives an event for every completed analysis.
// *eventbus.TypedBus[metrics.AnalysisEvent] satisfies it.
type EventPublisher interface {
	Publish(metrics.AnalysisEvent)
}

// Analyzer runs Analyze and reports every result to a metrics sink, an event
// publisher and a logger.
type Analyzer struct {
	cfg     Config
	metrics metrics.MetricsSink
	bus     EventPublisher
	logger  logger.Logger
	now     func() time.Time
}

// NewAnalyzer validates cfg and returns an Analyzer. sink, bus and log may be nil.
func NewAnalyzer(cfg Config, sink metrics.MetricsSink, bus EventPublisher, log logger.Logger) (*Analyzer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Analyzer{cfg: cfg, metrics: sink, bus: bus, logger: log, now: time.Now}, nil
}

// Config returns the effective configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// Analyze runs the full analysis of one named task set.
func (a *Analyzer) Analyze(name string, ts model.TaskSet) (Report, error) {
	start := a.now()
	rep, err := Analyze(ts, a.cfg)
	if err != nil {
		a.logger.Errorf("analysis of %q failed: %v", name, err)
		if rec, ok := a.metrics.(metrics.AnalysisErrorRecorder); ok {
			if rerr := rec.RecordAnalysisError(metrics.AnalysisErrorEvent{Name: name, Error: err.Error(), Time: start}); rerr != nil {
				a.logger.Warnf("record analysis error: %v", rerr)
			}
		}
		return rep, err
	}
	rep.ID = uuid.NewString()
	rep.Name = name

	ev := NewEvent(rep, a.now().Sub(start))
	ev.Time = start
	if err := a.metrics.RecordAnalysis(ev); err != nil {
		a.logger.Warnf("record analysis %s: %v", rep.ID, err)
	}
	if a.bus != nil {
		a.bus.Publish(ev)
	}
	a.logger.Debugw("analysis complete", map[string]any{
		"id":          rep.ID,
		"name":        name,
		"tasks":       len(rep.Tasks),
		"utilization": rep.Utilization,
		"schedulable": rep.Schedulable,
		"iterations":  rep.TotalIterations(),
	})
	return rep, nil
}

// AnalyzeAll analyzes every set concurrently, bounded by Config.Workers.
// Reports keep the input order. Per-set failures are joined into the returned
// error while the other sets are still analyzed; cancelling ctx stops the
// remaining work.
func (a *Analyzer) AnalyzeAll(ctx context.Context, sets []model.NamedTaskSet) ([]Report, error) {
	reports := make([]Report, len(sets))
	errs := make([]error, len(sets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	for i, set := range sets {
		i, set := i, set
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rep, err := a.Analyze(set.Name, set.Tasks)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", set.Name, err)
				rep.Name = set.Name
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, errors.Join(errs...)
}

// NewEvent converts a report into the event recorded by metrics sinks.
func NewEvent(rep Report, d time.Duration) metrics.AnalysisEvent {
	ev := metrics.AnalysisEvent{
		ReportID:    rep.ID,
		Name:        rep.Name,
		Method:      string(rep.Method),
		Utilization: rep.Utilization,
		Schedulable: rep.Schedulable,
		LiuHolds:    rep.Liu.Holds,
		BiniHolds:   rep.Bini.Holds,
		Iterations:  rep.TotalIterations(),
		Ceilings:    rep.TotalCeilings(),
		Duration:    d,
		Tasks:       make([]metrics.TaskResult, len(rep.Tasks)),
	}
	for i, t := range rep.Tasks {
		ev.Tasks[i] = metrics.TaskResult{Index: i, C: t.C, T: t.T, D: t.D, R: t.R, K: t.K}
	}
	return ev
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)          {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)           {}
func (nopLogger) Infow(string, map[string]any)  {}
func (nopLogger) Warnf(string, ...any)           {}
func (nopLogger) Errorf(string, ...any)          {}
