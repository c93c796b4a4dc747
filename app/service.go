package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/rtsa/config"
	"github.com/kilianp07/rtsa/core/analysis"
	corelogger "github.com/kilianp07/rtsa/core/logger"
	coremetrics "github.com/kilianp07/rtsa/core/metrics"
	"github.com/kilianp07/rtsa/core/model"
	"github.com/kilianp07/rtsa/generator"
	"github.com/kilianp07/rtsa/infra/logger"
	"github.com/kilianp07/rtsa/infra/metrics"
	"github.com/kilianp07/rtsa/internal/eventbus"
	"github.com/kilianp07/rtsa/pkg/export"
)

// Summary aggregates one batch run.
type Summary struct {
	Sets            int     `json:"sets"`
	Schedulable     int     `json:"schedulable"`
	Failed          int     `json:"failed"`
	Attempts        int     `json:"attempts"`
	MeanUtilization float64 `json:"mean_utilization"`
	StdUtilization  float64 `json:"std_utilization"`
	MeanIterations  float64 `json:"mean_iterations"`
	StdIterations   float64 `json:"std_iterations"`
	Dropped         uint64  `json:"dropped_events"`
}

// Service runs the batch mode: it generates schedulable task sets for every
// configured profile, analyzes them concurrently and exports the reports.
type Service struct {
	cfg  *config.Config
	gen  *generator.Generator
	sink coremetrics.MetricsSink
	log  corelogger.Logger
	out  io.Writer
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("batch")
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	var rec coremetrics.GenerationRecorder
	if r, ok := sink.(coremetrics.GenerationRecorder); ok {
		rec = r
	}
	gen, err := generator.New(cfg.Generator, rec, logger.New("generator"))
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	return &Service{cfg: cfg, gen: gen, sink: sink, log: logg, out: os.Stdout}, nil
}

// SetOutput redirects the report when Batch.Output is empty.
func (s *Service) SetOutput(w io.Writer) { s.out = w }

// Run executes one batch. Sets the generator could not produce are skipped and
// reported in the returned error together with analysis failures; the reports
// of the other sets are still exported.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	bc := s.cfg.Batch
	if bc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, bc.Timeout)
		defer cancel()
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	sets, attempts, genErr := s.generate(ctx)
	if err := ctx.Err(); err != nil {
		return Summary{}, errors.Join(genErr, err)
	}

	// Analyses are recorded asynchronously by the collector so that slow
	// sinks do not hold the worker pool. The buffer fits the whole batch.
	bus := eventbus.NewTypedBuffered[coremetrics.AnalysisEvent](len(sets))
	done := metrics.StartEventCollector(ctx, bus, s.sink, s.log)
	analyzer, err := analysis.NewAnalyzer(s.cfg.Analysis, errorsOnly{s.sink}, bus, logger.New("analyzer"))
	if err != nil {
		bus.Close()
		return Summary{}, err
	}
	reports, anaErr := analyzer.AnalyzeAll(ctx, sets)
	bus.Close()
	<-done

	sum := summarize(reports)
	sum.Attempts = attempts
	sum.Dropped = bus.Dropped()
	if sum.Dropped > 0 {
		s.log.Warnf("%d analysis events dropped", sum.Dropped)
	}

	if err := s.export(reports); err != nil {
		return sum, errors.Join(genErr, anaErr, err)
	}
	s.log.Infow("batch complete", map[string]any{
		"sets":             sum.Sets,
		"schedulable":      sum.Schedulable,
		"failed":           sum.Failed,
		"attempts":         sum.Attempts,
		"mean_utilization": sum.MeanUtilization,
		"mean_iterations":  sum.MeanIterations,
	})
	return sum, errors.Join(genErr, anaErr)
}

func (s *Service) generate(ctx context.Context) ([]model.NamedTaskSet, int, error) {
	bc := s.cfg.Batch
	var (
		sets     []model.NamedTaskSet
		attempts int
		errs     []error
	)
	for p, spec := range bc.Profiles {
		for j := 0; j < bc.SetsPerProfile; j++ {
			name := fmt.Sprintf("p%d-n%d-u%.2f-%d", p, spec.Tasks, spec.Utilization, j)
			ts, n, err := s.gen.GenerateSchedulable(ctx, spec, nil)
			attempts += n
			if err != nil {
				if ctx.Err() != nil {
					return sets, attempts, nil
				}
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				continue
			}
			sets = append(sets, model.NamedTaskSet{Name: name, Tasks: ts})
		}
	}
	return sets, attempts, errors.Join(errs...)
}

func (s *Service) export(reports []analysis.Report) error {
	ok := reports[:0:0]
	for _, r := range reports {
		if r.ID != "" {
			ok = append(ok, r)
		}
	}
	if s.cfg.Batch.Output == "" {
		return export.Write(s.out, s.cfg.Batch.Format, ok)
	}
	f, err := os.Create(s.cfg.Batch.Output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := export.Write(f, s.cfg.Batch.Format, ok); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Close releases the resources held by the metrics sinks.
func (s *Service) Close() error {
	coremetrics.CloseSink(s.sink)
	return nil
}

func summarize(reports []analysis.Report) Summary {
	var util, iters []float64
	sum := Summary{}
	for _, r := range reports {
		if r.ID == "" {
			continue
		}
		sum.Sets++
		if r.Schedulable {
			sum.Schedulable++
		}
		util = append(util, r.Utilization)
		iters = append(iters, float64(r.TotalIterations()))
	}
	sum.Failed = len(reports) - sum.Sets
	switch len(util) {
	case 0:
	case 1:
		sum.MeanUtilization, sum.MeanIterations = util[0], iters[0]
	default:
		sum.MeanUtilization, sum.StdUtilization = stat.MeanStdDev(util, nil)
		sum.MeanIterations, sum.StdIterations = stat.MeanStdDev(iters, nil)
	}
	return sum
}

// errorsOnly forwards analysis errors synchronously; successful analyses reach
// the sinks through the event collector.
type errorsOnly struct {
	sink coremetrics.MetricsSink
}

func (errorsOnly) RecordAnalysis(coremetrics.AnalysisEvent) error { return nil }

func (e errorsOnly) RecordAnalysisError(ev coremetrics.AnalysisErrorEvent) error {
	if rec, ok := e.sink.(coremetrics.AnalysisErrorRecorder); ok {
		return rec.RecordAnalysisError(ev)
	}
	return nil
}
