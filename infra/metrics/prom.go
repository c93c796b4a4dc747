package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/rtsa/core/metrics"
)

// PromSink records analysis events in Prometheus metrics.
type PromSink struct {
	analyses    *prometheus.CounterVec
	iterations  *prometheus.HistogramVec
	utilization prometheus.Histogram
	duration    prometheus.Histogram
	generations *prometheus.CounterVec
	attempts    prometheus.Histogram
	errors      prometheus.Counter
}

// NewPromSink registers analysis metrics on the default Prometheus registerer.
// The Prometheus server should be started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.analyses, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rtsa_analyses_total",
		Help: "Number of analyzed task sets",
	}, []string{"method", "schedulable"})); err != nil {
		return nil, err
	}
	if s.iterations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rtsa_rta_iterations",
		Help:    "Fixed-point iterations spent by the response-time analysis of one task set",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"method"})); err != nil {
		return nil, err
	}
	if s.utilization, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rtsa_taskset_utilization",
		Help:    "Processor utilization of analyzed task sets",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 15),
	})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rtsa_analysis_duration_seconds",
		Help:    "Wall time of one complete analysis",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	})); err != nil {
		return nil, err
	}
	if s.generations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rtsa_generations_total",
		Help: "Random task-set searches by outcome",
	}, []string{"found"})); err != nil {
		return nil, err
	}
	if s.attempts, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rtsa_generation_attempts",
		Help:    "Candidates drawn per random task-set search",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})); err != nil {
		return nil, err
	}
	if s.errors, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rtsa_analysis_errors_total",
		Help: "Analyses rejected with an error",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, reusing the collector already registered under the
// same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordAnalysis updates the counters and histograms for one analysis.
func (s *PromSink) RecordAnalysis(ev coremetrics.AnalysisEvent) error {
	s.analyses.WithLabelValues(ev.Method, strconv.FormatBool(ev.Schedulable)).Inc()
	s.iterations.WithLabelValues(ev.Method).Observe(float64(ev.Iterations))
	s.utilization.Observe(ev.Utilization)
	s.duration.Observe(ev.Duration.Seconds())
	return nil
}

// RecordGeneration counts one random task-set search.
func (s *PromSink) RecordGeneration(ev coremetrics.GenerationEvent) error {
	s.generations.WithLabelValues(strconv.FormatBool(ev.Found)).Inc()
	s.attempts.Observe(float64(ev.Attempts))
	return nil
}

// RecordAnalysisError counts a failed analysis.
func (s *PromSink) RecordAnalysisError(coremetrics.AnalysisErrorEvent) error {
	s.errors.Inc()
	return nil
}
