package metrics

import "time"

// TaskResult is the per-task part of an analysis event.
type TaskResult struct {
	Index int   `json:"index"`
	C     int64 `json:"c"`
	T     int64 `json:"t"`
	D     int64 `json:"d"`
	R     int64 `json:"r"`
	K     int64 `json:"k"`
}

// AnalysisEvent summarizes one completed task-set analysis.
type AnalysisEvent struct {
	ReportID    string        `json:"report_id"`
	Name        string        `json:"name"`
	Method      string        `json:"method"`
	Tasks       []TaskResult  `json:"tasks"`
	Utilization float64       `json:"utilization"`
	Schedulable bool          `json:"schedulable"`
	LiuHolds    bool          `json:"liu_holds"`
	BiniHolds   bool          `json:"bini_holds"`
	Iterations  int           `json:"iterations"`
	Ceilings    int           `json:"ceilings"`
	Duration    time.Duration `json:"duration"`
	Time        time.Time     `json:"time"`
}

// MetricsSink records analysis results for observability purposes.
type MetricsSink interface {
	RecordAnalysis(ev AnalysisEvent) error
}

// GenerationEvent captures one search for a schedulable random task set.
type GenerationEvent struct {
	Tasks             int       `json:"tasks"`
	TargetUtilization float64   `json:"target_utilization"`
	Attempts          int       `json:"attempts"`
	Found             bool      `json:"found"`
	Time              time.Time `json:"time"`
}

// GenerationRecorder records task-set generation events.
type GenerationRecorder interface {
	RecordGeneration(ev GenerationEvent) error
}

// AnalysisErrorEvent records an analysis rejected with an error.
type AnalysisErrorEvent struct {
	Name  string    `json:"name"`
	Error string    `json:"error"`
	Time  time.Time `json:"time"`
}

// AnalysisErrorRecorder records failed analyses.
type AnalysisErrorRecorder interface {
	RecordAnalysisError(ev AnalysisErrorEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordAnalysis(AnalysisEvent) error           { return nil }
func (NopSink) RecordGeneration(GenerationEvent) error       { return nil }
func (NopSink) RecordAnalysisError(AnalysisErrorEvent) error { return nil }

// MultiSink fans out events to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAnalysis forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordAnalysis(ev AnalysisEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordAnalysis(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordGeneration forwards generation events to sinks supporting them.
func (m *MultiSink) RecordGeneration(ev GenerationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(GenerationRecorder); ok {
			if err := rec.RecordGeneration(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordAnalysisError forwards error events to sinks supporting them.
func (m *MultiSink) RecordAnalysisError(ev AnalysisErrorEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(AnalysisErrorRecorder); ok {
			if err := rec.RecordAnalysisError(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every inner sink that holds resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		CloseSink(s)
	}
}

// CloseSink closes s when it holds resources such as a broker or database
// connection.
func CloseSink(s MetricsSink) {
	if c, ok := s.(interface{ Close() }); ok {
		c.Close()
	}
}
