package metrics

import (
	"errors"
	"testing"
)

type recordingSink struct {
	analyses    int
	generations int
	errs        int
	closed      bool
	fail        error
}

func (r *recordingSink) RecordAnalysis(AnalysisEvent) error {
	r.analyses++
	return r.fail
}

func (r *recordingSink) RecordGeneration(GenerationEvent) error {
	r.generations++
	return nil
}

func (r *recordingSink) RecordAnalysisError(AnalysisErrorEvent) error {
	r.errs++
	return nil
}

func (r *recordingSink) Close() { r.closed = true }

type analysisOnly struct{ n int }

func (a *analysisOnly) RecordAnalysis(AnalysisEvent) error {
	a.n++
	return nil
}

func TestMultiSinkForwards(t *testing.T) {
	full := &recordingSink{}
	basic := &analysisOnly{}
	m := NewMultiSink(full, basic)

	if err := m.RecordAnalysis(AnalysisEvent{}); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordGeneration(GenerationEvent{}); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordAnalysisError(AnalysisErrorEvent{}); err != nil {
		t.Fatal(err)
	}
	if full.analyses != 1 || full.generations != 1 || full.errs != 1 {
		t.Fatalf("unexpected counts %+v", full)
	}
	if basic.n != 1 {
		t.Fatalf("basic sink got %d analyses", basic.n)
	}

	CloseSink(m)
	if !full.closed {
		t.Fatal("inner sink not closed")
	}
}

func TestMultiSinkStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	first := &recordingSink{fail: boom}
	second := &recordingSink{}
	err := NewMultiSink(first, second).RecordAnalysis(AnalysisEvent{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if second.analyses != 0 {
		t.Fatal("second sink should not be reached")
	}
}

func TestCloseSinkIgnoresPlainSinks(t *testing.T) {
	CloseSink(NopSink{})
	CloseSink(&analysisOnly{})
}
