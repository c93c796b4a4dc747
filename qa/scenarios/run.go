package scenarios

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/rtsa/core/analysis"
	coremetrics "github.com/kilianp07/rtsa/core/metrics"
	"github.com/kilianp07/rtsa/core/model"
	"github.com/kilianp07/rtsa/infra/logger"
	"github.com/kilianp07/rtsa/infra/metrics"
	"github.com/kilianp07/rtsa/internal/eventbus"
)

// RunScenario analyzes the scenario with every method and checks the results
// against its expectations. The full analysis goes through an Analyzer wired
// to a Prometheus sink and an event bus, the same way the batch service runs.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	ts := sc.TaskSet().Normalize()

	var reference analysis.WCRTResult
	for i, m := range analysis.Methods() {
		res, err := analysis.ResponseTimes(ts, analysis.WithMethod(m))
		if err != nil {
			t.Fatalf("%s: %v", m, err)
		}
		if res.Schedulable != sc.Expected.Schedulable {
			t.Errorf("%s: schedulable = %v, want %v", m, res.Schedulable, sc.Expected.Schedulable)
		}
		if m == analysis.MethodRTA && len(sc.Expected.ResponseTimes) > 0 &&
			!slices.Equal(res.ResponseTimes, sc.Expected.ResponseTimes) {
			t.Errorf("%s: response times = %v, want %v", m, res.ResponseTimes, sc.Expected.ResponseTimes)
		}
		if i == 0 {
			reference = res
			continue
		}
		// Past the failing task the iterate depends on the starting point.
		upto := len(ts)
		if !res.Schedulable {
			upto = res.FailedTask
		}
		if res.FailedTask != reference.FailedTask ||
			!slices.Equal(res.ResponseTimes[:upto], reference.ResponseTimes[:upto]) {
			t.Errorf("%s disagrees with %s: %v vs %v", m, reference.Method, res.ResponseTimes, reference.ResponseTimes)
		}
	}

	if sc.Expected.Schedulable && len(sc.Expected.KValues) > 0 {
		for _, seed := range []bool{false, true} {
			ks, err := analysis.MaxDelays(ts, reference, analysis.WithDelaySeed(seed))
			if err != nil {
				t.Fatalf("delays (seed=%v): %v", seed, err)
			}
			if !slices.Equal(ks, sc.Expected.KValues) {
				t.Errorf("delays (seed=%v) = %v, want %v", seed, ks, sc.Expected.KValues)
			}
		}
	}

	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	bus := eventbus.NewTyped[coremetrics.AnalysisEvent]()
	defer bus.Close()
	events := bus.Subscribe()

	an, err := analysis.NewAnalyzer(analysis.Config{}, sink, bus, logger.NopLogger{})
	if err != nil {
		t.Fatalf("analyzer: %v", err)
	}
	rep, err := an.Analyze(sc.Name, ts)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if math.Abs(rep.Utilization-sc.Expected.Utilization) > 1e-6 {
		t.Errorf("utilization = %f, want %f", rep.Utilization, sc.Expected.Utilization)
	}
	if len(sc.Expected.KValues) > 0 && !slices.Equal(rep.KValues, sc.Expected.KValues) {
		t.Errorf("report delays = %v, want %v", rep.KValues, sc.Expected.KValues)
	}
	if len(sc.Expected.IdlePoints) > 0 && !slices.Equal(rep.IdlePoints, sc.Expected.IdlePoints) {
		t.Errorf("report idle points = %v, want %v", rep.IdlePoints, sc.Expected.IdlePoints)
	}
	// The utilization bounds only apply to implicit deadlines.
	if implicitDeadlines(ts) {
		if rep.Liu.Holds && !rep.Schedulable {
			t.Errorf("Liu bound holds for an unschedulable set")
		}
		if rep.Bini.Holds && !rep.Schedulable {
			t.Errorf("hyperbolic bound holds for an unschedulable set")
		}
	}
	if rep.Utilization >= 1 {
		if _, err := analysis.IdlePoints(ts, nil); !errors.Is(err, analysis.ErrSaturated) {
			t.Errorf("idle points at U >= 1: err = %v, want ErrSaturated", err)
		}
	}

	select {
	case ev := <-events:
		if ev.ReportID != rep.ID || ev.Schedulable != rep.Schedulable {
			t.Errorf("published event %+v does not match report %s", ev, rep.ID)
		}
	default:
		t.Errorf("no analysis event published")
	}
	if n, err := testutil.GatherAndCount(reg, "rtsa_analyses_total"); err != nil || n != 1 {
		t.Errorf("rtsa_analyses_total series = %d (%v), want 1", n, err)
	}
}

func implicitDeadlines(ts model.TaskSet) bool {
	for _, t := range ts {
		if t.D != t.T {
			return false
		}
	}
	return true
}
