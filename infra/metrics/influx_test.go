package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/rtsa/core/metrics"
)

type lineRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (l *lineRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		l.mu.Lock()
		l.bodies = append(l.bodies, strings.TrimSpace(string(b)))
		l.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func lineProtocol(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordAnalysis(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.AnalysisEvent{
		ReportID:    "r1",
		Name:        "light",
		Method:      "rta",
		Schedulable: true,
		Utilization: 0.75,
		LiuHolds:    true,
		BiniHolds:   true,
		Iterations:  2,
		Ceilings:    3,
		Duration:    15 * time.Microsecond,
		Time:        now,
		Tasks:       []coremetrics.TaskResult{{Index: 0, C: 1, T: 3, D: 3, R: 1, K: 2}},
	}
	if err := sink.RecordAnalysis(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("taskset_analysis").
		AddTag("report_id", "r1").
		AddTag("name", "light").
		AddTag("method", "rta").
		AddTag("schedulable", "true").
		AddField("tasks", 1).
		AddField("utilization", 0.75).
		AddField("liu_holds", true).
		AddField("bini_holds", true).
		AddField("iterations", 2).
		AddField("ceilings", 3).
		AddField("duration_us", int64(15)).
		SetTime(now)
	p2 := write.NewPointWithMeasurement("task_response").
		AddTag("report_id", "r1").
		AddTag("task", "0").
		AddField("c", int64(1)).
		AddField("t", int64(3)).
		AddField("d", int64(3)).
		AddField("r", int64(1)).
		AddField("k", int64(2)).
		SetTime(now)
	if len(rec.bodies) != 2 || rec.bodies[0] != lineProtocol(p) || rec.bodies[1] != lineProtocol(p2) {
		t.Errorf("unexpected bodies: %#v", rec.bodies)
	}
}

func TestInfluxSink_RecordGeneration(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "token", Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordGeneration(coremetrics.GenerationEvent{Tasks: 4, TargetUtilization: 0.8, Attempts: 3, Found: true, Time: now}); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("taskset_generation").
		AddTag("found", "true").
		AddField("tasks", 4).
		AddField("target_utilization", 0.8).
		AddField("attempts", 3).
		SetTime(now)
	if len(rec.bodies) != 1 || rec.bodies[0] != lineProtocol(p) {
		t.Errorf("bodies: %#v", rec.bodies)
	}
}

func TestInfluxSink_RecordAnalysisError(t *testing.T) {
	rec := &lineRecorder{}
	srv := rec.server(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "bucket"})
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordAnalysisError(coremetrics.AnalysisErrorEvent{Name: "bad", Error: "empty task set", Time: now}); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("analysis_error").
		AddTag("name", "bad").
		AddField("error", "empty task set").
		SetTime(now)
	if len(rec.bodies) != 1 || rec.bodies[0] != lineProtocol(p) {
		t.Errorf("bodies: %#v", rec.bodies)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
