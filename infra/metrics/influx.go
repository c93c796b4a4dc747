package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/rtsa/core/metrics"
	"github.com/kilianp07/rtsa/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket receiving analysis points.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes analysis events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordAnalysis writes one "taskset_analysis" point and one "task_response"
// point per task.
func (s *InfluxSink) RecordAnalysis(ev coremetrics.AnalysisEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ts := eventTime(ev.Time)
	p := write.NewPointWithMeasurement("taskset_analysis").
		AddTag("report_id", ev.ReportID).
		AddTag("name", ev.Name).
		AddTag("method", ev.Method).
		AddTag("schedulable", strconv.FormatBool(ev.Schedulable)).
		AddField("tasks", len(ev.Tasks)).
		AddField("utilization", round6(ev.Utilization)).
		AddField("liu_holds", ev.LiuHolds).
		AddField("bini_holds", ev.BiniHolds).
		AddField("iterations", ev.Iterations).
		AddField("ceilings", ev.Ceilings).
		AddField("duration_us", ev.Duration.Microseconds()).
		SetTime(ts)
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return err
	}
	for _, t := range ev.Tasks {
		tp := write.NewPointWithMeasurement("task_response").
			AddTag("report_id", ev.ReportID).
			AddTag("task", strconv.Itoa(t.Index)).
			AddField("c", t.C).
			AddField("t", t.T).
			AddField("d", t.D).
			AddField("r", t.R).
			AddField("k", t.K).
			SetTime(ts)
		if err := s.writeAPI.WritePoint(ctx, tp); err != nil {
			return err
		}
	}
	return nil
}

// RecordGeneration writes a "taskset_generation" point.
func (s *InfluxSink) RecordGeneration(ev coremetrics.GenerationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("taskset_generation").
		AddTag("found", strconv.FormatBool(ev.Found)).
		AddField("tasks", ev.Tasks).
		AddField("target_utilization", round6(ev.TargetUtilization)).
		AddField("attempts", ev.Attempts).
		SetTime(eventTime(ev.Time))
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAnalysisError writes an "analysis_error" point.
func (s *InfluxSink) RecordAnalysisError(ev coremetrics.AnalysisErrorEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("analysis_error").
		AddTag("name", ev.Name).
		AddField("error", ev.Error).
		SetTime(eventTime(ev.Time))
	return s.writeAPI.WritePoint(ctx, p)
}

func eventTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}
