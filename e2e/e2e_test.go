package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/rtsa/app"
	"github.com/kilianp07/rtsa/config"
	"github.com/kilianp07/rtsa/core/analysis"
	"github.com/kilianp07/rtsa/core/factory"
	"github.com/kilianp07/rtsa/core/model"
)

const (
	influxOrg    = "e2e_org"
	influxBucket = "e2e_bucket"
	influxToken  = "e2e-token"
)

// junitReport is a minimal representation of a JUnit XML report. The E2E
// suite writes such a report so CI systems can display the results.
type junitReport struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Time    float64 `xml:"time,attr"`
}

// writeJUnit writes the provided report to the given path.
func writeJUnit(path string, rep junitReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	return enc.Encode(rep)
}

// startInflux starts an InfluxDB 2.7 container initialized with the E2E
// organisation, bucket and token, and returns its base URL.
func startInflux(ctx context.Context, t *testing.T) string {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "e2e",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "e2e-password",
			"DOCKER_INFLUXDB_INIT_ORG":         influxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      influxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": influxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "8086")
	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

// startMosquitto spins up a Mosquitto broker accepting anonymous clients.
func startMosquitto(ctx context.Context, t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mosquitto.conf")
	if err := os.WriteFile(path, []byte("listener 1883\nallow_anonymous true\n"), 0o644); err != nil {
		t.Fatalf("write conf: %v", err)
	}
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "1883")
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// Test_E2E_Batch runs a complete batch with the influx and mqtt sinks wired to
// real services and checks that every analysis reached both of them.
func Test_E2E_Batch(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	start := time.Now()

	influxURL := startInflux(ctx, t)
	broker := startMosquitto(ctx, t)
	t.Logf("InfluxDB started at %s", influxURL)
	t.Logf("Mosquitto started at %s", broker)

	var received atomic.Int32
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("e2e-watcher"))
	if tok := sub.Connect(); tok.WaitTimeout(10*time.Second) && tok.Error() != nil {
		t.Skipf("mosquitto not ready: %v", tok.Error())
	}
	defer sub.Disconnect(100)
	if tok := sub.Subscribe("e2e/analysis/+", 1, func(paho.Client, paho.Message) { received.Add(1) }); tok.WaitTimeout(5*time.Second) && tok.Error() != nil {
		t.Fatalf("subscribe: %v", tok.Error())
	}

	const sets = 3
	cfg := &config.Config{}
	cfg.Generator.Seed = 1
	cfg.Batch.SetsPerProfile = sets
	cfg.Batch.Profiles = []model.GenerateSpec{{Tasks: 4, Utilization: 0.7, MinPeriod: 5, MaxPeriod: 40}}
	cfg.Metrics.Sinks = []factory.ModuleConfig{
		{Type: "influx", Conf: map[string]any{"url": influxURL, "token": influxToken, "org": influxOrg, "bucket": influxBucket}},
		{Type: "mqtt", Conf: map[string]any{"broker": broker, "topic": "e2e", "qos": 1}},
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	svc, err := app.New(cfg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer svc.Close()
	var out bytes.Buffer
	svc.SetOutput(&out)
	sum, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if sum.Sets != sets {
		t.Fatalf("expected %d analyzed sets, got %d", sets, sum.Sets)
	}
	var reports []analysis.Report
	if err := json.Unmarshal(out.Bytes(), &reports); err != nil {
		t.Fatalf("decode reports: %v", err)
	}
	if len(reports) != sets {
		t.Fatalf("expected %d exported reports, got %d", sets, len(reports))
	}

	deadline := time.Now().Add(10 * time.Second)
	for received.Load() < sets && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	if n := received.Load(); n != sets {
		t.Errorf("expected %d mqtt analysis messages, got %d", sets, n)
	}

	cli := NewInfluxClient(influxURL, influxOrg, influxBucket, influxToken)
	defer cli.Close()
	n, err := cli.CountField(ctx, "taskset_analysis", "utilization")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != sets {
		t.Errorf("expected %d taskset_analysis points, got %d", sets, n)
	}
	rows, err := cli.CountField(ctx, "task_response", "r")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if rows != sets*4 {
		t.Errorf("expected %d task_response points, got %d", sets*4, rows)
	}

	rep := junitReport{Name: "e2e", Tests: 1, Cases: []junitTestCase{{Name: "Test_E2E_Batch", Time: time.Since(start).Seconds()}}}
	if t.Failed() {
		msg := "batch results missing from sinks"
		rep.Failures = 1
		rep.Cases[0].Failure = &msg
	}
	if err := writeJUnit(filepath.Join(t.TempDir(), "e2e.xml"), rep); err != nil {
		t.Logf("write junit: %v", err)
	}
}
