package analysis

import (
	"fmt"
	"runtime"

	"github.com/kilianp07/rtsa/core/model"
)

// Config defines analysis settings loaded from configuration.
type Config struct {
	// Method is one of "rta", "joseph" or "incremental".
	Method string `json:"method" yaml:"method"`
	// MaxIterations bounds every fixed-point search.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
	// SeedDelays starts the delay searches from R(i)+k.
	SeedDelays bool `json:"seed_delays" yaml:"seed_delays"`
	// ServerPeriods lists the server periods to size. Empty means every
	// distinct task period.
	ServerPeriods []int64 `json:"server_periods" yaml:"server_periods"`
	// Steps keeps the iterates of every response-time search in the report.
	Steps bool `json:"steps" yaml:"steps"`
	// Workers bounds concurrent analyses in Analyzer.AnalyzeAll.
	Workers int `json:"workers" yaml:"workers"`
}

// SetDefaults applies fallback values for optional fields.
func (c *Config) SetDefaults() {
	if c.Method == "" {
		c.Method = string(MethodRTA)
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if _, err := ParseMethod(c.Method); err != nil {
		return err
	}
	for _, p := range c.ServerPeriods {
		if p <= 0 {
			return fmt.Errorf("server period must be positive, got %d", p)
		}
	}
	return nil
}

func (c Config) options() []Option {
	m, _ := ParseMethod(c.Method)
	return []Option{
		WithMethod(m),
		WithMaxIterations(c.MaxIterations),
		WithDelaySeed(c.SeedDelays),
		WithSteps(c.Steps),
	}
}

// Report bundles every result computed for one task set. It is plain data:
// rendering it is left to the caller.
type Report struct {
	ID    string        `json:"id,omitempty"`
	Name  string        `json:"name,omitempty"`
	Tasks model.TaskSet `json:"tasks"`

	Hyperperiod int64            `json:"hyperperiod,omitempty"`
	Utilization float64          `json:"utilization"`
	Liu         BoundResult      `json:"liu"`
	Bini        BoundResult      `json:"bini"`
	EDF         bool             `json:"edf"`
	RoundRobin  RoundRobinResult `json:"round_robin"`

	Method        Method    `json:"method"`
	Schedulable   bool      `json:"schedulable"`
	FailedTask    int       `json:"failed_task"`
	ResponseTimes []int64   `json:"response_times"`
	Iterations    []int     `json:"iterations"`
	Ceilings      []int     `json:"ceilings"`
	Steps         [][]int64 `json:"steps,omitempty"`

	KValues          []int64          `json:"k_values,omitempty"`
	IdlePoints       []int64          `json:"idle_points,omitempty"`
	Servers          []ServerCapacity `json:"server_capacities,omitempty"`
	PollingServer    ServerBound      `json:"polling_server"`
	DeferrableServer ServerBound      `json:"deferrable_server"`
}

// TotalIterations sums the fixed-point iterations of the response-time analysis.
func (r Report) TotalIterations() int {
	n := 0
	for _, it := range r.Iterations {
		n += it
	}
	return n
}

// TotalCeilings sums the ceiling evaluations of the response-time analysis.
func (r Report) TotalCeilings() int {
	n := 0
	for _, c := range r.Ceilings {
		n += c
	}
	return n
}

// Analyze runs the complete analysis of one task set. Missing deadlines
// default to the period. The input is never modified; Report.Tasks is an
// annotated copy.
//
// Delays and server capacities are only computed for schedulable sets, idle
// points only when U < 1.
func Analyze(ts model.TaskSet, cfg Config) (Report, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	opts := cfg.options()

	ts = ts.Normalize()
	if err := ts.Validate(); err != nil {
		return Report{}, err
	}

	rep := Report{
		Tasks:            ts,
		Utilization:      Utilization(ts),
		Liu:              LiuBound(ts),
		Bini:             BiniBound(ts),
		EDF:              EDFFeasible(ts),
		RoundRobin:       RoundRobinBound(ts),
		PollingServer:    PollingServerBound(ts),
		DeferrableServer: DeferrableServerBound(ts),
	}
	if h, ok := ts.Hyperperiod(); ok {
		rep.Hyperperiod = h
	}

	wcrt, err := ResponseTimes(ts, opts...)
	if err != nil {
		return rep, fmt.Errorf("response times: %w", err)
	}
	rep.Method = wcrt.Method
	rep.Schedulable = wcrt.Schedulable
	rep.FailedTask = wcrt.FailedTask
	rep.ResponseTimes = wcrt.ResponseTimes
	rep.Iterations = wcrt.Iterations
	rep.Ceilings = wcrt.Ceilings
	rep.Steps = wcrt.Steps

	var seeds []int64
	if wcrt.Schedulable {
		seeds = wcrt.ResponseTimes
		for i := range rep.Tasks {
			rep.Tasks[i].R = wcrt.ResponseTimes[i]
		}
		ks, err := MaxDelays(ts, wcrt, opts...)
		if err != nil {
			return rep, fmt.Errorf("max delays: %w", err)
		}
		rep.KValues = ks
		for i := range rep.Tasks {
			rep.Tasks[i].K = ks[i]
		}
		servers, err := ServerCapacities(ts, ks, cfg.ServerPeriods)
		if err != nil {
			return rep, fmt.Errorf("server capacities: %w", err)
		}
		rep.Servers = servers
	}

	if !saturated(ts) {
		idle, err := IdlePoints(ts, seeds, opts...)
		if err != nil {
			return rep, fmt.Errorf("idle points: %w", err)
		}
		rep.IdlePoints = idle
	}
	return rep, nil
}
