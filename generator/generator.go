// Package generator samples random rate-monotonic task sets: UUniFast-discard
// utilizations, uniform integer periods and implicit deadlines.
package generator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/rtsa/core/analysis"
	corelogger "github.com/kilianp07/rtsa/core/logger"
	coremetrics "github.com/kilianp07/rtsa/core/metrics"
	"github.com/kilianp07/rtsa/core/model"
)

const (
	// RoundCeil rounds C = u*T up, like the batch generator scripts.
	RoundCeil = "ceil"
	// RoundNearest rounds C = u*T to the nearest integer.
	RoundNearest = "round"

	defaultMaxAttempts = 1000
	maxDiscards        = 10000
)

// ErrNoSchedulableSet is returned when every attempt produced an
// unschedulable set.
var ErrNoSchedulableSet = errors.New("no schedulable task set found")

// Config defines generator settings.
type Config struct {
	// Seed makes the sequence reproducible. Zero seeds from the clock.
	Seed int64 `json:"seed" yaml:"seed"`
	// MaxAttempts bounds GenerateSchedulable.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
	// Rounding is "ceil" or "round". C never drops below 1.
	Rounding string `json:"rounding" yaml:"rounding"`
}

// SetDefaults applies fallback values for optional fields.
func (c *Config) SetDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.Rounding == "" {
		c.Rounding = RoundCeil
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.Rounding != RoundCeil && c.Rounding != RoundNearest {
		return fmt.Errorf("generator: unknown rounding %q", c.Rounding)
	}
	return nil
}

// ValidateSpec checks the parameters of one generated set.
func ValidateSpec(s model.GenerateSpec) error {
	switch {
	case s.Tasks <= 0:
		return fmt.Errorf("generator: tasks must be positive, got %d", s.Tasks)
	case s.Utilization <= 0 || s.Utilization > float64(s.Tasks):
		return fmt.Errorf("generator: utilization %.3f out of (0, %d]", s.Utilization, s.Tasks)
	case s.MinPeriod <= 0:
		return fmt.Errorf("generator: min period must be positive, got %d", s.MinPeriod)
	case s.MaxPeriod < s.MinPeriod:
		return fmt.Errorf("generator: max period %d below min period %d", s.MaxPeriod, s.MinPeriod)
	}
	return nil
}

var (
	tasksetsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rtsa_generator_tasksets_total",
		Help: "Task sets sampled by the generator",
	}, []string{"schedulable"})
	discardsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rtsa_generator_uunifast_discards_total",
		Help: "UUniFast vectors discarded because one utilization exceeded 1",
	})
	lastUtilization = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rtsa_generator_last_utilization",
		Help: "Utilization of the last generated task set after rounding",
	})
)

func init() {
	prometheus.MustRegister(tasksetsTotal, discardsTotal, lastUtilization)
}

// Generator draws task sets from a seeded source. It is safe for concurrent use.
type Generator struct {
	cfg  Config
	sink coremetrics.GenerationRecorder
	log  corelogger.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// New creates a new Generator. sink and log may be nil.
func New(cfg Config, sink coremetrics.GenerationRecorder, log corelogger.Logger) (*Generator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{cfg: cfg, sink: sink, log: log, rand: rand.New(rand.NewSource(seed))}, nil
}

// UUniFastDiscard returns n utilizations summing to u, each at most 1.
func (g *Generator) UUniFastDiscard(n int, u float64) ([]float64, error) {
	if n <= 0 || u <= 0 || u > float64(n) {
		return nil, fmt.Errorf("generator: cannot split %.3f over %d tasks", u, n)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for try := 0; try < maxDiscards; try++ {
		out := g.uunifast(n, u)
		if floats.Max(out) <= 1 {
			return out, nil
		}
		discardsTotal.Inc()
	}
	return nil, fmt.Errorf("generator: no valid utilization vector for n=%d u=%.3f", n, u)
}

func (g *Generator) uunifast(n int, u float64) []float64 {
	out := make([]float64, n)
	sum := u
	for i := 0; i < n-1; i++ {
		next := sum * math.Pow(g.rand.Float64(), 1/float64(n-i-1))
		out[i] = sum - next
		sum = next
	}
	out[n-1] = sum
	return out
}

// Periods returns n periods drawn uniformly from [min, max].
func (g *Generator) Periods(n int, min, max int64) []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int64, n)
	for i := range out {
		out[i] = min + g.rand.Int63n(max-min+1)
	}
	return out
}

// Generate samples one task set in rate-monotonic order with D = T. The
// rounded utilization may differ slightly from spec.Utilization.
func (g *Generator) Generate(spec model.GenerateSpec) (model.TaskSet, error) {
	if err := ValidateSpec(spec); err != nil {
		return nil, err
	}
	us, err := g.UUniFastDiscard(spec.Tasks, spec.Utilization)
	if err != nil {
		return nil, err
	}
	periods := g.Periods(spec.Tasks, spec.MinPeriod, spec.MaxPeriod)
	ts := make(model.TaskSet, spec.Tasks)
	for i := range ts {
		t := periods[i]
		c := g.round(us[i] * float64(t))
		if c < 1 {
			c = 1
		}
		if c > t {
			c = t
		}
		ts[i] = model.Task{C: c, T: t, D: t}
	}
	ts.SortRateMonotonic()
	return ts, nil
}

func (g *Generator) round(v float64) int64 {
	if g.cfg.Rounding == RoundNearest {
		return int64(math.Round(v))
	}
	// absorb float noise such as 2.0000000000000004
	return int64(math.Ceil(v - 1e-9))
}

// GenerateSchedulable resamples until check accepts the set or MaxAttempts is
// reached. A nil check uses analysis.IsSchedulable. The number of attempts is
// returned with the set.
func (g *Generator) GenerateSchedulable(ctx context.Context, spec model.GenerateSpec, check func(model.TaskSet) bool) (model.TaskSet, int, error) {
	if check == nil {
		check = analysis.IsSchedulable
	}
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt - 1, err
		}
		ts, err := g.Generate(spec)
		if err != nil {
			return nil, attempt, err
		}
		ok := check(ts)
		tasksetsTotal.WithLabelValues(fmt.Sprint(ok)).Inc()
		if ok {
			lastUtilization.Set(analysis.Utilization(ts))
			g.record(spec, attempt, true)
			if g.log != nil {
				g.log.Debugf("generated schedulable set of %d tasks after %d attempts", spec.Tasks, attempt)
			}
			return ts, attempt, nil
		}
	}
	g.record(spec, g.cfg.MaxAttempts, false)
	if g.log != nil {
		g.log.Warnf("no schedulable set for %+v after %d attempts", spec, g.cfg.MaxAttempts)
	}
	return nil, g.cfg.MaxAttempts, fmt.Errorf("%w after %d attempts", ErrNoSchedulableSet, g.cfg.MaxAttempts)
}

func (g *Generator) record(spec model.GenerateSpec, attempts int, found bool) {
	if g.sink == nil {
		return
	}
	ev := coremetrics.GenerationEvent{
		Tasks:             spec.Tasks,
		TargetUtilization: spec.Utilization,
		Attempts:          attempts,
		Found:             found,
		Time:              time.Now(),
	}
	if err := g.sink.RecordGeneration(ev); err != nil && g.log != nil {
		g.log.Warnf("record generation: %v", err)
	}
}
