package analysis

import (
	"fmt"
	"math"

	"github.com/kilianp07/rtsa/core/model"
)

// ServerBound is the maximum utilization of an aperiodic server that keeps the
// periodic tasks schedulable, according to the Liu-style and hyperbolic forms
// of the same sufficient test.
type ServerBound struct {
	Liu        float64 `json:"liu"`
	Hyperbolic float64 `json:"hyperbolic"`
}

// Best returns the least pessimistic of both bounds.
func (b ServerBound) Best() float64 {
	return math.Max(b.Liu, b.Hyperbolic)
}

// ServerCapacity is the budget a server of the given period may receive.
type ServerCapacity struct {
	Period int64 `json:"period"`
	// Exact is min_i K_i / ceil(T_i / Period).
	Exact float64 `json:"exact"`
	// Polling and Deferrable are the capacities allowed by the closed-form
	// utilization bounds.
	Polling    float64 `json:"polling"`
	Deferrable float64 `json:"deferrable"`
}

// PollingServerBound returns the maximum polling server utilization:
// U_p <= n((2/(U_s+1))^(1/n) - 1) and prod(U_i+1) <= 2/(U_s+1).
func PollingServerBound(ts model.TaskSet) ServerBound {
	if len(ts) == 0 {
		return ServerBound{}
	}
	n := float64(len(ts))
	k := math.Pow(Utilization(ts)/n+1, n)
	p := hyperbolicProduct(ts)
	return ServerBound{
		Liu:        clampPositive(2/k - 1),
		Hyperbolic: clampPositive(2/p - 1),
	}
}

// DeferrableServerBound returns the maximum deferrable server utilization:
// U_p <= n(((U_s+2)/(2U_s+1))^(1/n) - 1) and prod(U_i+1) <= (U_s+2)/(2U_s+1).
func DeferrableServerBound(ts model.TaskSet) ServerBound {
	if len(ts) == 0 {
		return ServerBound{}
	}
	n := float64(len(ts))
	k := math.Pow(Utilization(ts)/n+1, n)
	p := hyperbolicProduct(ts)
	return ServerBound{
		Liu:        clampPositive((2 - k) / (2*k - 1)),
		Hyperbolic: clampPositive((2 - p) / (2*p - 1)),
	}
}

func clampPositive(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// ServerCapacities derives the server capacity for every period in periods.
// ks must come from MaxDelays on the same set. An empty periods slice uses the
// distinct task periods.
func ServerCapacities(ts model.TaskSet, ks []int64, periods []int64) ([]ServerCapacity, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	if len(ks) != len(ts) {
		return nil, fmt.Errorf("%w: %d delays for %d tasks", ErrResultMismatch, len(ks), len(ts))
	}
	if len(periods) == 0 {
		periods = ts.Periods()
	}
	ps := PollingServerBound(ts).Best()
	ds := DeferrableServerBound(ts).Best()

	out := make([]ServerCapacity, 0, len(periods))
	for _, tds := range periods {
		if tds <= 0 {
			return nil, fmt.Errorf("server period must be positive, got %d", tds)
		}
		exact := math.Inf(1)
		for i, t := range ts {
			c := float64(ks[i]) / float64(ceilDiv(t.T, tds))
			exact = math.Min(exact, c)
		}
		out = append(out, ServerCapacity{
			Period:     tds,
			Exact:      exact,
			Polling:    ps * float64(tds),
			Deferrable: ds * float64(tds),
		})
	}
	return out, nil
}
