package analysis

import (
	"math"
	"math/big"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/rtsa/core/model"
)

// BoundResult is the outcome of a closed-form schedulability test.
type BoundResult struct {
	Bound float64 `json:"bound"`
	Holds bool    `json:"holds"`
}

// RoundRobinResult is the outcome of the round-robin necessary condition.
type RoundRobinResult struct {
	Holds       bool  `json:"holds"`
	MinDeadline int64 `json:"min_deadline"`
	SumC        int64 `json:"sum_c"`
}

func utilizations(ts model.TaskSet) []float64 {
	u := make([]float64, len(ts))
	for i, t := range ts {
		u[i] = t.Utilization()
	}
	return u
}

// Utilization returns the processor utilization factor of the task set.
func Utilization(ts model.TaskSet) float64 {
	return floats.Sum(utilizations(ts))
}

// LiuBound evaluates the Liu & Layland bound n(2^(1/n)-1). It is sufficient,
// not necessary, for rate-monotonic schedulability.
func LiuBound(ts model.TaskSet) BoundResult {
	n := float64(len(ts))
	if n == 0 {
		return BoundResult{}
	}
	bound := n * (math.Pow(2, 1/n) - 1)
	return BoundResult{Bound: bound, Holds: Utilization(ts) <= bound}
}

// BiniBound evaluates the hyperbolic bound prod(U_i+1) <= 2.
func BiniBound(ts model.TaskSet) BoundResult {
	p := hyperbolicProduct(ts)
	return BoundResult{Bound: p, Holds: p <= 2}
}

func hyperbolicProduct(ts model.TaskSet) float64 {
	u := utilizations(ts)
	floats.AddConst(1, u)
	return floats.Prod(u)
}

// RoundRobinBound checks that the shortest deadline can absorb one execution of
// every task.
func RoundRobinBound(ts model.TaskSet) RoundRobinResult {
	res := RoundRobinResult{MinDeadline: math.MaxInt64}
	for _, t := range ts {
		if t.D < res.MinDeadline {
			res.MinDeadline = t.D
		}
		res.SumC += t.C
	}
	if len(ts) == 0 {
		res.MinDeadline = 0
	}
	res.Holds = res.MinDeadline >= res.SumC
	return res
}

// EDFFeasible reports whether U <= 1, the exact EDF test for implicit deadlines.
func EDFFeasible(ts model.TaskSet) bool {
	return exactUtilization(ts).Cmp(big.NewRat(1, 1)) <= 0
}

// saturated reports U >= 1 without floating-point rounding.
func saturated(ts model.TaskSet) bool {
	return exactUtilization(ts).Cmp(big.NewRat(1, 1)) >= 0
}

func exactUtilization(ts model.TaskSet) *big.Rat {
	sum := new(big.Rat)
	for _, t := range ts {
		sum.Add(sum, big.NewRat(t.C, t.T))
	}
	return sum
}
