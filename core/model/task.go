package model

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"
)

// Task is a periodic task of a fixed-priority task set. Times are expressed in
// abstract integer time units.
type Task struct {
	// C is the worst-case execution time.
	C int64 `json:"c" yaml:"c"`
	// T is the period. Shorter periods mean higher rate-monotonic priority.
	T int64 `json:"t" yaml:"t"`
	// D is the relative deadline. Zero on input means "same as the period".
	D int64 `json:"d,omitempty" yaml:"d,omitempty"`

	// R is the worst-case response time once computed.
	R int64 `json:"r,omitempty" yaml:"r,omitempty"`
	// K is the maximum critical-instant delay once computed.
	K int64 `json:"k,omitempty" yaml:"k,omitempty"`
}

// Utilization returns C/T.
func (t Task) Utilization() float64 {
	return float64(t.C) / float64(t.T)
}

// TaskSet is an ordered sequence of tasks. Index 0 is the highest priority.
type TaskSet []Task

// ErrInvalidTaskSet is wrapped by every ValidationError.
var ErrInvalidTaskSet = errors.New("invalid task set")

// ValidationError describes why a task set was rejected.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid task set: %s", e.Reason)
	}
	return fmt.Sprintf("invalid task set: task %d: %s %s", e.Index, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidTaskSet }

// Clone returns a deep copy of the task set.
func (ts TaskSet) Clone() TaskSet {
	if ts == nil {
		return nil
	}
	out := make(TaskSet, len(ts))
	copy(out, ts)
	return out
}

// Normalize returns a copy where missing deadlines default to the period and
// derived fields are cleared.
func (ts TaskSet) Normalize() TaskSet {
	out := ts.Clone()
	for i := range out {
		if out[i].D == 0 {
			out[i].D = out[i].T
		}
		out[i].R = 0
		out[i].K = 0
	}
	return out
}

// SortRateMonotonic orders the tasks by non-decreasing period. The sort is
// stable so tasks sharing a period keep their relative order.
func (ts TaskSet) SortRateMonotonic() {
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].T < ts[j].T })
}

// Validate checks the structural invariants the analysis relies on. A task
// whose execution time exceeds its deadline is accepted: that set is simply
// not schedulable.
func (ts TaskSet) Validate() error {
	if len(ts) == 0 {
		return &ValidationError{Index: -1, Reason: "empty task set"}
	}
	for i, t := range ts {
		switch {
		case t.C <= 0:
			return &ValidationError{Index: i, Field: "c", Reason: fmt.Sprintf("must be positive, got %d", t.C)}
		case t.T <= 0:
			return &ValidationError{Index: i, Field: "t", Reason: fmt.Sprintf("must be positive, got %d", t.T)}
		case t.D <= 0:
			return &ValidationError{Index: i, Field: "d", Reason: fmt.Sprintf("must be positive, got %d", t.D)}
		case t.D > t.T:
			return &ValidationError{Index: i, Field: "d", Reason: fmt.Sprintf("%d exceeds period %d", t.D, t.T)}
		}
		if i > 0 && t.T < ts[i-1].T {
			return &ValidationError{Index: i, Field: "t", Reason: fmt.Sprintf("%d breaks rate-monotonic order (previous %d)", t.T, ts[i-1].T)}
		}
	}
	return nil
}

// Periods returns the distinct periods in ascending order.
func (ts TaskSet) Periods() []int64 {
	out := make([]int64, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.T)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return dedup(out)
}

// Hyperperiod returns the least common multiple of the periods. The boolean is
// false when the value overflows int64.
func (ts TaskSet) Hyperperiod() (int64, bool) {
	h := uint64(1)
	for _, t := range ts {
		if t.T <= 0 {
			return 0, false
		}
		p := uint64(t.T)
		g := gcd(h, p)
		hi, lo := bits.Mul64(h/g, p)
		if hi != 0 || lo > 1<<63-1 {
			return 0, false
		}
		h = lo
	}
	return int64(h), true
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func dedup(s []int64) []int64 {
	if len(s) < 2 {
		return s
	}
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
