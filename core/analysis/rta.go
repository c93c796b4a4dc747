package analysis

import (
	"fmt"

	"github.com/kilianp07/rtsa/core/model"
)

// WCRTResult holds the outcome of the response-time analysis.
//
// When the set is not schedulable, FailedTask is the index of the first task
// that missed its deadline, its ResponseTimes entry is the first iterate that
// exceeded the deadline, and lower-priority entries are left at zero.
type WCRTResult struct {
	Method        Method    `json:"method"`
	Schedulable   bool      `json:"schedulable"`
	FailedTask    int       `json:"failed_task"`
	ResponseTimes []int64   `json:"response_times"`
	Iterations    []int     `json:"iterations"`
	Ceilings      []int     `json:"ceilings"`
	Steps         [][]int64 `json:"steps,omitempty"`
}

// search is the outcome of one fixed-point search.
type search struct {
	value      int64
	converged  bool
	iterations int
	ceilings   int
	steps      []int64
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// directFixedPoint iterates r = base + sum(ceil(r/T_j)*C_j) over hp from start
// until r settles or exceeds limit. converged is false when the limit was
// exceeded, including a fixed point lying above it.
func directFixedPoint(hp model.TaskSet, base, start, limit int64, maxIter int, keepSteps bool) (search, error) {
	s := search{}
	r := start
	if keepSteps {
		s.steps = append(s.steps, r)
	}
	for {
		if s.iterations >= maxIter {
			return s, ErrIterationLimit
		}
		s.iterations++
		w := base
		for _, t := range hp {
			w += ceilDiv(r, t.T) * t.C
			s.ceilings++
		}
		if w < r {
			return s, fmt.Errorf("%w: %d after %d", ErrNotMonotone, w, r)
		}
		if w == r {
			s.value = r
			s.converged = r <= limit
			return s, nil
		}
		r = w
		if keepSteps {
			s.steps = append(s.steps, r)
		}
		if r > limit {
			s.value = r
			return s, nil
		}
	}
}

// incrementalFixedPoint computes the same fixed point as directFixedPoint but
// keeps the activation count of every interfering task and only recomputes a
// ceiling once r moves past that task's next release.
func incrementalFixedPoint(hp model.TaskSet, base, start, limit int64, maxIter int, keepSteps bool) (search, error) {
	s := search{}
	jobs := make([]int64, len(hp))
	var demand int64
	for j, t := range hp {
		jobs[j] = ceilDiv(start, t.T)
		demand += jobs[j] * t.C
		s.ceilings++
	}
	r := start
	if keepSteps {
		s.steps = append(s.steps, r)
	}
	for {
		if s.iterations >= maxIter {
			return s, ErrIterationLimit
		}
		s.iterations++
		w := base + demand
		if w < r {
			return s, fmt.Errorf("%w: %d after %d", ErrNotMonotone, w, r)
		}
		if w == r {
			s.value = r
			s.converged = r <= limit
			return s, nil
		}
		r = w
		if keepSteps {
			s.steps = append(s.steps, r)
		}
		if r > limit {
			s.value = r
			return s, nil
		}
		for j, t := range hp {
			if r <= jobs[j]*t.T {
				continue
			}
			n := ceilDiv(r, t.T)
			s.ceilings++
			demand += (n - jobs[j]) * t.C
			jobs[j] = n
		}
	}
}

// ResponseTimes computes the worst-case response time of every task with the
// selected method. Tasks are processed in priority order and the analysis
// stops at the first task that misses its deadline.
func ResponseTimes(ts model.TaskSet, opts ...Option) (WCRTResult, error) {
	o := newOptions(opts)
	if err := ts.Validate(); err != nil {
		return WCRTResult{}, err
	}
	solve := directFixedPoint
	switch o.method {
	case MethodRTA, MethodJoseph:
	case MethodIncremental:
		solve = incrementalFixedPoint
	default:
		return WCRTResult{}, fmt.Errorf("unknown method %q", o.method)
	}

	n := len(ts)
	res := WCRTResult{
		Method:        o.method,
		Schedulable:   true,
		FailedTask:    -1,
		ResponseTimes: make([]int64, n),
		Iterations:    make([]int, n),
		Ceilings:      make([]int, n),
	}
	if o.keepSteps {
		res.Steps = make([][]int64, n)
		res.Steps[0] = []int64{ts[0].C}
	}

	res.ResponseTimes[0] = ts[0].C
	if ts[0].C > ts[0].D {
		res.Schedulable = false
		res.FailedTask = 0
		return res, nil
	}

	for i := 1; i < n; i++ {
		start := res.ResponseTimes[i-1] + ts[i].C
		if o.method == MethodJoseph {
			start = 0
		}
		s, err := solve(ts[:i], ts[i].C, start, ts[i].D, o.maxIter, o.keepSteps)
		res.ResponseTimes[i] = s.value
		res.Iterations[i] = s.iterations
		res.Ceilings[i] = s.ceilings
		if o.keepSteps {
			res.Steps[i] = s.steps
		}
		if err != nil {
			return res, fmt.Errorf("task %d: %w", i, err)
		}
		if !s.converged {
			res.Schedulable = false
			res.FailedTask = i
			break
		}
	}
	return res, nil
}

// IsSchedulable runs the response-time analysis and returns only its verdict.
// Missing deadlines default to the period; invalid sets are not schedulable.
func IsSchedulable(ts model.TaskSet) bool {
	res, err := ResponseTimes(ts.Normalize())
	return err == nil && res.Schedulable
}
