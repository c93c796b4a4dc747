package analysis

import (
	"fmt"

	"github.com/kilianp07/rtsa/core/model"
)

// MaxDelays returns, for every task, the largest delay k that can be injected
// at the critical instant while the task still meets its deadline. Under
// Dual-Priority scheduling k is how long the task may stay in the background
// band before it must be promoted.
//
// wcrt must be the schedulable result of ResponseTimes for the same set.
func MaxDelays(ts model.TaskSet, wcrt WCRTResult, opts ...Option) ([]int64, error) {
	o := newOptions(opts)
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	if len(wcrt.ResponseTimes) != len(ts) {
		return nil, fmt.Errorf("%w: %d response times for %d tasks", ErrResultMismatch, len(wcrt.ResponseTimes), len(ts))
	}
	if !wcrt.Schedulable {
		return nil, ErrUnschedulable
	}

	ks := make([]int64, len(ts))
	ks[0] = ts[0].D - ts[0].C
	for i := 1; i < len(ts); i++ {
		task := ts[i]
		k := int64(1)
		for ; k <= task.D; k++ {
			start := int64(1)
			if o.seedDelays {
				start = wcrt.ResponseTimes[i] + k
			}
			s, err := directFixedPoint(ts[:i], task.C+k, start, task.D, o.maxIter, false)
			if err != nil {
				return ks, fmt.Errorf("task %d delay %d: %w", i, k, err)
			}
			if !s.converged {
				break
			}
		}
		ks[i] = k - 1
	}
	return ks, nil
}
