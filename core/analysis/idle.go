package analysis

import (
	"fmt"
	"math"

	"github.com/kilianp07/rtsa/core/model"
)

// IdlePoints returns, for every priority level i, the first instant at which
// the processor is idle with respect to tasks 0..i. The unit slot
// [idle, idle+1) is the first one left free by that prefix.
//
// responseTimes may be nil. When it holds the response times of a schedulable
// analysis, each search is seeded with R(i)+1 instead of 1.
func IdlePoints(ts model.TaskSet, responseTimes []int64, opts ...Option) ([]int64, error) {
	o := newOptions(opts)
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	if responseTimes != nil && len(responseTimes) != len(ts) {
		return nil, fmt.Errorf("%w: %d response times for %d tasks", ErrResultMismatch, len(responseTimes), len(ts))
	}
	if saturated(ts) {
		return nil, ErrSaturated
	}

	idle := make([]int64, len(ts))
	for i := range ts {
		start := int64(1)
		if responseTimes != nil && responseTimes[i] > 0 {
			start = responseTimes[i] + 1
		}
		s, err := directFixedPoint(ts[:i+1], 1, start, math.MaxInt64, o.maxIter, false)
		if err != nil {
			return idle, fmt.Errorf("level %d: %w", i, err)
		}
		idle[i] = s.value - 1
	}
	return idle, nil
}
