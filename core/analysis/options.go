package analysis

import (
	"errors"
	"fmt"
)

// Method selects the response-time recurrence variant.
type Method string

const (
	// MethodRTA starts each search from R(i-1)+C(i) and recomputes the whole
	// interference term at every step.
	MethodRTA Method = "rta"
	// MethodJoseph starts each search from zero.
	MethodJoseph Method = "joseph"
	// MethodIncremental starts like MethodRTA but only re-evaluates the demand
	// of tasks whose activation threshold was crossed.
	MethodIncremental Method = "incremental"
)

// DefaultMaxIterations bounds a single fixed-point search.
const DefaultMaxIterations = 1_000_000

var (
	// ErrIterationLimit is returned when a fixed-point search exceeds its
	// iteration budget.
	ErrIterationLimit = errors.New("fixed-point iteration limit exceeded")
	// ErrNotMonotone is returned when an iterate decreases, which only happens
	// with input that escaped validation.
	ErrNotMonotone = errors.New("fixed-point sequence is not monotone")
	// ErrUnschedulable is returned by solvers that require a schedulable set.
	ErrUnschedulable = errors.New("task set is not schedulable")
	// ErrSaturated is returned when the processor has no idle time (U >= 1).
	ErrSaturated = errors.New("task set saturates the processor")
	// ErrResultMismatch is returned when a result does not belong to the task set.
	ErrResultMismatch = errors.New("result does not match task set")
)

// Methods lists the supported methods, RTA first.
func Methods() []Method {
	return []Method{MethodRTA, MethodJoseph, MethodIncremental}
}

// ParseMethod converts a configuration string into a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodRTA, MethodJoseph, MethodIncremental:
		return Method(s), nil
	case "":
		return MethodRTA, nil
	default:
		return "", fmt.Errorf("unknown method %q", s)
	}
}

type options struct {
	method     Method
	maxIter    int
	seedDelays bool
	keepSteps  bool
}

// Option customizes a solver call.
type Option func(*options)

// WithMethod selects the response-time recurrence variant.
func WithMethod(m Method) Option {
	return func(o *options) { o.method = m }
}

// WithMaxIterations bounds every fixed-point search. Non-positive values keep
// the default.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxIter = n
		}
	}
}

// WithDelaySeed makes MaxDelays start every candidate search from R(i)+k
// instead of 1.
func WithDelaySeed(seed bool) Option {
	return func(o *options) { o.seedDelays = seed }
}

// WithSteps records every iterate of the response-time searches.
func WithSteps(keep bool) Option {
	return func(o *options) { o.keepSteps = keep }
}

func newOptions(opts []Option) options {
	o := options{method: MethodRTA, maxIter: DefaultMaxIterations}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
