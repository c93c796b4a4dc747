// Package analysis implements schedulability analysis for fixed-priority
// periodic task sets under rate-monotonic priority assignment.
//
// The package exposes pure functions over model.TaskSet values:
//
//   - closed-form bounds (Liu & Layland, Bini hyperbolic, round-robin, EDF),
//   - worst-case response times by fixed-point iteration (ResponseTimes),
//   - maximum critical-instant delays used for Dual-Priority promotion (MaxDelays),
//   - the first idle instant of every priority level (IdlePoints),
//   - deferrable and polling server capacities (ServerCapacities).
//
// Analyze runs all of them and returns a Report. Analyzer wraps Analyze with
// logging, metrics and concurrent analysis of independent task sets.
//
// An infeasible task set is not an error: it is reported through the
// Schedulable flag. Errors are reserved for malformed input and for fixed-point
// searches that fail their loop guards.
package analysis
