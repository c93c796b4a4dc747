package analysis

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/kilianp07/rtsa/core/model"
)

func set(tasks ...[3]int64) model.TaskSet {
	ts := make(model.TaskSet, len(tasks))
	for i, t := range tasks {
		ts[i] = model.Task{C: t[0], T: t[1], D: t[2]}
	}
	return ts
}

var (
	// three light tasks, U = 0.75
	lightSet = set([3]int64{1, 3, 3}, [3]int64{1, 4, 4}, [3]int64{1, 6, 6})
	// schedulable although both closed-form bounds fail
	tightSet = set([3]int64{2, 4, 4}, [3]int64{1, 5, 5}, [3]int64{1, 7, 7})
	// first task cannot fit its own deadline
	overloadSet = set([3]int64{6, 5, 5}, [3]int64{1, 10, 10})
	singleSet   = set([3]int64{5, 10, 10})
	// U = 1 exactly
	fullSet = set([3]int64{1, 2, 2}, [3]int64{2, 4, 4})
)

// randomSet draws a valid rate-monotonic set. implicit forces D = T.
func randomSet(rng *rand.Rand, implicit bool) model.TaskSet {
	n := 1 + rng.Intn(6)
	periods := make([]int64, n)
	for i := range periods {
		periods[i] = 2 + rng.Int63n(60)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i] < periods[j] })
	ts := make(model.TaskSet, n)
	for i, p := range periods {
		c := 1 + rng.Int63n(p/2+1)
		d := p
		if !implicit {
			d = c + rng.Int63n(p-c+1)
		}
		ts[i] = model.Task{C: c, T: p, D: d}
	}
	return ts
}

func equalInts(t *testing.T, name string, got, want []int64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %v got %v", name, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: expected %v got %v", name, want, got)
		}
	}
}
