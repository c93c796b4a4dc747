package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/rtsa/core/model"
)

func TestAnalyzeLightSet(t *testing.T) {
	input := model.TaskSet{{C: 1, T: 3}, {C: 1, T: 4}, {C: 1, T: 6}}
	rep, err := Analyze(input, Config{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	assert.Equal(t, MethodRTA, rep.Method)
	assert.True(t, rep.Schedulable)
	assert.Equal(t, -1, rep.FailedTask)
	assert.Equal(t, int64(12), rep.Hyperperiod)
	assert.True(t, rep.EDF)
	assert.True(t, rep.RoundRobin.Holds)
	equalInts(t, "R", rep.ResponseTimes, []int64{1, 2, 3})
	equalInts(t, "K", rep.KValues, []int64{2, 1, 1})
	equalInts(t, "idle", rep.IdlePoints, []int64{1, 2, 5})
	assert.Len(t, rep.Servers, 3)
	for i, task := range rep.Tasks {
		assert.Equal(t, task.T, task.D, "deadline defaults to period")
		assert.Equal(t, rep.ResponseTimes[i], task.R)
		assert.Equal(t, rep.KValues[i], task.K)
	}
	// input untouched
	assert.Zero(t, input[0].D)
	assert.Zero(t, input[0].R)
}

func TestAnalyzeUnschedulableSet(t *testing.T) {
	rep, err := Analyze(overloadSet, Config{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	assert.False(t, rep.Schedulable)
	assert.Equal(t, 0, rep.FailedTask)
	assert.Nil(t, rep.KValues)
	assert.Nil(t, rep.Servers)
	assert.Nil(t, rep.IdlePoints)
	assert.False(t, rep.EDF)
}

func TestAnalyzeSaturatedSet(t *testing.T) {
	rep, err := Analyze(fullSet, Config{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	assert.True(t, rep.Schedulable)
	equalInts(t, "K", rep.KValues, []int64{1, 0})
	assert.Nil(t, rep.IdlePoints)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	first, err := Analyze(tightSet, Config{Method: "incremental", Steps: true})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	second, err := Analyze(first.Tasks, Config{Method: "incremental", Steps: true})
	if err != nil {
		t.Fatalf("re-analyze: %v", err)
	}
	assert.Equal(t, first, second)
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	_, err := Analyze(model.TaskSet{{C: 0, T: 4}}, Config{})
	var verr *model.ValidationError
	if !errors.As(err, &verr) || verr.Field != "c" {
		t.Fatalf("expected validation error on c, got %v", err)
	}
	if _, err := Analyze(lightSet, Config{Method: "edf"}); err == nil {
		t.Fatal("expected error for unknown method")
	}
	if _, err := Analyze(lightSet, Config{ServerPeriods: []int64{-1}}); err == nil {
		t.Fatal("expected error for negative server period")
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	assert.Equal(t, "rta", cfg.Method)
	assert.Equal(t, DefaultMaxIterations, cfg.MaxIterations)
	assert.Positive(t, cfg.Workers)
	assert.NoError(t, cfg.Validate())
}

func TestReportTotals(t *testing.T) {
	rep := Report{Iterations: []int{0, 2, 3}, Ceilings: []int{0, 2, 6}}
	assert.Equal(t, 5, rep.TotalIterations())
	assert.Equal(t, 8, rep.TotalCeilings())
}
