package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/rtsa/core/model"
)

// TaskDef is one task line of a scenario file. A zero D means D = T.
type TaskDef struct {
	C int64 `yaml:"c"`
	T int64 `yaml:"t"`
	D int64 `yaml:"d,omitempty"`
}

func (d TaskDef) ToModel() model.Task {
	return model.Task{C: d.C, T: d.T, D: d.D}
}

// Expected holds the reference results of a scenario. Slices left empty are
// not checked.
type Expected struct {
	Schedulable   bool    `yaml:"schedulable"`
	Utilization   float64 `yaml:"utilization"`
	ResponseTimes []int64 `yaml:"response_times"`
	KValues       []int64 `yaml:"k_values,omitempty"`
	IdlePoints    []int64 `yaml:"idle_points,omitempty"`
}

type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Tasks       []TaskDef `yaml:"tasks"`
	Expected    Expected  `yaml:"expected"`
}

// TaskSet returns the scenario tasks in priority order.
func (sc *Scenario) TaskSet() model.TaskSet {
	ts := make(model.TaskSet, len(sc.Tasks))
	for i, d := range sc.Tasks {
		ts[i] = d.ToModel()
	}
	return ts
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if len(sc.Tasks) == 0 {
		return nil, fmt.Errorf("%s: scenario has no tasks", path)
	}
	if n := len(sc.Expected.ResponseTimes); n != 0 && n != len(sc.Tasks) {
		return nil, fmt.Errorf("%s: %d response times for %d tasks", path, n, len(sc.Tasks))
	}
	return &sc, nil
}
