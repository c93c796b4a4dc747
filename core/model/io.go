package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// GenerateSpec describes a task set to be sampled instead of listed literally.
type GenerateSpec struct {
	Tasks       int     `json:"tasks" yaml:"tasks"`
	Utilization float64 `json:"utilization" yaml:"utilization"`
	MinPeriod   int64   `json:"min_period" yaml:"min_period"`
	MaxPeriod   int64   `json:"max_period" yaml:"max_period"`
}

// NamedTaskSet is one entry of a task-set file. Exactly one of Tasks or
// Generate is expected to be set.
type NamedTaskSet struct {
	Name     string        `json:"name,omitempty" yaml:"name,omitempty"`
	Tasks    TaskSet       `json:"tasks,omitempty" yaml:"tasks,omitempty"`
	Generate *GenerateSpec `json:"generate,omitempty" yaml:"generate,omitempty"`
}

type document struct {
	TaskSets []NamedTaskSet `json:"tasksets" yaml:"tasksets"`
}

// LoadTaskSets reads task sets from a JSON or YAML file.
func LoadTaskSets(path string) ([]NamedTaskSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return DecodeTaskSets(f, ext)
}

// DecodeTaskSets reads a task-set document from r.
func DecodeTaskSets(r io.Reader, format string) ([]NamedTaskSet, error) {
	var doc document
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	for i, s := range doc.TaskSets {
		if len(s.Tasks) == 0 && s.Generate == nil {
			return nil, fmt.Errorf("taskset %d: neither tasks nor generate given", i)
		}
		if s.Name == "" {
			doc.TaskSets[i].Name = fmt.Sprintf("%d", i)
		}
	}
	return doc.TaskSets, nil
}

// EncodeTaskSets writes task sets in the same document layout DecodeTaskSets reads.
func EncodeTaskSets(w io.Writer, format string, sets []NamedTaskSet) error {
	doc := document{TaskSets: sets}
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
