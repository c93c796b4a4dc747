// Package export renders analysis reports as JSON, YAML or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/rtsa/core/analysis"
)

// Formats lists the accepted output formats.
var Formats = []string{"json", "yaml", "csv"}

// Write renders reports in the given format.
func Write(w io.Writer, format string, reports []analysis.Report) error {
	switch format {
	case "json", "":
		return WriteJSON(w, reports)
	case "yaml", "yml":
		return WriteYAML(w, reports)
	case "csv":
		return WriteCSV(w, reports)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// WriteJSON writes the reports to w as an indented JSON array.
func WriteJSON(w io.Writer, reports []analysis.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

// WriteYAML writes the reports to w as YAML, keeping the JSON field names.
func WriteYAML(w io.Writer, reports []analysis.Report) error {
	data, err := json.Marshal(reports)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	clearStyle(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

// clearStyle drops the flow style inherited from the JSON source.
func clearStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		clearStyle(c)
	}
}

var csvHeader = []string{
	"report_id", "name", "method", "schedulable", "utilization",
	"task", "c", "t", "d", "r", "k", "idle",
}

// WriteCSV writes one row per task of every report.
func WriteCSV(w io.Writer, reports []analysis.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rep := range reports {
		for i, t := range rep.Tasks {
			idle := ""
			if i < len(rep.IdlePoints) {
				idle = strconv.FormatInt(rep.IdlePoints[i], 10)
			}
			rec := []string{
				rep.ID,
				rep.Name,
				string(rep.Method),
				strconv.FormatBool(rep.Schedulable),
				strconv.FormatFloat(rep.Utilization, 'f', 6, 64),
				strconv.Itoa(i),
				strconv.FormatInt(t.C, 10),
				strconv.FormatInt(t.T, 10),
				strconv.FormatInt(t.D, 10),
				strconv.FormatInt(t.R, 10),
				strconv.FormatInt(t.K, 10),
				idle,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
