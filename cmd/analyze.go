package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rtsa/core/analysis"
	coremetrics "github.com/kilianp07/rtsa/core/metrics"
	"github.com/kilianp07/rtsa/core/model"
	"github.com/kilianp07/rtsa/generator"
	"github.com/kilianp07/rtsa/infra/logger"
	_ "github.com/kilianp07/rtsa/infra/metrics" // registers the metrics sinks
	"github.com/kilianp07/rtsa/pkg/export"
)

func newAnalyzeCmd(c *cli) *cobra.Command {
	var (
		sel    string
		method string
		format string
		steps  bool
	)
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze the task sets listed in a YAML or JSON file",
		Long: "Analyze the task sets listed in a YAML or JSON file. Entries holding\n" +
			"generator parameters instead of tasks are replaced by a random schedulable set.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(export.Formats, format) {
				return fmt.Errorf("unknown format %q", format)
			}
			sets, err := model.LoadTaskSets(args[0])
			if err != nil {
				return err
			}
			if sel != "" {
				idx, err := parseSelection(sel, len(sets))
				if err != nil {
					return err
				}
				picked := make([]model.NamedTaskSet, len(idx))
				for i, j := range idx {
					picked[i] = sets[j]
				}
				sets = picked
			}

			sink, err := coremetrics.NewMetricsSink(c.cfg.Metrics.Sinks)
			if err != nil {
				return fmt.Errorf("metrics sink: %w", err)
			}
			defer coremetrics.CloseSink(sink)

			sets, err = c.resolve(cmd.Context(), sets, sink)
			if err != nil {
				return err
			}

			acfg := c.cfg.Analysis
			if method != "" {
				acfg.Method = method
			}
			acfg.Steps = acfg.Steps || steps
			an, err := analysis.NewAnalyzer(acfg, sink, nil, logger.New("analyzer"))
			if err != nil {
				return err
			}
			reports, anaErr := an.AnalyzeAll(cmd.Context(), sets)
			ok := reports[:0:0]
			for _, r := range reports {
				if r.ID != "" {
					ok = append(ok, r)
				}
			}
			if err := export.Write(cmd.OutOrStdout(), format, ok); err != nil {
				return errors.Join(anaErr, err)
			}
			return anaErr
		},
	}
	f := cmd.Flags()
	f.StringVar(&sel, "select", "", `zero-based sets to analyze, e.g. "0,2-4"`)
	f.StringVar(&method, "method", "", "response-time method: rta, joseph or incremental")
	f.StringVar(&format, "format", "json", "output format: json, yaml or csv")
	f.BoolVar(&steps, "steps", false, "keep the iterates of every response-time search")
	return cmd
}

// resolve replaces generator entries by random schedulable sets.
func (c *cli) resolve(ctx context.Context, sets []model.NamedTaskSet, sink coremetrics.MetricsSink) ([]model.NamedTaskSet, error) {
	var gen *generator.Generator
	out := make([]model.NamedTaskSet, len(sets))
	for i, s := range sets {
		out[i] = s
		if s.Generate == nil {
			continue
		}
		if gen == nil {
			rec, _ := sink.(coremetrics.GenerationRecorder)
			var err error
			if gen, err = generator.New(c.cfg.Generator, rec, logger.New("generator")); err != nil {
				return nil, err
			}
		}
		ts, _, err := gen.GenerateSchedulable(ctx, *s.Generate, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		out[i].Tasks = ts
		out[i].Generate = nil
	}
	return out, nil
}
