package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rtsa/core/model"
	"github.com/kilianp07/rtsa/generator"
	"github.com/kilianp07/rtsa/infra/logger"
)

func newGenerateCmd(c *cli) *cobra.Command {
	var (
		spec    model.GenerateSpec
		count   int
		seed    int64
		format  string
		keepAll bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate random task sets in rate-monotonic order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := generator.ValidateSpec(spec); err != nil {
				return err
			}
			if count <= 0 {
				return fmt.Errorf("count must be positive, got %d", count)
			}
			gcfg := c.cfg.Generator
			if cmd.Flags().Changed("seed") {
				gcfg.Seed = seed
			}
			gen, err := generator.New(gcfg, nil, logger.New("generator"))
			if err != nil {
				return err
			}
			sets := make([]model.NamedTaskSet, count)
			for i := range sets {
				var ts model.TaskSet
				if keepAll {
					ts, err = gen.Generate(spec)
				} else {
					ts, _, err = gen.GenerateSchedulable(cmd.Context(), spec, nil)
				}
				if err != nil {
					return err
				}
				sets[i] = model.NamedTaskSet{Name: fmt.Sprintf("g%d", i), Tasks: ts}
			}
			return model.EncodeTaskSets(cmd.OutOrStdout(), format, sets)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&spec.Tasks, "tasks", "n", 4, "tasks per set")
	f.Float64VarP(&spec.Utilization, "utilization", "u", 0.8, "target utilization")
	f.Int64Var(&spec.MinPeriod, "min-period", 3, "smallest period")
	f.Int64Var(&spec.MaxPeriod, "max-period", 40, "largest period")
	f.IntVar(&count, "count", 1, "number of sets")
	f.Int64Var(&seed, "seed", 0, "random seed, overrides the configuration")
	f.StringVar(&format, "format", "yaml", "output format: yaml or json")
	f.BoolVar(&keepAll, "any", false, "keep sets that are not schedulable")
	return cmd
}
