package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/rtsa/app"
	"github.com/kilianp07/rtsa/infra/logger"
)

func newBatchCmd(c *cli) *cobra.Command {
	var (
		output string
		format string
		sets   int
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate and analyze the configured batch profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *c.cfg
			f := cmd.Flags()
			if f.Changed("output") {
				cfg.Batch.Output = output
			}
			if f.Changed("format") {
				cfg.Batch.Format = format
			}
			if f.Changed("sets") {
				cfg.Batch.SetsPerProfile = sets
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}
			svc, err := app.New(&cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := svc.Close(); err != nil {
					logger.New("main").Errorf("service close: %v", err)
				}
			}()
			svc.SetOutput(cmd.OutOrStdout())
			_, err = svc.Run(cmd.Context())
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "report file, stdout when empty")
	f.StringVar(&format, "format", "", "report format: json, yaml or csv")
	f.IntVar(&sets, "sets", 0, "sets generated per profile")
	return cmd
}
