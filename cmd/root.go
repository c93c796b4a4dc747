package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kilianp07/rtsa/config"
	"github.com/kilianp07/rtsa/infra/logger"
)

// cli holds the state shared by the sub-commands once the configuration is
// loaded.
type cli struct {
	cfgPath string
	envFile string
	cfg     *config.Config
}

// NewRootCmd builds the rtsa command tree.
func NewRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:               "rtsa",
		Short:             "Fixed-priority real-time task-set analysis",
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}
	root.PersistentFlags().StringVarP(&c.cfgPath, "config", "c", "", "configuration file (YAML or JSON)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	root.AddCommand(newAnalyzeCmd(c), newGenerateCmd(c), newBatchCmd(c))
	return root
}

// Execute runs the CLI until it completes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", c.envFile, err)
		}
	}
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.SetOutput(cmd.ErrOrStderr())
	if err := logger.Configure(cfg.Logging); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}
