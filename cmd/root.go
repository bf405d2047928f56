package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veracity-group/truthscan-cli/internal/config"
)

var (
	cfg        *config.Config
	flagTenant string
)

var rootCmd = &cobra.Command{
	Use:   "truthscan",
	Short: "Truth audit and correction lifecycle engine",
	Long:  "Audits what generative answer engines say about your business entities, scores their accuracy, and tracks detected falsehoods through a correction lifecycle.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if flagTenant != "" {
			cfg.Tenant = flagTenant
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagTenant, "tenant", "", "tenant scope (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
