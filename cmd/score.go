package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score <entity-id>",
	Short: "Show the current truth score for an entity",
	Long: `Derives the composite truth score from the latest evaluation per engine.
Nothing is dispatched and nothing is written; the score is recomputed from
stored evaluation history on every read.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Audit.TruthAuditResult(ctx, cfg.Tenant, args[0])
		if err != nil {
			return err
		}
		printTruthResult(cmd, *result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}
