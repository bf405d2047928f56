package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/veracity-group/truthscan-cli/internal/model"
)

var auditEngine string

var auditCmd = &cobra.Command{
	Use:   "audit <entity-id>",
	Short: "Run a truth audit against every provider",
	Long: `Dispatches the entity's ground truth to every registered answer engine
concurrently, persists one evaluation per provider, records newly detected
hallucinations, and prints the refreshed truth score.

Use --engine to re-audit a single provider.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		entityID := args[0]

		if auditEngine != "" {
			ev, err := env.Audit.RunSingleEngineAudit(ctx, cfg.Tenant, entityID, model.Engine(auditEngine))
			if err != nil {
				return err
			}
			printEvaluation(cmd, *ev)
			return nil
		}

		result, err := env.Audit.RunAudit(ctx, cfg.Tenant, entityID)
		if err != nil {
			return err
		}
		printTruthResult(cmd, *result)
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditEngine, "engine", "", "audit a single provider (chatgpt, claude, gemini, perplexity)")
	rootCmd.AddCommand(auditCmd)
}

func printEvaluation(cmd *cobra.Command, ev model.Evaluation) {
	score := "n/a"
	if ev.AccuracyScore != nil {
		score = fmt.Sprintf("%d", *ev.AccuracyScore)
	}
	cmd.Printf("%s: score %s", ev.Engine, score)
	if ev.Fallback {
		cmd.Printf(" (fallback)")
	}
	cmd.Println()
	for _, in := range ev.Inaccuracies {
		cmd.Printf("  [%s] %s\n", in.Severity, in.Claim)
	}
}

func printTruthResult(cmd *cobra.Command, r model.TruthAuditResult) {
	if r.TruthScore == nil {
		cmd.Println("truth score: n/a (no engines reporting)")
		return
	}
	cmd.Printf("truth score: %d (engines reporting: %d, consensus: %t)\n",
		*r.TruthScore, r.EnginesReporting, r.Consensus)
	for _, eng := range model.AllEngines {
		if s, ok := r.EngineScores[eng]; ok {
			cmd.Printf("  %-10s %d\n", eng, s)
		}
	}
}
