package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/veracity-group/truthscan-cli/internal/model"
	"github.com/veracity-group/truthscan-cli/internal/store"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <hallucination-id>",
	Short: "Re-verify whether a detected falsehood has been corrected",
	Long: `Claims the record for verification and re-audits the originating provider
against the entity's current ground truth. A claim the provider still asserts
returns the record to open; an absent claim marks it fixed. A record already
mid-verification is rejected until the cooldown expires.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Lifecycle.VerifyCorrection(ctx, cfg.Tenant, args[0])
		if err != nil {
			if ce, ok := store.IsCooldown(err); ok {
				cmd.Printf("verification already in progress; retry in %s\n", ce.RetryAfter)
				return nil
			}
			return err
		}
		printHallucination(cmd, *rec)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <hallucination-id> <open|dismissed>",
	Short: "Manually transition a hallucination record",
	Long: `Applies a user-driven lifecycle transition: dismiss an open record, or
reopen a dismissed one. Dismissal is idempotent and stamps the resolution
time once; transitions outside the lifecycle table are rejected.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Lifecycle.SetCorrectionStatus(ctx, cfg.Tenant, args[0], model.CorrectionStatus(args[1]))
		if err != nil {
			return err
		}
		printHallucination(cmd, *rec)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(statusCmd)
}

func printHallucination(cmd *cobra.Command, h model.Hallucination) {
	cmd.Printf("%s [%s] %s\n", h.ID, h.Status, h.Claim)
	cmd.Printf("  engine: %s, severity: %s, detected: %s\n",
		h.Engine, h.Severity, h.DetectedAt.Format("2006-01-02 15:04"))
	if h.Expected != "" {
		cmd.Printf("  expected: %s\n", h.Expected)
	}
	if h.ResolvedAt != nil {
		cmd.Printf("  resolved: %s\n", h.ResolvedAt.Format("2006-01-02 15:04"))
	}
}
