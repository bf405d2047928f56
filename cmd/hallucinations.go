package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var hallucinationsCmd = &cobra.Command{
	Use:   "hallucinations <entity-id>",
	Short: "List the hallucination ledger for an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		recs, err := env.Store.ListHallucinations(ctx, cfg.Tenant, args[0])
		if err != nil {
			return err
		}
		for _, h := range recs {
			printHallucination(cmd, h)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hallucinationsCmd)
}
