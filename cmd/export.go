package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/veracity-group/truthscan-cli/internal/report"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <entity-id>",
	Short: "Export an entity's audit history to an xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := report.WriteWorkbook(ctx, env.Store, cfg.Tenant, args[0], exportOut); err != nil {
			return err
		}
		cmd.Printf("wrote %s\n", exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "report.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
