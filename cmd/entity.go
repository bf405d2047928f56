package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/veracity-group/truthscan-cli/internal/model"
)

var entityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Manage ground-truth entities",
}

var entityImportFile string

var entityImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import entities from a YAML file",
	Long: `Upserts owner-attested ground truth from a YAML file. The file holds a
list of entities; an entity with an existing id is replaced in full.

Example file:

  - id: cafe-42
    name: Cafe 42
    address: 42 Main St
    phone: "+1 555 0142"
    website: https://cafe42.example
    hours:
      mon: 8am-4pm
    amenities: [wifi, patio]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		data, err := os.ReadFile(entityImportFile)
		if err != nil {
			return eris.Wrapf(err, "entity: reading %s", entityImportFile)
		}
		var entities []model.Entity
		if err := yaml.Unmarshal(data, &entities); err != nil {
			return eris.Wrapf(err, "entity: parsing %s", entityImportFile)
		}

		for _, e := range entities {
			if e.Name == "" {
				return eris.Errorf("entity: entry %q has no name", e.ID)
			}
			e.TenantID = cfg.Tenant
			saved, err := env.Store.UpsertEntity(ctx, e)
			if err != nil {
				return eris.Wrapf(err, "entity: importing %q", e.Name)
			}
			zap.L().Info("entity imported",
				zap.String("id", saved.ID),
				zap.String("name", saved.Name),
			)
			cmd.Printf("%s  %s\n", saved.ID, saved.Name)
		}
		return nil
	},
}

var entityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entities for the current tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		entities, err := env.Store.ListEntities(ctx, cfg.Tenant)
		if err != nil {
			return err
		}
		for _, e := range entities {
			cmd.Printf("%s  %s  %s\n", e.ID, e.Name, e.Address)
		}
		return nil
	},
}

var entityDeleteCmd = &cobra.Command{
	Use:   "delete <entity-id>",
	Short: "Delete an entity",
	Long: `Removes the entity's ground truth. Evaluation history and the
hallucination ledger are retained; pending verifications for a deleted
entity settle as fixed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.DeleteEntity(ctx, cfg.Tenant, args[0]); err != nil {
			return err
		}
		cmd.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	entityImportCmd.Flags().StringVar(&entityImportFile, "file", "entities.yaml", "YAML file of entities to import")
	entityCmd.AddCommand(entityImportCmd)
	entityCmd.AddCommand(entityListCmd)
	entityCmd.AddCommand(entityDeleteCmd)
	rootCmd.AddCommand(entityCmd)
}
