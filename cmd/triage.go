package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/veracity-group/truthscan-cli/internal/model"
	"github.com/veracity-group/truthscan-cli/internal/triage"
)

var (
	triageFile      string
	triageCertified bool
)

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Classify extracted items by confidence tier",
	Long: `Reads extracted items from a YAML file, assigns each a publication tier,
and reports whether the batch may publish. One blocked item vetoes the
batch, and publication always requires source certification.

Example file:

  - label: menu.espresso.price
    value: "3.50"
    confidence: 0.91
  - label: menu.toast.price
    value: "7.00"
    confidence: 0.45`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(triageFile)
		if err != nil {
			return eris.Wrapf(err, "triage: reading %s", triageFile)
		}
		var items []model.ExtractedItem
		if err := yaml.Unmarshal(data, &items); err != nil {
			return eris.Wrapf(err, "triage: parsing %s", triageFile)
		}

		for _, c := range triage.ClassifyItems(items) {
			cmd.Printf("%-8s %.2f  %s = %s\n", c.Tier, c.Item.Confidence, c.Item.Label, c.Item.Value)
		}
		cmd.Printf("publish: %t\n", triage.CanPublish(items, triageCertified))
		return nil
	},
}

func init() {
	triageCmd.Flags().StringVar(&triageFile, "file", "items.yaml", "YAML file of extracted items")
	triageCmd.Flags().BoolVar(&triageCertified, "certified", false, "source data is certified")
	rootCmd.AddCommand(triageCmd)
}
