package commands

import (
	"fmt"
	"os"

	"pcbuilder/internal/catalog"

	"github.com/spf13/cobra"
)

func newSeedCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <catalog.yaml>",
		Short: "Load products and prices from a YAML file",
		Long: `Seed upserts every product in the file by brand and model and appends
its listed prices to the price history. Re-running the same file refreshes
products and adds new price observations.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open seed file: %w", err)
			}
			defer f.Close()

			db, err := e.openDB()
			if err != nil {
				return err
			}
			repo := catalog.NewRepository(db)
			report, err := repo.Seed(cmd.Context(), f)
			if err != nil {
				return err
			}
			good.Fprintf(cmd.OutOrStdout(), "Seeded %d products and %d prices\n", report.Products, report.Prices)

			snap, err := repo.LoadSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range snap.Counts() {
				line := fmt.Sprintf("  %-12s %3d products, %3d priced\n", c.Category, c.Products, c.Priced)
				if c.Priced == 0 {
					warn.Fprint(cmd.OutOrStdout(), line)
					continue
				}
				fmt.Fprint(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}
