package cli

import (
	"fmt"

	"github.com/law-makers/adscout/internal/catalog"
	"github.com/law-makers/adscout/internal/ui"
	"github.com/spf13/cobra"
)

var migrateSkipOptional bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the catalog tables",
	Long: `Creates categories and offers, plus the optional niches and
offer_scalability_metrics tables unless --skip-optional is set. Existing
tables are left untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		store, err := a.OpenCatalog(cmd.Context())
		if err != nil {
			return err
		}
		if err := store.Migrate(cmd.Context(), catalog.MigrateOptions{SkipOptional: migrateSkipOptional}); err != nil {
			return err
		}

		caps := store.Capabilities()
		fmt.Printf("%s %s\n", ui.Success("Catalog ready"), ui.Dim("("+store.Driver()+")"))
		fmt.Printf("  niches table    %s\n", ui.Status(caps.Niches))
		fmt.Printf("  metrics table   %s\n", ui.Status(caps.Metrics))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&migrateSkipOptional, "skip-optional", false, "Only create the required tables")
}
