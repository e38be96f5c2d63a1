package cli

import (
	"github.com/law-makers/adscout/internal/catalog"
	"github.com/spf13/cobra"
)

var (
	serveListen  string
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion API",
	Long: `Serves POST /api/facebook-ads/import and GET /healthz. Requests must carry
the shared secret in the x-scraper-secret header; without a configured secret
every import is rejected.`,
	Example: `  # Serve on :3000 against a local SQLite catalog
  adscout serve --migrate

  # Serve against Postgres
  adscout serve --catalog-driver pgx --catalog-dsn postgres://localhost/catalog`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		if serveListen != "" {
			a.Config.ListenAddr = serveListen
		}
		if serveMigrate {
			store, err := a.OpenCatalog(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Migrate(cmd.Context(), catalog.MigrateOptions{}); err != nil {
				return err
			}
		}
		return a.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default ADSCOUT_LISTEN or :3000)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Create missing catalog tables before serving")
}
