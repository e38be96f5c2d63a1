package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Emit logs as JSON")
	cmd.PersistentFlags().String("proxy", "", "Proxy for the browser, comma separated for rotation (e.g., http://localhost:8080)")
	cmd.PersistentFlags().String("timeout", "", "Hard navigation timeout (e.g., 60s)")
	cmd.PersistentFlags().String("user-agent", "", "Custom browser user agent string")
	cmd.PersistentFlags().String("config", "", "Path to a YAML niche file (optional)")
	cmd.PersistentFlags().String("catalog-driver", "", "Catalog database driver: sqlite or pgx")
	cmd.PersistentFlags().String("catalog-dsn", "", "Catalog database DSN or file path")
}
