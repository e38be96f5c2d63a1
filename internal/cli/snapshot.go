package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/law-makers/adscout/internal/snapshot"
	"github.com/law-makers/adscout/internal/ui"
	"github.com/spf13/cobra"
)

var snapshotFormat string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect the per-niche snapshot files written by scrape",
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshot files, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		dir := a.Config.OutputDir
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			fmt.Println(ui.Info("No snapshots yet in " + dir))
			return nil
		}
		if err != nil {
			return err
		}

		var names []string
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
				names = append(names, e.Name())
			}
		}
		// File names start with epoch millis
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
		for _, name := range names {
			fmt.Println(filepath.Join(dir, name))
		}
		return nil
	},
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Render a snapshot as markdown, CSV or JSON",
	Example: `  adscout snapshot show tmp/facebook-ad-library/1700000000000-emagrecimento.json
  adscout snapshot show snap.json --format csv > ads.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := snapshot.Load(args[0])
		if err != nil {
			return err
		}
		return snapshot.Render(cmd.OutOrStdout(), snap, snapshotFormat)
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotListCmd, snapshotShowCmd)

	snapshotShowCmd.Flags().StringVarP(&snapshotFormat, "format", "f", "md", "Output format: md, csv or json")
}
