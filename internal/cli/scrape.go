package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/law-makers/adscout/internal/pipeline"
	"github.com/law-makers/adscout/internal/ui"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	scrapeOnce   bool
	scrapeNiches []string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Crawl the Ad Library for every niche and send the ads for ingestion",
	Long: `Runs a crawl cycle immediately and then on every tick of FB_SCRAPER_CRON.
Each niche is crawled in its own browser, one after another. A niche that
fails is logged and the cycle moves on.

With --once (or SCRAPER_RUN_ONCE=true) a single cycle runs and the command exits.`,
	Example: `  # Run on the configured schedule
  adscout scrape

  # One cycle for a single niche
  adscout scrape --once --niche Emagrecimento`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().BoolVar(&scrapeOnce, "once", false, "Run a single cycle and exit")
	scrapeCmd.Flags().StringSliceVar(&scrapeNiches, "niche", nil, "Only crawl the named niches (repeatable)")
}

func runScrape(cmd *cobra.Command, args []string) error {
	a, err := mustApp(cmd)
	if err != nil {
		return err
	}
	niches, err := a.Niches(scrapeNiches)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if !scrapeOnce && !a.Config.RunOnce {
		return a.Schedule(ctx, niches)
	}

	interactive := !a.Config.JSONLog && a.Config.LogLevel != "error"
	if interactive {
		bar := progressbar.NewOptions(len(niches),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Crawling niches"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		a.Runner.OnProgress = func(done, total int, r pipeline.NicheReport) {
			bar.Describe(r.Niche)
			_ = bar.Add(1)
		}
		defer bar.Finish()
	}

	report := a.RunCycle(ctx, niches)
	if interactive {
		printCycleReport(report)
	}

	if len(report.Niches) > 0 && report.Failures() == len(report.Niches) {
		return fmt.Errorf("all %d niches failed", len(report.Niches))
	}
	if report.Aborted {
		return fmt.Errorf("cycle stopped early after %d of %d niches", len(report.Niches), len(niches))
	}
	return nil
}

func printCycleReport(report pipeline.CycleReport) {
	fmt.Printf("\n%s\n", ui.Bold("Cycle summary"))
	for _, r := range report.Niches {
		detail := fmt.Sprintf("%d scraped, %d sent", r.Scraped, r.Normalized)
		switch {
		case r.Err != nil:
			detail = r.Err.Error()
		case r.Skipped:
			detail = "no ads found"
		}
		fmt.Printf("  %-20s %s  %s\n", r.Niche, ui.Status(!r.Failed()), ui.Dim(detail))
	}
	fmt.Printf("%s\n", ui.Dim(fmt.Sprintf("%d niche(s) in %s", len(report.Niches), report.Elapsed.Round(time.Millisecond))))
}
