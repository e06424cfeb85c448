package commands

import (
	"context"
	"log/slog"

	"arena-sheets/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(updateCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--class-id <id>] [--no-scrape] [--no-sheets]",
	Short: "Scrapes Arena then updates every class spreadsheet, this is the default command.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := newApp(ctx)
		defer a.Close()

		if !noScrape {
			runScrape(ctx, a)
		}
		if noSheets {
			runPreview(ctx, a)
			return
		}
		runUpdate(ctx, a)
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--class-id <id>]",
	Short: "Downloads the roster and attendance exports of every class into the database.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := newApp(ctx)
		defer a.Close()
		runScrape(ctx, a)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [--class-id <id>]",
	Short: "Updates every class spreadsheet from the stored exports.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := newApp(ctx)
		defer a.Close()
		runUpdate(ctx, a)
	},
}

func runScrape(ctx context.Context, a app) {
	service, err := a.scrapeService(ctx)
	if err != nil {
		serviceutil.Fatal("init scraper", err)
	}
	summary, err := service.ScrapeAll(ctx, classID)
	if err != nil {
		serviceutil.Fatal("scrape arena", err)
	}
	slog.Info(
		"scraped arena",
		"classes", summary.Classes,
		"exported", summary.Exported,
		"failed", summary.Failed,
	)
}

func runUpdate(ctx context.Context, a app) {
	service, err := a.syncService(ctx)
	if err != nil {
		serviceutil.Fatal("init google sheets", err)
	}
	summary, err := service.UpdateAll(ctx, classID)
	if err != nil {
		serviceutil.Fatal("update spreadsheets", err)
	}
	slog.Info(
		"updated spreadsheets",
		"run_id", summary.RunID,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
}
