package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"arena-sheets/lib/serviceutil"
	"arena-sheets/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	classID    string
	noScrape   bool
	noSheets   bool
	dumpHttp   string
)

var providers telemetry.Telemetry

var rootCmd = &cobra.Command{
	Use:   "arena-sheets",
	Short: "arena-sheets scrapes class rosters and attendance from Arena and publishes reports to Google Sheets.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
		if verbose {
			slog.DebugContext(cmd.Context(), "verbose logging enabled")
		}

		var err error
		providers, err = telemetry.SetupFromEnv(cmd.Context(), "arena-sheets")
		if err != nil {
			serviceutil.Fatal("setup telemetry", err)
		}
		telemetry.InstrumentPerfStats(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := providers.Shutdown(context.Background())
		if err != nil {
			slog.Warn("shutdown telemetry", "err", err)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		runCmd.Run(cmd, args)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "config.json5", "The configuration file, <name>.local.json5 overrides it.")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
	flags.StringVar(&classID, "class-id", "", "Only process the class with this id.")
	flags.BoolVar(&noScrape, "no-scrape", false, "Use the stored exports instead of scraping Arena.")
	flags.BoolVar(&noSheets, "no-sheets", false, "Do not write to Google Sheets, print the reports instead.")
	flags.StringVar(&dumpHttp, "dump-http", "", "Write every Arena http exchange to this directory.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
