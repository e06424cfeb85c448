package commands

import (
	"log/slog"

	"arena-sheets/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <data directory>",
	Short: "Loads a directory of exports and its classes.json into the database.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := newApp(ctx)
		defer a.Close()

		count, err := a.store.ImportDirectory(ctx, args[0], a.time.Now())
		if err != nil {
			serviceutil.Fatal("import data directory", err)
		}
		slog.Info("imported exports", "directory", args[0], "snapshots", count)
	},
}
