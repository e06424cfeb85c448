package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"arena-sheets/internal/store"
	"arena-sheets/lib/serviceutil"
	"arena-sheets/services/sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(previewCmd)
}

var previewCmd = &cobra.Command{
	Use:   "preview [--class-id <id>]",
	Short: "Prints the reports of every class from the stored exports without writing anything.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := newApp(ctx)
		defer a.Close()
		runPreview(ctx, a)
	},
}

func runPreview(ctx context.Context, a app) {
	classes, err := a.store.Classes(ctx)
	if err != nil {
		serviceutil.Fatal("list classes", err)
	}

	service := a.previewService()
	for _, class := range classes {
		if classID != "" && class.ID != classID {
			continue
		}
		reports, _, err := service.ClassReports(ctx, class)
		if err != nil {
			slog.Warn("skipping class", "class_id", class.ID, "class", class.Name, "err", err)
			continue
		}
		renderReports(os.Stdout, class, reports)
	}
}

func renderReports(out io.Writer, class store.Class, reports sync.Reports) {
	for _, named := range reports.Named() {
		if len(named.Table) == 0 {
			continue
		}

		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetTitle(fmt.Sprintf("%s: %s", class.Name, named.Worksheet))

		header := table.Row{}
		for _, cell := range named.Table[0] {
			header = append(header, cell)
		}
		t.AppendHeader(header)

		rows := make([]table.Row, 0, len(named.Table)-1)
		for _, line := range named.Table[1:] {
			row := make(table.Row, len(line))
			for i, cell := range line {
				row[i] = cell
			}
			rows = append(rows, row)
		}
		t.AppendRows(rows)
		t.SetStyle(table.StyleRounded)
		t.Render()
	}
}
