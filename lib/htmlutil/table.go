package htmlutil

import (
	"context"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Table is a list of rows keyed by column position. Exports from Arena use
// the first row as the header.
type Table [][]string

// Cell returns the text at (row, col) or "" when the row is too short.
func (t Table) Cell(row, col int) string {
	if row < 0 || row >= len(t) {
		return ""
	}
	if col < 0 || col >= len(t[row]) {
		return ""
	}
	return t[row][col]
}

// Width is the length of the longest row.
func (t Table) Width() int {
	width := 0
	for _, row := range t {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Header returns the first row, nil for an empty table.
func (t Table) Header() []string {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// Body returns every row but the header.
func (t Table) Body() Table {
	if len(t) <= 1 {
		return nil
	}
	return t[1:]
}

// ErrNoTable is returned when a document contains no <table> element.
var ErrNoTable = fmt.Errorf("document contains no table")

// ExtractTable reads the first <table> of an html document, every <tr>
// becomes a row and every <th>/<td> a cell. Nested tables are ignored.
func ExtractTable(ctx context.Context, r io.Reader) (Table, error) {
	ctx, span := tracer.Start(ctx, "ExtractTable")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		span.SetStatus(codes.Error, ErrNoTable.Error())
		return nil, ErrNoTable
	}

	return tableFromSelection(ctx, table), nil
}

func tableFromSelection(ctx context.Context, table *goquery.Selection) Table {
	_, span := tracer.Start(ctx, "tableFromSelection")
	defer span.End()

	var out Table
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		// rows of nested tables belong to those tables
		if tr.ParentsFiltered("table").First().Get(0) != table.Get(0) {
			return
		}
		cells := tr.ChildrenFiltered("th, td")
		row := make([]string, cells.Length())
		// cells are only trimmed, names are joined on their exact text
		cells.Each(func(i int, cell *goquery.Selection) {
			row[i] = TrimText(GetText(cell.Get(0)))
		})
		out = append(out, row)
	})
	span.SetAttributes(attribute.Int("rows", len(out)))

	return out
}
