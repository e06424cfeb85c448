package sheets

import (
	"context"
)

// Worksheet describes a worksheet that must exist in every class spreadsheet.
type Worksheet struct {
	Name string
	Rows int
	Cols int
}

// API is the subset of Google Drive and Sheets the manager needs.
//
// note: fault injection point
type API interface {
	// ListSpreadsheets returns name -> id of every non-trashed spreadsheet.
	ListSpreadsheets(ctx context.Context) (map[string]string, error)
	// CopySpreadsheet copies the template under a new name, returning the new id.
	CopySpreadsheet(ctx context.Context, templateID, name string) (string, error)
	// Worksheets returns title -> sheet id of a spreadsheet's worksheets.
	Worksheets(ctx context.Context, spreadsheetID string) (map[string]int64, error)
	AddWorksheet(ctx context.Context, spreadsheetID string, worksheet Worksheet) (int64, error)
	ResizeWorksheet(ctx context.Context, spreadsheetID string, sheetID int64, rows, cols int) error
	// ReadValues returns every non-empty row of a worksheet, trailing blank
	// cells may be omitted.
	ReadValues(ctx context.Context, spreadsheetID, worksheet string) ([][]string, error)
	// WriteValues writes rows starting at A1.
	WriteValues(ctx context.Context, spreadsheetID, worksheet string, rows [][]string) error
}
