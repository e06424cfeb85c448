package sheets

// headroom left below and to the right of written data for manual edits
const (
	PadRows    = 10
	PadColumns = 2
)

// Update is the full content a worksheet should hold after an upsert, Rows
// starts at the first row of the worksheet.
type Update struct {
	Rows     [][]string
	RowCount int
	ColCount int
}

func width(rows [][]string) int {
	w := 0
	for _, row := range rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

func widen(row []string, w int) []string {
	out := make([]string, w)
	copy(out, row)
	return out
}

// Overwrite replaces the worksheet with table plus blank headroom. A table
// with at most a header row is not written.
func Overwrite(table [][]string) (Update, bool) {
	if len(table) <= 1 {
		return Update{}, false
	}

	w := width(table) + PadColumns
	rows := make([][]string, 0, len(table)+PadRows)
	for _, row := range table {
		rows = append(rows, widen(row, w))
	}
	for i := 0; i < PadRows; i++ {
		rows = append(rows, make([]string, w))
	}
	return Update{Rows: rows, RowCount: len(rows), ColCount: w}, true
}

type PrependOptions struct {
	// HasHeader means row 1 of the worksheet and of the table is a header,
	// the table's header replaces the existing one.
	HasHeader bool
	// SkipIfFirstCellEquals is compared with the first cell of the first
	// data row already in the worksheet, a match means the worksheet is up
	// to date. Empty disables the check.
	SkipIfFirstCellEquals string
	// MaxRows caps the rows kept after shifting, 0 keeps everything.
	MaxRows int
}

// Prepend writes table at the top of the worksheet and shifts the existing
// rows down to make room. Rows shifted past MaxRows are dropped. Every row
// is widened with blanks to the widest row so stale cells get cleared.
func Prepend(existing, table [][]string, opts PrependOptions) (Update, bool) {
	if len(table) <= 1 {
		return Update{}, false
	}

	firstDataRow := 0
	if opts.HasHeader {
		firstDataRow = 1
	}
	if opts.SkipIfFirstCellEquals != "" &&
		firstDataRow < len(existing) &&
		len(existing[firstDataRow]) > 0 &&
		existing[firstDataRow][0] == opts.SkipIfFirstCellEquals {
		return Update{}, false
	}

	rows := make([][]string, 0, len(table)+len(existing))
	rows = append(rows, table...)

	offset := len(table)
	if opts.HasHeader {
		offset--
	}
	for i, row := range existing {
		if opts.HasHeader && i == 0 {
			continue
		}
		// 1-indexed row number after the shift
		shifted := i + 1 + offset
		if opts.MaxRows > 0 && shifted > opts.MaxRows {
			break
		}
		rows = append(rows, row)
	}

	w := width(table)
	if existingWidth := width(existing); existingWidth > w {
		w = existingWidth
	}
	for i, row := range rows {
		rows[i] = widen(row, w)
	}

	return Update{
		Rows:     rows,
		RowCount: len(rows) + PadRows,
		ColCount: w + PadColumns,
	}, true
}
