package arena

import (
	"fmt"
	"strings"
	"time"

	"arena-sheets/internal/chrono"
	"arena-sheets/lib/htmlutil"
)

// attendance export layout
const (
	attendanceNameCol         = 0
	attendanceFirstPresentCol = 5
	attendanceLastPresentCol  = 6
	attendanceDatesStartCol   = 8
	// index of the last date column counted from the end of the header
	attendanceTrailingCols = 2
)

// IsMark reports whether an attendance cell records presence. Only an
// uppercase "X" counts.
func IsMark(cell string) bool {
	return strings.TrimSpace(cell) == "X"
}

type dateColumn struct {
	index int
	date  time.Time
	marks int
}

// parseHeaderDate cleans a header cell like "9/7/2014 (Sun)" down to the
// date, a header that is not a date reports false.
func parseHeaderDate(cell string, loc *time.Location) (time.Time, bool) {
	cell = strings.TrimSpace(cell)
	slash := strings.LastIndex(cell, "/")
	if slash < 0 {
		return time.Time{}, false
	}
	end := slash + 5
	if end > len(cell) {
		end = len(cell)
	}
	date, err := chrono.ParseDate(cell[:end], loc)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// splitDisplayName splits "Last, First" on the first comma.
func splitDisplayName(name string) (last, first string) {
	idx := strings.Index(name, ",")
	if idx < 0 {
		return strings.TrimSpace(name), ""
	}
	return strings.TrimSpace(name[:idx]), strings.TrimSpace(name[idx+1:])
}

func parseOptionalDate(value string, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	return chrono.ParseDate(value, loc)
}

// ParseAttendance parses an attendance export. Date columns are scanned
// right to left, the run between the most recent and the oldest column
// holding a mark is kept and the unmarked columns inside it are gap dates.
func ParseAttendance(table htmlutil.Table, loc *time.Location) (AttendanceDataset, error) {
	if len(table) == 0 {
		return AttendanceDataset{}, ErrMissingData
	}

	header := table.Header()
	body := table.Body()

	var candidates []dateColumn
	for col := len(header) - attendanceTrailingCols; col >= attendanceDatesStartCol; col-- {
		date, ok := parseHeaderDate(header[col], loc)
		if !ok {
			continue
		}
		marks := 0
		for _, row := range body {
			if col < len(row) && IsMark(row[col]) {
				marks++
			}
		}
		candidates = append(candidates, dateColumn{index: col, date: date, marks: marks})
	}

	first, last := -1, -1
	for i, c := range candidates {
		if c.marks == 0 {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}

	dataset := AttendanceDataset{}
	var kept []dateColumn
	if first >= 0 {
		kept = candidates[first : last+1]
	}
	for _, c := range kept {
		dataset.Dates = append(dataset.Dates, c.date)
		if c.marks == 0 {
			dataset.GapDates = append(dataset.GapDates, c.date)
		}
	}

	for i, row := range body {
		display := htmlutil.Table{row}.Cell(0, attendanceNameCol)
		if strings.TrimSpace(display) == "" {
			continue
		}
		last, first := splitDisplayName(display)

		firstPresent, err := parseOptionalDate(htmlutil.Table{row}.Cell(0, attendanceFirstPresentCol), loc)
		if err != nil {
			return AttendanceDataset{}, fmt.Errorf("attendance row %d (%s) first present: %w", i+1, display, err)
		}
		lastPresent, err := parseOptionalDate(htmlutil.Table{row}.Cell(0, attendanceLastPresentCol), loc)
		if err != nil {
			return AttendanceDataset{}, fmt.Errorf("attendance row %d (%s) last present: %w", i+1, display, err)
		}

		marks := make([]string, len(kept))
		for j, c := range kept {
			if c.index < len(row) {
				marks[j] = strings.TrimSpace(row[c.index])
			}
		}

		dataset.Records = append(dataset.Records, AttendanceRecord{
			FullName:     display,
			LastName:     last,
			FirstName:    first,
			FirstPresent: firstPresent,
			LastPresent:  lastPresent,
			Marks:        marks,
		})
	}

	return dataset, nil
}
