package sync

import (
	"arena-sheets/internal/arena"
	"arena-sheets/internal/report"
	"arena-sheets/internal/sheets"
)

// worksheet names of a class spreadsheet
const (
	WorksheetContactQueue = "Contact Queue"
	WorksheetMembers      = "Members"
	WorksheetVisitors     = "Visitors"
	WorksheetAttendance   = "Attendance"
	WorksheetEmailLists   = "Email Lists"
	WorksheetInactive     = "Inactive"
)

const (
	defaultWorksheetRows = 100
	defaultWorksheetCols = 15
	// ContactQueueMaxRows bounds the history kept in the contact queue.
	ContactQueueMaxRows = 100
)

// Worksheets lists the worksheets every class spreadsheet must have.
func Worksheets(includeInactive bool) []sheets.Worksheet {
	names := []string{
		WorksheetContactQueue,
		WorksheetMembers,
		WorksheetVisitors,
		WorksheetAttendance,
		WorksheetEmailLists,
	}
	if includeInactive {
		names = append(names, WorksheetInactive)
	}

	out := make([]sheets.Worksheet, len(names))
	for i, name := range names {
		out[i] = sheets.Worksheet{Name: name, Rows: defaultWorksheetRows, Cols: defaultWorksheetCols}
	}
	return out
}

// Reports are the tables computed for one class.
type Reports struct {
	AsOf         string
	ContactQueue report.Table
	Members      report.Table
	Visitors     report.Table
	Attendance   report.Table
	EmailLists   report.Table
	// Inactive is nil unless requested.
	Inactive report.Table
}

// BuildReports computes every report of a class, asOf is stamped on new
// contact queue entries.
func BuildReports(data arena.ClassData, settings report.ClassSettings, asOf string, includeInactive bool) Reports {
	reports := Reports{
		AsOf:         asOf,
		ContactQueue: report.ContactQueue(data.Roster, asOf, settings.ContactQueueItems),
		Members:      report.Members(data.Roster),
		Visitors:     report.Visitors(data.Roster),
		Attendance:   report.AttendanceGrid(data.Attendance),
		EmailLists:   report.EmailLists(data.Roster),
	}
	if includeInactive {
		reports.Inactive = report.Inactive(data.Roster)
	}
	return reports
}

// Named returns the reports keyed by worksheet name, in worksheet order.
func (r Reports) Named() []NamedReport {
	out := []NamedReport{
		{Worksheet: WorksheetContactQueue, Table: r.ContactQueue},
		{Worksheet: WorksheetMembers, Table: r.Members},
		{Worksheet: WorksheetVisitors, Table: r.Visitors},
		{Worksheet: WorksheetAttendance, Table: r.Attendance},
		{Worksheet: WorksheetEmailLists, Table: r.EmailLists},
	}
	if r.Inactive != nil {
		out = append(out, NamedReport{Worksheet: WorksheetInactive, Table: r.Inactive})
	}
	return out
}

type NamedReport struct {
	Worksheet string
	Table     report.Table
}
