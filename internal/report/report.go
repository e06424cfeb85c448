package report

import (
	"sort"
	"time"

	"arena-sheets/internal/arena"
	"arena-sheets/internal/chrono"
)

// Table is a rectangular-ish grid of cells, the first row is the header
// when there is one.
type Table [][]string

// withHeader prepends header to body, an empty body stays empty so a lone
// header never reads as one record.
func withHeader(header []string, body Table) Table {
	if len(body) == 0 {
		return nil
	}
	return append(Table{header}, body...)
}

func filter(roster []arena.PersonRecord, keep func(p arena.PersonRecord) bool) []arena.PersonRecord {
	var out []arena.PersonRecord
	for _, p := range roster {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

var MembersHeader = []string{
	"Last Name", "First Name", "Gender", "DOB", "Email", "Cell Phone",
	"Home Phone", "Address", "City, State Zip", "Role", "Last Present",
}

// Members lists the active members sorted by last name, ties keep roster order.
func Members(roster []arena.PersonRecord) Table {
	members := filter(roster, func(p arena.PersonRecord) bool {
		return p.IsActive && p.IsMember
	})
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].LastName < members[j].LastName
	})

	body := make(Table, 0, len(members))
	for _, p := range members {
		body = append(body, []string{
			p.LastName, p.FirstName, p.Gender, p.DOB, p.Email, p.CellPhone,
			p.HomePhone, p.Address, p.CityStateZip, p.Role,
			chrono.FormatDate(p.LastPresent),
		})
	}
	return withHeader(MembersHeader, body)
}

var VisitorsHeader = []string{
	"First Visit", "Last Visit", "Last Name", "First Name", "Gender", "DOB",
	"Email", "Cell Phone", "Home Phone", "Address", "City, State Zip", "Role",
}

// Visitors lists the active non-members, most recent first visit first.
// Visitors who never attended sort last.
func Visitors(roster []arena.PersonRecord) Table {
	visitors := filter(roster, func(p arena.PersonRecord) bool {
		return p.IsActive && !p.IsMember
	})
	sort.SliceStable(visitors, func(i, j int) bool {
		return visitors[i].FirstPresent.After(visitors[j].FirstPresent)
	})

	body := make(Table, 0, len(visitors))
	for _, p := range visitors {
		body = append(body, []string{
			chrono.FormatDate(p.FirstPresent), chrono.FormatDate(p.LastPresent),
			p.LastName, p.FirstName, p.Gender, p.DOB, p.Email, p.CellPhone,
			p.HomePhone, p.Address, p.CityStateZip, p.Role,
		})
	}
	return withHeader(VisitorsHeader, body)
}

// AttendanceGrid lays the attendance records out with one column per date,
// in the dataset's date order. The header is always present.
func AttendanceGrid(dataset arena.AttendanceDataset) Table {
	header := []string{"Last Name", "First Name", "Last Present"}
	for _, date := range dataset.Dates {
		header = append(header, chrono.FormatDate(date))
	}

	table := Table{header}
	for _, r := range dataset.Records {
		row := []string{r.LastName, r.FirstName, chrono.FormatDate(r.LastPresent)}
		for i := range dataset.Dates {
			mark := ""
			if i < len(r.Marks) {
				mark = r.Marks[i]
			}
			row = append(row, mark)
		}
		table = append(table, row)
	}
	return table
}

const (
	InactiveReasonMarked     = "Marked Inactive"
	InactiveReasonAttendance = "Attendance"
)

var InactiveHeader = []string{
	"Inactive Date", "Reason", "Last Name", "First Name", "Gender", "Email",
	"Cell Phone", "Home Phone", "Address", "City, State Zip", "Role", "Last Present",
}

// Inactive lists everyone marked inactive or missing from attendance, most
// recently inactive first.
func Inactive(roster []arena.PersonRecord) Table {
	people := filter(roster, func(p arena.PersonRecord) bool {
		return !p.IsActive || p.IsActiveMIA
	})
	sort.SliceStable(people, func(i, j int) bool {
		a, b := inactiveDate(people[i]), inactiveDate(people[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return people[i].LastName < people[j].LastName
	})

	body := make(Table, 0, len(people))
	for _, p := range people {
		reason := InactiveReasonMarked
		if p.IsActiveMIA {
			reason = InactiveReasonAttendance
		}
		body = append(body, []string{
			chrono.FormatDate(inactiveDate(p)), reason, p.LastName, p.FirstName,
			p.Gender, p.Email, p.CellPhone, p.HomePhone, p.Address,
			p.CityStateZip, p.Role, chrono.FormatDate(p.LastPresent),
		})
	}
	return withHeader(InactiveHeader, body)
}

// inactiveDate is the MIA proxy date for people missing from attendance,
// the recorded inactivation date otherwise.
func inactiveDate(p arena.PersonRecord) time.Time {
	if p.IsActiveMIA {
		return p.IsActiveMIADate
	}
	return p.DateInactive
}
