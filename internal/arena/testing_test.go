package arena

import (
	"time"

	"arena-sheets/lib/htmlutil"
)

func date(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// columns are deliberately out of the usual export order
var rosterHeader = []string{
	"member_role", "last_name", "first_name", "nick_name", "gender",
	"person_birthdate", "person_email", "mobile_phone", "home_phone",
	"address", "city", "state", "postal_code", "record_status",
	"date_inactive", "date_added",
}

func rosterTable(people ...map[string]string) htmlutil.Table {
	table := htmlutil.Table{rosterHeader}
	for _, p := range people {
		row := make([]string, len(rosterHeader))
		for i, label := range rosterHeader {
			row[i] = p[label]
		}
		table = append(table, row)
	}
	return table
}

// attendanceFixture is four sundays in August 2024 plus an empty 9/1 column.
// 8/18 has no marks at all.
func attendanceFixture() htmlutil.Table {
	return htmlutil.Table{
		{"Name", "", "", "", "", "First", "Last", "", "8/4/2024 (Sun)", "8/11/2024", "8/18/2024", "8/25/2024", "9/1/2024", "Total"},
		{"Smith, John", "", "", "", "", "1/7/2024", "8/4/2024", "", "X", "", "", "", "", "1"},
		{"Smith, Jane", "", "", "", "", "6/2/2024", "8/25/2024", "", "", "X", "", "X", "", "2"},
		{"Doe, Visitor", "", "", "", "", "8/25/2024", "8/25/2024", "", "", "", "", "X", "", "1"},
	}
}
