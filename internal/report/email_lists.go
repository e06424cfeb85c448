package report

import (
	"strings"

	"arena-sheets/internal/arena"
)

const emailListPadColumns = 9

type emailSegment struct {
	label   string
	matches func(p arena.PersonRecord) bool
}

var emailSegments = []emailSegment{
	{label: "Members", matches: func(p arena.PersonRecord) bool { return p.IsMember }},
	{label: "Visitors", matches: func(p arena.PersonRecord) bool { return !p.IsMember }},
	{label: "Men", matches: func(p arena.PersonRecord) bool { return p.Gender == "M" }},
	{label: "Women", matches: func(p arena.PersonRecord) bool { return p.Gender == "F" }},
}

// EmailLists returns one row per segment holding the comma separated emails
// of the active people in it. The rows are padded with blank cells so a
// rewrite clears whatever was next to them.
func EmailLists(roster []arena.PersonRecord) Table {
	withEmail := filter(roster, func(p arena.PersonRecord) bool {
		return p.IsActive && strings.TrimSpace(p.Email) != ""
	})

	table := make(Table, 0, len(emailSegments))
	for _, segment := range emailSegments {
		var emails []string
		for _, p := range withEmail {
			if segment.matches(p) {
				emails = append(emails, p.Email)
			}
		}
		row := []string{segment.label, strings.Join(emails, ", ")}
		row = append(row, make([]string, emailListPadColumns)...)
		table = append(table, row)
	}
	return table
}
