package report

import (
	"arena-sheets/internal/arena"
	"arena-sheets/internal/chrono"
	"arena-sheets/lib/textutil"
)

var ContactQueueHeader = []string{
	"Date Added", "Last Name", "First Name(s)", "Phone(s)", "Email(s)",
	"Last Present", "Contact Reason", "Contacted By", "Contact Notes",
}

// ContactQueueSeparator is appended after every batch of entries.
const ContactQueueSeparator = "--------"

type contactEntry struct {
	lastName    string
	firstName   string
	address     string
	gender      string
	email       string
	cellPhone   string
	lastPresent string
	reason      string
}

func (e contactEntry) household() string {
	return e.lastName + "\x00" + e.address
}

func contactCandidates(roster []arena.PersonRecord, rules []Rule) []contactEntry {
	var out []contactEntry
	for _, rule := range rules {
		for _, p := range roster {
			if !p.IsActive || !rule.Filter.Matches(p) {
				continue
			}
			out = append(out, contactEntry{
				lastName:    p.LastName,
				firstName:   p.FirstName,
				address:     p.Address,
				gender:      p.Gender,
				email:       p.Email,
				cellPhone:   p.CellPhone,
				lastPresent: chrono.FormatDate(p.LastPresent),
				reason:      rule.Reason,
			})
		}
	}
	return out
}

// ContactQueue builds the follow-up list. Matches of every rule are merged
// into one row per household (last name and address), the first match
// keeps its reason. A match of the other gender in the same household is
// folded into that row as the spouse.
func ContactQueue(roster []arena.PersonRecord, asOf string, rules []Rule) Table {
	unmerged := contactCandidates(roster, rules)

	seen := make(map[string]struct{})
	var merged []contactEntry
	for _, e := range unmerged {
		key := e.household()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, e)
	}

	body := make(Table, 0, len(merged))
	for _, m := range merged {
		firstNames, phones, emails := m.firstName, m.cellPhone, m.email
		for _, u := range unmerged {
			if u.lastName != m.lastName || u.address != m.address || u.gender == m.gender {
				continue
			}
			firstNames = textutil.JoinNonEmpty(" and ", m.firstName, u.firstName)
			phones = textutil.JoinNonEmpty(" ", m.cellPhone, u.cellPhone)
			emails = textutil.JoinNonEmpty("; ", m.email, u.email)
			break
		}
		body = append(body, []string{
			asOf, m.lastName, firstNames, phones, emails, m.lastPresent, m.reason, "", "",
		})
	}

	table := withHeader(ContactQueueHeader, body)
	if len(table) > 0 {
		table = append(table, []string{ContactQueueSeparator})
	}
	return table
}
