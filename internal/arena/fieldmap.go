package arena

import (
	"fmt"
	"strings"
)

// roster export column labels
const (
	labelLastName     = "last_name"
	labelFirstName    = "first_name"
	labelNickName     = "nick_name"
	labelGender       = "gender"
	labelBirthdate    = "person_birthdate"
	labelEmail        = "person_email"
	labelMobilePhone  = "mobile_phone"
	labelHomePhone    = "home_phone"
	labelAddress      = "address"
	labelCity         = "city"
	labelState        = "state"
	labelPostalCode   = "postal_code"
	labelMemberRole   = "member_role"
	labelRecordStatus = "record_status"
	labelDateInactive = "date_inactive"
	labelDateAdded    = "date_added"
)

// FieldMap maps a roster column label to its column index. It is built once
// per export from the header row so the export may reorder its columns.
type FieldMap map[string]int

// NewFieldMap builds the map from a header row, the first occurrence of a
// label wins.
func NewFieldMap(header []string) (FieldMap, error) {
	fields := FieldMap{}
	for i, label := range header {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if _, exists := fields[label]; exists {
			continue
		}
		fields[label] = i
	}

	if !fields.Has(labelLastName) {
		return nil, fmt.Errorf("roster header is missing column %q", labelLastName)
	}
	if !fields.Has(labelFirstName) && !fields.Has(labelNickName) {
		return nil, fmt.Errorf("roster header is missing column %q", labelFirstName)
	}
	return fields, nil
}

func (f FieldMap) Has(label string) bool {
	_, ok := f[label]
	return ok
}

// Get returns the trimmed value of the labelled column, "" when the column
// or the cell does not exist.
func (f FieldMap) Get(row []string, label string) string {
	idx, ok := f[label]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
