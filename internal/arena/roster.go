package arena

import (
	"fmt"
	"strings"
	"time"

	"arena-sheets/internal/chrono"
	"arena-sheets/lib/htmlutil"
)

// IsMemberRole reports whether a member_role describes a member rather than a visitor.
func IsMemberRole(role string) bool {
	if strings.Contains(role, "Visit") {
		return false
	}
	switch role {
	case "YVNA", "YMNA":
		return false
	}
	return true
}

// IsActiveStatus reports whether a person is active, an inactivation date
// always wins over the status.
func IsActiveStatus(dateInactive, recordStatus string) bool {
	if strings.TrimSpace(dateInactive) != "" {
		return false
	}
	return recordStatus == "Active"
}

func genderFromCode(code string) string {
	if code == "0" {
		return "M"
	}
	return "F"
}

func cityStateZip(city, state, zip string) string {
	if city == "" && state == "" && zip == "" {
		return ""
	}
	return city + ", " + state + " " + zip
}

// ParseRoster parses a roster export and joins the attendance dataset onto
// it by exact full name.
func ParseRoster(table htmlutil.Table, attendance AttendanceDataset, loc *time.Location) ([]PersonRecord, error) {
	if len(table) == 0 {
		return nil, ErrMissingData
	}
	latest, ok := attendance.Latest()
	if !ok {
		return nil, ErrNoAttendanceDates
	}
	oldest, _ := attendance.Oldest()

	fields, err := NewFieldMap(table.Header())
	if err != nil {
		return nil, err
	}
	byName := attendance.ByFullName()

	var out []PersonRecord
	for i, row := range table.Body() {
		lastName := fields.Get(row, labelLastName)
		firstName := fields.Get(row, labelFirstName)
		if firstName == "" {
			firstName = fields.Get(row, labelNickName)
		}
		if lastName == "" && firstName == "" {
			continue
		}

		person := PersonRecord{
			FullName:  lastName + ", " + firstName,
			LastName:  lastName,
			FirstName: firstName,
			Gender:    genderFromCode(fields.Get(row, labelGender)),
			DOB:       chrono.StripTime(fields.Get(row, labelBirthdate)),
			Email:     fields.Get(row, labelEmail),
			CellPhone: fields.Get(row, labelMobilePhone),
			HomePhone: fields.Get(row, labelHomePhone),
			Address:   fields.Get(row, labelAddress),
			CityStateZip: cityStateZip(
				fields.Get(row, labelCity),
				fields.Get(row, labelState),
				fields.Get(row, labelPostalCode),
			),
			DateAdded: chrono.StripTime(fields.Get(row, labelDateAdded)),
			Role:      fields.Get(row, labelMemberRole),
		}
		person.IsMember = IsMemberRole(person.Role)

		dateInactive := fields.Get(row, labelDateInactive)
		person.IsActive = IsActiveStatus(dateInactive, fields.Get(row, labelRecordStatus))
		if dateInactive != "" {
			person.DateInactive, err = chrono.ParseDate(dateInactive, loc)
			if err != nil {
				return nil, fmt.Errorf("roster row %d (%s) date_inactive: %w", i+1, person.FullName, err)
			}
		}

		record, joined := byName[person.FullName]
		if joined {
			person.AttendanceJoined = true
			if !record.FirstPresent.IsZero() {
				person.FirstPresent = record.FirstPresent
				person.FirstPresentWeeksAgo = chrono.FullWeeksBetweenExcludingGaps(record.FirstPresent, latest, attendance.GapDates)
			}
			if !record.LastPresent.IsZero() {
				person.LastPresent = record.LastPresent
				person.LastPresentWeeksAgo = chrono.FullWeeksBetweenExcludingGaps(record.LastPresent, latest, attendance.GapDates)
			}
		} else if person.IsActive {
			person.IsActiveMIA = true
			person.IsActiveMIADate = oldest
		}

		out = append(out, person)
	}
	return out, nil
}

// Parse parses both exports of a class.
func Parse(roster, attendance htmlutil.Table, loc *time.Location) (ClassData, error) {
	if len(roster.Body()) == 0 || len(attendance.Body()) == 0 {
		return ClassData{}, ErrMissingData
	}
	dataset, err := ParseAttendance(attendance, loc)
	if err != nil {
		return ClassData{}, fmt.Errorf("attendance: %w", err)
	}
	people, err := ParseRoster(roster, dataset, loc)
	if err != nil {
		return ClassData{}, fmt.Errorf("roster: %w", err)
	}
	return ClassData{Roster: people, Attendance: dataset}, nil
}
