package arena

import (
	"errors"
	"testing"
	"time"

	"arena-sheets/internal/chrono"
	"arena-sheets/lib/htmlutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseAttendance(t *testing.T) {
	dataset, err := ParseAttendance(attendanceFixture(), time.UTC)
	require.NoError(t, err)

	expectedDates := []time.Time{
		date(2024, time.August, 25),
		date(2024, time.August, 18),
		date(2024, time.August, 11),
		date(2024, time.August, 4),
	}
	diff := cmp.Diff(expectedDates, dataset.Dates)
	if diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, []time.Time{date(2024, time.August, 18)}, dataset.GapDates)

	require.Len(t, dataset.Records, 3)
	john := dataset.Records[0]
	require.Equal(t, "Smith, John", john.FullName)
	require.Equal(t, "Smith", john.LastName)
	require.Equal(t, "John", john.FirstName)
	require.Equal(t, date(2024, time.January, 7), john.FirstPresent)
	require.Equal(t, date(2024, time.August, 4), john.LastPresent)
	require.Equal(t, []string{"", "", "", "X"}, john.Marks)
	require.Equal(t, []string{"X", "", "X", ""}, dataset.Records[1].Marks)

	latest, ok := dataset.Latest()
	require.True(t, ok)
	require.Equal(t, date(2024, time.August, 25), latest)
	oldest, ok := dataset.Oldest()
	require.True(t, ok)
	require.Equal(t, date(2024, time.August, 4), oldest)
	require.Equal(t, date(2024, time.August, 4), dataset.Chronological()[0])
	require.True(t, dataset.Contains(date(2024, time.August, 18)))
	require.False(t, dataset.Contains(date(2024, time.September, 1)))
}

func TestParseAttendanceLowercaseIsNotMark(t *testing.T) {
	require.True(t, IsMark("X"))
	require.True(t, IsMark(" X "))
	require.False(t, IsMark("x"))
	require.False(t, IsMark(""))

	table := attendanceFixture()
	table[2][9] = "x"
	dataset, err := ParseAttendance(table, time.UTC)
	require.NoError(t, err)
	require.Equal(t, []time.Time{
		date(2024, time.August, 18),
		date(2024, time.August, 11),
	}, dataset.GapDates)
	require.Len(t, dataset.Dates, 4)
}

func TestParseAttendanceNoMarks(t *testing.T) {
	table := htmlutil.Table{
		{"Name", "", "", "", "", "First", "Last", "", "8/4/2024", "8/11/2024", "Total"},
		{"Smith, John", "", "", "", "", "", "", "", "", "", "0"},
	}
	dataset, err := ParseAttendance(table, time.UTC)
	require.NoError(t, err)
	require.Empty(t, dataset.Dates)
	require.Empty(t, dataset.GapDates)
	require.Len(t, dataset.Records, 1)
	require.Empty(t, dataset.Records[0].Marks)

	_, ok := dataset.Latest()
	require.False(t, ok)
}

func TestParseAttendanceMalformedDate(t *testing.T) {
	table := attendanceFixture()
	table[1][6] = "last tuesday"
	_, err := ParseAttendance(table, time.UTC)
	require.Error(t, err)
}

func TestParseAttendanceSkipsUndatedColumns(t *testing.T) {
	table := htmlutil.Table{
		{"Name", "", "", "", "", "First", "Last", "", "8/4/2024", "Notes", "8/11/2024", "Total"},
		{"Smith, John", "", "", "", "", "", "", "", "X", "X", "X", "2"},
	}
	dataset, err := ParseAttendance(table, time.UTC)
	require.NoError(t, err)
	require.Equal(t, []time.Time{date(2024, time.August, 11), date(2024, time.August, 4)}, dataset.Dates)
	require.Equal(t, []string{"X", "X"}, dataset.Records[0].Marks)
}

func TestNewFieldMap(t *testing.T) {
	fields, err := NewFieldMap([]string{"first_name", " last_name ", "gender", "gender"})
	require.NoError(t, err)
	require.Equal(t, 1, fields["last_name"])
	require.Equal(t, 2, fields["gender"])
	require.Equal(t, "Smith", fields.Get([]string{"John", " Smith "}, "last_name"))
	require.Equal(t, "", fields.Get([]string{"John"}, "last_name"))
	require.Equal(t, "", fields.Get([]string{"John"}, "address"))

	_, err = NewFieldMap([]string{"first_name"})
	require.Error(t, err)
	_, err = NewFieldMap([]string{"last_name", "gender"})
	require.Error(t, err)
	_, err = NewFieldMap([]string{"last_name", "nick_name"})
	require.NoError(t, err)
}

func TestParseRoster(t *testing.T) {
	roster := rosterTable(
		map[string]string{
			"last_name": "Smith", "first_name": "John", "gender": "0",
			"person_birthdate": "3/4/1970 12:00:00 AM", "person_email": "john@example.com",
			"address": "1 Main St", "city": "Dallas", "state": "TX", "postal_code": "75001",
			"member_role": "Member", "record_status": "Active",
		},
		map[string]string{
			"last_name": "Smith", "first_name": "Jane", "gender": "1",
			"address": "1 Main St", "member_role": "Member", "record_status": "Active",
		},
		map[string]string{
			"last_name": "Doe", "nick_name": "Visitor", "gender": "1",
			"member_role": "Visitor", "record_status": "Active",
		},
		map[string]string{
			"last_name": "Gone", "first_name": "Long", "member_role": "Member",
			"record_status": "Active", "date_inactive": "5/5/2024 12:00:00 AM",
		},
		map[string]string{
			"last_name": "Pending", "first_name": "Pat", "member_role": "YMNA",
			"record_status": "Pending",
		},
		map[string]string{
			"last_name": "Missing", "first_name": "Mia", "member_role": "Member",
			"record_status": "Active",
		},
	)

	attendance, err := ParseAttendance(attendanceFixture(), time.UTC)
	require.NoError(t, err)
	people, err := ParseRoster(roster, attendance, time.UTC)
	require.NoError(t, err)
	require.Len(t, people, 6)

	john := people[0]
	require.Equal(t, "Smith, John", john.FullName)
	require.Equal(t, "M", john.Gender)
	require.Equal(t, "3/4/1970", john.DOB)
	require.Equal(t, "Dallas, TX 75001", john.CityStateZip)
	require.True(t, john.IsMember)
	require.True(t, john.IsActive)
	require.True(t, john.AttendanceJoined)
	require.False(t, john.IsActiveMIA)
	// 8/4 -> 8/25 is three weeks, 8/18 had no session
	require.Equal(t, 2, john.LastPresentWeeksAgo)
	require.Equal(t, date(2024, time.August, 4), john.LastPresent)

	jane := people[1]
	require.Equal(t, "F", jane.Gender)
	require.Equal(t, "", jane.CityStateZip)
	require.Equal(t, 0, jane.LastPresentWeeksAgo)

	visitor := people[2]
	require.Equal(t, "Doe, Visitor", visitor.FullName)
	require.False(t, visitor.IsMember)
	require.Equal(t, 0, visitor.FirstPresentWeeksAgo)

	gone := people[3]
	require.False(t, gone.IsActive)
	require.False(t, gone.IsActiveMIA)
	require.Equal(t, date(2024, time.May, 5), gone.DateInactive)

	pending := people[4]
	require.False(t, pending.IsActive)
	require.False(t, pending.IsMember)
	require.False(t, pending.IsActiveMIA)

	mia := people[5]
	require.True(t, mia.IsActive)
	require.False(t, mia.AttendanceJoined)
	require.True(t, mia.IsActiveMIA)
	require.Equal(t, date(2024, time.August, 4), mia.IsActiveMIADate)
	_, ok := mia.Field("lastPresentWeeksAgo")
	require.False(t, ok)
}

func TestParseRosterJoinIsExact(t *testing.T) {
	roster := rosterTable(map[string]string{
		"last_name": "smith", "first_name": "John", "member_role": "Member", "record_status": "Active",
	})
	attendance, err := ParseAttendance(attendanceFixture(), time.UTC)
	require.NoError(t, err)

	people, err := ParseRoster(roster, attendance, time.UTC)
	require.NoError(t, err)
	require.False(t, people[0].AttendanceJoined)
	require.True(t, people[0].IsActiveMIA)

	suggestions := SuggestJoins(ClassData{Roster: people, Attendance: attendance})
	require.Len(t, suggestions, 1)
	require.Equal(t, "smith, John", suggestions[0].RosterName)
	require.Equal(t, "Smith, John", suggestions[0].AttendanceName)
	require.InDelta(t, 1, suggestions[0].Similarity, 0.0001)
}

func TestParseRosterMalformedInactiveDate(t *testing.T) {
	roster := rosterTable(map[string]string{
		"last_name": "Smith", "first_name": "John", "date_inactive": "sometime",
	})
	attendance, err := ParseAttendance(attendanceFixture(), time.UTC)
	require.NoError(t, err)
	_, err = ParseRoster(roster, attendance, time.UTC)
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	_, err := Parse(nil, attendanceFixture(), time.UTC)
	require.True(t, errors.Is(err, ErrMissingData))
	_, err = Parse(rosterTable(), attendanceFixture(), time.UTC)
	require.True(t, errors.Is(err, ErrMissingData))

	noMarks := htmlutil.Table{
		{"Name", "", "", "", "", "First", "Last", "", "8/4/2024", "Total"},
		{"Smith, John", "", "", "", "", "", "", "", "", "0"},
	}
	roster := rosterTable(map[string]string{"last_name": "Smith", "first_name": "John"})
	_, err = Parse(roster, noMarks, time.UTC)
	require.True(t, errors.Is(err, ErrNoAttendanceDates))

	data, err := Parse(roster, attendanceFixture(), time.UTC)
	require.NoError(t, err)
	require.Len(t, data.Roster, 1)
	require.Empty(t, data.Active())
}

func TestPersonField(t *testing.T) {
	p := PersonRecord{
		LastName:            "Smith",
		IsMember:            true,
		LastPresent:         date(2024, time.August, 4),
		LastPresentWeeksAgo: 4,
	}

	v, ok := p.Field("isMember")
	require.True(t, ok)
	require.True(t, v.Equal(BoolValue(true)))

	v, ok = p.Field("last_present_weeks_ago")
	require.True(t, ok)
	require.True(t, v.Equal(IntValue(4)))
	require.False(t, v.Equal(StringValue("4")))

	v, ok = p.Field("lastPresent")
	require.True(t, ok)
	require.Equal(t, chrono.FormatDate(p.LastPresent), v.Format())

	_, ok = p.Field("firstPresentWeeksAgo")
	require.False(t, ok)
	_, ok = p.Field("favoriteColor")
	require.False(t, ok)

	kind, err := FieldKind("is_active_mia")
	require.NoError(t, err)
	require.Equal(t, KindBool, kind)
	_, err = FieldKind("nope")
	require.Error(t, err)
	require.Contains(t, FieldNames(), "lastpresentweeksago")
}

func TestTableFromJSON(t *testing.T) {
	data := []byte(`[
		{"0": "last_name", "1": "first_name", "3": "gender"},
		{"0": "Smith", "1": "John", "3": 0}
	]`)
	table, err := TableFromJSON(data)
	require.NoError(t, err)
	expected := htmlutil.Table{
		{"last_name", "first_name", "", "gender"},
		{"Smith", "John", "", "0"},
	}
	diff := cmp.Diff(expected, table)
	if diff != "" {
		t.Fatal(diff)
	}

	_, err = TableFromJSON([]byte(`[{"name": "x"}]`))
	require.Error(t, err)
}
