package arena

import (
	"errors"
	"time"
)

var (
	// ErrMissingData is returned when the roster or attendance export of a class is absent or empty.
	ErrMissingData = errors.New("roster or attendance data not available")
	// ErrNoAttendanceDates is returned when the attendance export has no column with a mark.
	ErrNoAttendanceDates = errors.New("attendance data contains no marked dates")
)

// PersonRecord is one roster row with the fields derived from attendance.
type PersonRecord struct {
	// FullName is "Last, First", the key used to join attendance.
	FullName  string
	LastName  string
	FirstName string

	// Gender is "M" or "F".
	Gender string
	DOB    string

	Email        string
	CellPhone    string
	HomePhone    string
	Address      string
	CityStateZip string

	Role      string
	DateAdded string
	IsMember  bool

	IsActive     bool
	DateInactive time.Time

	// AttendanceJoined is true when an attendance record matched FullName.
	AttendanceJoined     bool
	FirstPresent         time.Time
	FirstPresentWeeksAgo int
	LastPresent          time.Time
	LastPresentWeeksAgo  int

	// IsActiveMIA is true when the person is active but has no attendance history at all.
	IsActiveMIA bool
	// IsActiveMIADate is the oldest known attendance date, a proxy for when they went missing.
	IsActiveMIADate time.Time
}

// AttendanceRecord is one row of the attendance export.
type AttendanceRecord struct {
	FullName     string
	LastName     string
	FirstName    string
	FirstPresent time.Time
	LastPresent  time.Time
	// Marks[i] is the mark for AttendanceDataset.Dates[i].
	Marks []string
}

// AttendanceDataset is the parsed attendance export of a class.
type AttendanceDataset struct {
	// Dates is most-recent-first, gap dates included.
	Dates []time.Time
	// GapDates are dates within the observed window with no mark for anyone.
	GapDates []time.Time
	Records  []AttendanceRecord
}

// ClassData is everything parsed from the two exports of a class.
type ClassData struct {
	Roster     []PersonRecord
	Attendance AttendanceDataset
}

// Active returns the active roster records, in roster order.
func (c ClassData) Active() []PersonRecord {
	var out []PersonRecord
	for _, p := range c.Roster {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out
}

// Latest returns the most recent attendance date.
func (d AttendanceDataset) Latest() (time.Time, bool) {
	if len(d.Dates) == 0 {
		return time.Time{}, false
	}
	return d.Dates[0], true
}

// Oldest returns the oldest attendance date.
func (d AttendanceDataset) Oldest() (time.Time, bool) {
	if len(d.Dates) == 0 {
		return time.Time{}, false
	}
	return d.Dates[len(d.Dates)-1], true
}

// Chronological returns Dates oldest-first.
func (d AttendanceDataset) Chronological() []time.Time {
	out := make([]time.Time, len(d.Dates))
	for i, date := range d.Dates {
		out[len(d.Dates)-1-i] = date
	}
	return out
}

// Contains reports whether date is one of the attendance dates.
func (d AttendanceDataset) Contains(date time.Time) bool {
	for _, existing := range d.Dates {
		if existing.Equal(date) {
			return true
		}
	}
	return false
}

// ByFullName indexes the records by their raw full name, later rows win.
func (d AttendanceDataset) ByFullName() map[string]AttendanceRecord {
	out := make(map[string]AttendanceRecord, len(d.Records))
	for _, r := range d.Records {
		out[r.FullName] = r
	}
	return out
}
