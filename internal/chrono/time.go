package chrono

import (
	"time"
)

// DefaultLocation is where the church (and therefore every Sunday) is.
const DefaultLocation = "America/Chicago"

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in the configured location.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct {
	location *time.Location
}

// NewStandardTime loads the named location, an empty name means DefaultLocation.
func NewStandardTime(location string) (StandardTime, error) {
	if location == "" {
		location = DefaultLocation
	}
	loc, err := time.LoadLocation(location)
	if err != nil {
		return StandardTime{}, err
	}
	return StandardTime{location: loc}, nil
}

func (s StandardTime) Now() time.Time {
	if s.location == nil {
		return time.Now()
	}
	return time.Now().In(s.location)
}

// FixedTime is a TimeAPI that always returns the same instant.
type FixedTime time.Time

func (f FixedTime) Now() time.Time {
	return time.Time(f)
}
