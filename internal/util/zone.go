package util

import (
	"fmt"
	"time"
	_ "time/tzdata" // Embedded zone database for hosts without one.
)

// DefaultZone is the second zone every UTC bar is converted into.
const DefaultZone = "Asia/Tokyo"

// LoadZone resolves an IANA zone name. The empty string means DefaultZone.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading zone %q: %w", name, err)
	}
	return loc, nil
}

// ConvertZone expresses the instant t in loc. The instant itself is
// unchanged, so ConvertZone(ConvertZone(t, loc), time.UTC).Equal(t) always
// holds.
func ConvertZone(t time.Time, loc *time.Location) time.Time {
	return t.In(loc)
}

// MidnightUTC returns 00:00 UTC on the given calendar date.
func MidnightUTC(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TodayUTC returns midnight UTC of the current UTC date.
func TodayUTC() time.Time {
	now := time.Now().UTC()
	return MidnightUTC(now.Year(), now.Month(), now.Day())
}
