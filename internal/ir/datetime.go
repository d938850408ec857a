package ir

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateTimeLayout is the rendering of every IRDateTime.
const DateTimeLayout = "2006-01-02T15:04:05.000Z"

// IRDateTime is an instant in UTC with millisecond precision.
type IRDateTime struct {
	t time.Time
}

func (IRDateTime) irValue() {}

func (d IRDateTime) String() string { return d.t.Format(DateTimeLayout) }

// Time returns the instant.
func (d IRDateTime) Time() time.Time { return d.t }

// Cmp compares two instants: -1, 0 or +1.
func (d IRDateTime) Cmp(other IRDateTime) int { return d.t.Compare(other.t) }

// NewIRDateTime converts t to UTC and drops anything finer than a
// millisecond.
func NewIRDateTime(t time.Time) IRDateTime {
	return IRDateTime{t: t.UTC().Truncate(time.Millisecond)}
}

// dateTimeLayouts are tried in order. Values without a zone are UTC.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseIRDateTime parses "2001-02-03", "2001-02-03T04:05:06.007" or an
// RFC 3339 timestamp.
func ParseIRDateTime(s string) (IRDateTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewIRDateTime(t), nil
		}
	}
	return IRDateTime{}, fmt.Errorf("invalid datetime %q: expected 2006-01-02 or 2006-01-02T15:04:05.000Z", s)
}

// MustParseIRDateTime is like ParseIRDateTime but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseIRDateTime(s string) IRDateTime {
	d, err := ParseIRDateTime(s)
	if err != nil {
		panic(err)
	}
	return d
}

// TimeUnit is a calendar step used for datetime granularity and relation
// offsets. The String form is the profile keyword.
type TimeUnit string

const (
	UnitMillis  TimeUnit = "millis"
	UnitSeconds TimeUnit = "seconds"
	UnitMinutes TimeUnit = "minutes"
	UnitHours   TimeUnit = "hours"
	UnitDays    TimeUnit = "days"
	UnitMonths  TimeUnit = "months"
	UnitYears   TimeUnit = "years"
)

// TimeUnits lists every unit from finest to coarsest.
var TimeUnits = []TimeUnit{UnitMillis, UnitSeconds, UnitMinutes, UnitHours, UnitDays, UnitMonths, UnitYears}

func (u TimeUnit) String() string { return string(u) }

// Valid reports whether u is a known unit.
func (u TimeUnit) Valid() bool {
	return slices.Contains(TimeUnits, u)
}

// Coarser reports whether u is a longer step than other.
func (u TimeUnit) Coarser(other TimeUnit) bool {
	return slices.Index(TimeUnits, u) > slices.Index(TimeUnits, other)
}

// Add moves t by n units. Months and years follow time.AddDate, so
// January 31 plus one month is March 2 or 3.
func (u TimeUnit) Add(t time.Time, n int64) time.Time {
	switch u {
	case UnitSeconds:
		return t.Add(time.Duration(n) * time.Second)
	case UnitMinutes:
		return t.Add(time.Duration(n) * time.Minute)
	case UnitHours:
		return t.Add(time.Duration(n) * time.Hour)
	case UnitDays:
		return t.AddDate(0, 0, int(n))
	case UnitMonths:
		return t.AddDate(0, int(n), 0)
	case UnitYears:
		return t.AddDate(int(n), 0, 0)
	default:
		return t.Add(time.Duration(n) * time.Millisecond)
	}
}

// Truncate rounds t down to a whole number of units in UTC.
func (u TimeUnit) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch u {
	case UnitSeconds:
		return t.Truncate(time.Second)
	case UnitMinutes:
		return t.Truncate(time.Minute)
	case UnitHours:
		return t.Truncate(time.Hour)
	case UnitDays:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case UnitMonths:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case UnitYears:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return t.Truncate(time.Millisecond)
	}
}
