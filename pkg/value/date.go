package value

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Date represents a calendar date without a time component. Ported from the
// regulation-modeling Date type, trimmed to what the execution core needs:
// calendar arithmetic and ordering, not timestamps or timezones.
type Date struct {
	Year  int
	Month int // 1-12
	Day   int // 1-31
}

// ToTime converts a Date to a time.Time at midnight UTC.
func (d Date) ToTime() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// DateFromTime creates a Date from a time.Time, discarding the time of day.
func DateFromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// ParseDate parses an ISO-8601 "YYYY-MM-DD" date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid ISO-8601 date %q: %w", s, err)
	}
	return DateFromTime(t), nil
}

// String renders the date as "YYYY-MM-DD".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.ToTime().Before(other.ToTime())
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return d.ToTime().After(other.ToTime())
}

// Equal reports whether d and other denote the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.Year == other.Year && d.Month == other.Month && d.Day == other.Day
}

// BeforeOrEqual reports whether d is before or equal to other.
func (d Date) BeforeOrEqual(other Date) bool {
	return d.Before(other) || d.Equal(other)
}

// AfterOrEqual reports whether d is after or equal to other.
func (d Date) AfterOrEqual(other Date) bool {
	return d.After(other) || d.Equal(other)
}

// isLeapYear reports whether y is a leap year in the proleptic Gregorian calendar.
func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

// anniversaryDay returns the day-of-month to use for an anniversary of
// (month, day) falling in year y, capping a Feb-29 anniversary to Feb 28 when
// y is not a leap year, following the Dutch statutory date convention.
func anniversaryDay(month, day, y int) int {
	if month == 2 && day == 29 && !isLeapYear(y) {
		return 28
	}
	return day
}

// UnmarshalYAML decodes a "YYYY-MM-DD" scalar node into a Date.
func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML renders the date as a "YYYY-MM-DD" scalar.
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// DateDiffUnit is the unit of a date-subtraction calculation.
type DateDiffUnit string

const (
	UnitDays   DateDiffUnit = "days"
	UnitMonths DateDiffUnit = "months"
	UnitYears  DateDiffUnit = "years"
)

// SubtractDate computes subject - earlier in the given unit, using the
// anniversary rule: a year/month is counted complete only once
// (month, day) of subject is reached or passed relative to earlier's
// (month, day) anniversary in the intervening year/month.
func SubtractDate(subject, earlier Date, unit DateDiffUnit) (int, error) {
	switch unit {
	case UnitDays:
		days := int(subject.ToTime().Sub(earlier.ToTime()).Hours() / 24)
		return days, nil
	case UnitYears:
		years := subject.Year - earlier.Year
		annivMonth := earlier.Month
		annivDay := anniversaryDay(earlier.Month, earlier.Day, subject.Year)
		if subject.Month < annivMonth || (subject.Month == annivMonth && subject.Day < annivDay) {
			years--
		}
		return years, nil
	case UnitMonths:
		months := (subject.Year-earlier.Year)*12 + (subject.Month - earlier.Month)
		annivDay := anniversaryDay(subject.Month, earlier.Day, subject.Year)
		if subject.Day < annivDay {
			months--
		}
		return months, nil
	default:
		return 0, fmt.Errorf("unknown date-subtraction unit %q", unit)
	}
}
