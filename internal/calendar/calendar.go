// Package calendar provides civil date arithmetic for the clinic domain.
//
// Appointments, attendance records and monthly quotas all operate on whole
// calendar days in the tenant's local timezone. Date deliberately carries no
// wall-clock component so that month boundaries and weekday math cannot be
// shifted by DST transitions in the underlying time.Time representation.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the canonical textual form of a Date.
const DateLayout = "2006-01-02"

// TimeLayout is the canonical textual form of a TimeOfDay.
const TimeLayout = "15:04"

// ErrInvalidDate indicates a textual date that does not parse as YYYY-MM-DD.
var ErrInvalidDate = errors.New("calendar: invalid date")

// ErrInvalidTimeOfDay indicates a textual time that does not parse as HH:MM.
var ErrInvalidTimeOfDay = errors.New("calendar: invalid time of day")

// Date is a civil calendar date without time-of-day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate constructs a Date, normalizing out-of-range components the same way
// time.Date does (e.g. February 30 becomes March 1 or 2).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf extracts the civil date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current civil date in the supplied location. A nil
// location falls back to UTC.
func Today(now func() time.Time, loc *time.Location) Date {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now().In(loc))
}

// ParseDate parses a YYYY-MM-DD string into a Date.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return DateOf(t), nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Time(time.UTC).Format(DateLayout)
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns the midnight instant of the date in the given location.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

// AddDays returns the date n calendar days later (earlier when negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

// AddMonths returns the date n calendar months later, clamping the day of
// month to the target month's length. Unlike time.Time.AddDate, January 31
// plus one month yields February 28 (or 29), never March 2.
func (d Date) AddMonths(n int) Date {
	year, month := d.Year, int(d.Month)+n
	// Normalize the month into 1..12 adjusting the year.
	year += (month - 1) / 12
	month = (month-1)%12 + 1
	if month < 1 {
		month += 12
		year--
	}
	day := d.Day
	if last := DaysInMonth(year, time.Month(month)); day > last {
		day = last
	}
	return Date{Year: year, Month: time.Month(month), Day: day}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// Equal reports whether both values name the same civil date.
func (d Date) Equal(other Date) bool {
	return d == other
}

// Compare orders two dates, returning -1, 0 or 1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Before(other):
		return -1
	case d.After(other):
		return 1
	default:
		return 0
	}
}

// SameMonth reports whether both dates fall in the same calendar month.
func (d Date) SameMonth(other Date) bool {
	return d.Year == other.Year && d.Month == other.Month
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day zero of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthBounds returns the first day of d's month and the first day of the
// following month (a half-open [first, next) interval).
func MonthBounds(d Date) (first, next Date) {
	first = Date{Year: d.Year, Month: d.Month, Day: 1}
	return first, first.AddMonths(1)
}

// WeekBounds returns the Monday of d's week and the following Monday.
func WeekBounds(d Date) (first, next Date) {
	// In Go, Monday == 1 and Sunday == 0.
	offset := (int(d.Weekday()) + 6) % 7
	first = d.AddDays(-offset)
	return first, first.AddDays(7)
}

// TimeOfDay is a wall-clock time with minute precision, constant across a
// recurring appointment series.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an HH:MM string.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String renders the time as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns the offset from midnight in minutes, useful for overlap
// arithmetic.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// At combines the date and time into an instant in the given location.
func (t TimeOfDay) At(d Date, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, loc)
}
