package dues

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day at UTC midnight
// =============================================================================

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day. Periods, due dates and payment dates are all
// day-granular, so the clock part is always zero and the zone is UTC.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping the calendar day in t's zone.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today reads the wall clock. Only the API and CLI edges call it; the
// engine always receives an explicit as-of date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool { return d.Time.Equal(o.Time) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool { return !d.Before(o) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date { return Date{Time: d.Time.AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int { return d.Time.Day() }
func (d Date) IsZero() bool { return d.Time.IsZero() }
func (d Date) String() string { return d.Time.Format(DateLayout) }
func (d Date) ISOWeek() (int, int) { return d.Time.ISOWeek() }

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func (d Date) ISOWeekday() int {
	wd := int(d.Time.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// =============================================================================
// CALENDAR UTILITIES
// =============================================================================

func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }
func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month, DaysInMonth(year, month))
}
func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date   { return NewDate(year, time.December, 31) }

// StartOfISOWeek returns the Monday of the ISO week containing d.
func StartOfISOWeek(d Date) Date { return d.AddDays(1 - d.ISOWeekday()) }

// EndOfISOWeek returns the Sunday of the ISO week containing d.
func EndOfISOWeek(d Date) Date { return StartOfISOWeek(d).AddDays(6) }

// ISOWeekStart returns the Monday of ISO week `week` of ISO year `isoYear`.
// 4 January always falls in week 1.
func ISOWeekStart(isoYear, week int) Date {
	return StartOfISOWeek(NewDate(isoYear, time.January, 4)).AddDays((week - 1) * 7)
}

// ISOWeeksInYear returns 52 or 53. 28 December always falls in the last week.
func ISOWeeksInYear(isoYear int) int {
	_, w := NewDate(isoYear, time.December, 28).ISOWeek()
	return w
}

// clampDay builds year-month-day, pulling day back to the last day of the
// month when the month is shorter.
func clampDay(year int, month time.Month, day int) Date {
	if n := DaysInMonth(year, month); day > n {
		day = n
	}
	if day < 1 {
		day = 1
	}
	return NewDate(year, month, day)
}
