/*
Package calendar provides the date arithmetic shared by every part of the
leave engine.

PURPOSE:
  A single implementation of working-day counting, weekend tests, and
  month-difference math. Credit previews and persisted approvals must agree
  on durations, so nothing else in the repo is allowed to re-derive these.

KEY CONCEPTS:
  - Date: a day-granularity point in time, always normalized to UTC midnight
  - Working day: Monday through Friday (weekends never count)
  - MonthsBetween: whole-month difference, may be negative

All functions are pure and deterministic. Callers that depend on "today"
receive it as an argument; this package never reads the clock except in the
Today convenience constructor used at the edges.

SEE ALSO:
  - credits: accrual projection built on MonthsBetween
  - leave: request durations built on WorkingDaysBetween
*/
package calendar

import "time"

// =============================================================================
// DATE - Day-granularity point in time
// =============================================================================

// Date is a calendar date normalized to UTC midnight. The zero value is the
// zero time and reports IsZero.
type Date struct {
	t time.Time
}

// NewDate builds a Date from year/month/day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// Today returns the current UTC date. Engine code should accept "today" as a
// parameter; this is for the edges (HTTP handlers, main).
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(o Date) bool        { return d.t.Before(o.t) }
func (d Date) After(o Date) bool         { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool         { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return DateOf(d.t.AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return DateOf(d.t.AddDate(0, n, 0)) }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

// IsWeekend reports whether the date falls on Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsWorkday reports whether the date is a Monday-Friday working day.
func (d Date) IsWorkday() bool { return !d.IsWeekend() }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// =============================================================================
// RANGE MATH
// =============================================================================

// WorkingDaysBetween counts Monday-Friday days in the inclusive range
// [start, end]. Returns 0 when end precedes start.
func WorkingDaysBetween(start, end Date) int {
	if end.Before(start) {
		return 0
	}
	count := 0
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if d.IsWorkday() {
			count++
		}
	}
	return count
}

// WorkingDatesBetween enumerates the Monday-Friday dates in [start, end],
// ascending.
func WorkingDatesBetween(start, end Date) []Date {
	if end.Before(start) {
		return nil
	}
	var dates []Date
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if d.IsWorkday() {
			dates = append(dates, d)
		}
	}
	return dates
}

// DaysBetween returns the calendar-day difference to - from (may be negative).
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// MonthsBetween returns the whole-month difference b - a, ignoring the day
// of month. May be negative.
func MonthsBetween(a, b Date) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// NextWorkday returns the first working day strictly after d.
func NextWorkday(d Date) Date {
	next := d.AddDays(1)
	for next.IsWeekend() {
		next = next.AddDays(1)
	}
	return next
}

// AddWorkdays returns the date n working days after start, counting start
// itself as day one when it is a workday. Used to size alternate windows to
// an identical working-day length.
func AddWorkdays(start Date, n int) Date {
	if n <= 0 {
		return start
	}
	d := start
	remaining := n
	if d.IsWorkday() {
		remaining--
	}
	for remaining > 0 {
		d = NextWorkday(d)
		remaining--
	}
	return d
}
