/*
period.go - Calendar dates, pay periods, and working-day arithmetic

PURPOSE:

	A pay period is a "YYYY-MM" label identifying one monthly compensation
	cycle. The cycle's cutoff convention is prior-month-21 through
	current-month-20, so the reference date for all rate lookups is the 20th
	of the target month.

KEY CONCEPTS:
  - Date: day-granularity calendar date (UTC, no wall-clock component)
  - PayPeriod: "YYYY-MM" label with month arithmetic (Jan rolls to prior Dec)
  - Working days: weekdays; used for the seasonal bonus proration
  - HolidayCalendar: injected source of the seasonal bonus date per year

SEE ALSO:
  - calculator.go: Uses ReferenceDate and the working-day ratio
  - variance.go: Uses Previous() for adjacent-period comparison
*/
package payroll

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date
// =============================================================================

type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// ParseDate parses a "2006-01-02" date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// Comparison
func (d Date) Before(o Date) bool        { return d.normalize().Before(o.normalize()) }
func (d Date) After(o Date) bool         { return d.normalize().After(o.normalize()) }
func (d Date) Equal(o Date) bool         { return d.normalize().Equal(o.normalize()) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{Time: d.Time.AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
func (d Date) IsWorkday() bool { return !d.IsWeekend() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// DaysBetween returns the number of days from 'from' to 'to'
// (positive when 'to' is later).
func DaysBetween(from, to Date) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }

// WorkdaysBetween counts weekdays in [from, to] inclusive.
// Returns 0 when from is after to.
func WorkdaysBetween(from, to Date) int {
	count := 0
	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		if d.IsWorkday() {
			count++
		}
	}
	return count
}

// =============================================================================
// PAY PERIOD - "YYYY-MM" monthly compensation cycle
// =============================================================================

type PayPeriod string

// ParsePayPeriod validates a "YYYY-MM" label.
func ParsePayPeriod(s string) (PayPeriod, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	// Re-format so "2024-6" and similar are rejected rather than normalized.
	if t.Format("2006-01") != s {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return PayPeriod(s), nil
}

// PeriodOf returns the pay period containing the given date.
func PeriodOf(year int, month time.Month) PayPeriod {
	return PayPeriod(fmt.Sprintf("%04d-%02d", year, month))
}

func (p PayPeriod) Year() int {
	t, _ := time.Parse("2006-01", string(p))
	return t.Year()
}

func (p PayPeriod) Month() time.Month {
	t, _ := time.Parse("2006-01", string(p))
	return t.Month()
}

// Previous returns the immediately preceding period, rolling the year
// boundary at January back to the prior December.
func (p PayPeriod) Previous() PayPeriod {
	y, m := p.Year(), p.Month()
	if m == time.January {
		return PeriodOf(y-1, time.December)
	}
	return PeriodOf(y, m-1)
}

// Next returns the immediately following period.
func (p PayPeriod) Next() PayPeriod {
	y, m := p.Year(), p.Month()
	if m == time.December {
		return PeriodOf(y+1, time.January)
	}
	return PeriodOf(y, m+1)
}

// ReferenceDate returns the rate-lookup reference date for the period:
// the cutoff day of the target month (pay cycle runs prior-month-(cutoff+1)
// through current-month-cutoff).
func (p PayPeriod) ReferenceDate(cutoffDay int) Date {
	return NewDate(p.Year(), p.Month(), cutoffDay)
}

func (p PayPeriod) String() string { return string(p) }

// =============================================================================
// HOLIDAY CALENDAR - Injected source of the seasonal bonus date
// =============================================================================

// HolidayCalendar supplies the seasonal-bonus holiday date for a year.
// The real holiday follows a lunar calendar; the engine deliberately does
// not compute it and instead consumes injected dates (from configuration or
// an external calendar service). A year with no configured date simply pays
// no seasonal bonus.
type HolidayCalendar interface {
	// SeasonalBonusDate returns the holiday date anchoring the seasonal
	// bonus for the given year, or ok=false when none is configured.
	SeasonalBonusDate(year int) (Date, bool)
}

// FixedCalendar is a HolidayCalendar backed by a static year->date map.
type FixedCalendar map[int]Date

func (c FixedCalendar) SeasonalBonusDate(year int) (Date, bool) {
	d, ok := c[year]
	return d, ok
}

// NoHolidays is a HolidayCalendar with no configured dates: the seasonal
// bonus is never paid.
type NoHolidays struct{}

func (NoHolidays) SeasonalBonusDate(int) (Date, bool) { return Date{}, false }
