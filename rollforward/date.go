package rollforward

import "time"

// =============================================================================
// DATE - Day-granularity calendar date (all subscription math is date-based)
// =============================================================================

// Date is a calendar day in UTC. Subscription spans, period boundaries and
// renewal windows never need finer resolution than a day, so Date normalizes
// away the clock entirely.
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{t: d.t.AddDate(n, 0, 0)} }

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) IsZero() bool      { return d.t.IsZero() }
func (d Date) Time() time.Time   { return d.t }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// =============================================================================
// MONTH - Calendar month, used as the renewal-period anchor
// =============================================================================

// MonthKey identifies a calendar month (e.g., 2024-03). A subscription's
// renewal period is the month containing end_date + 1 day.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing the date.
func MonthOf(d Date) MonthKey {
	return MonthKey{Year: d.Year(), Month: d.Month()}
}

func (m MonthKey) IsZero() bool { return m.Year == 0 }

func (m MonthKey) Next() MonthKey {
	d := NewDate(m.Year, m.Month, 1).AddMonths(1)
	return MonthOf(d)
}

func (m MonthKey) String() string {
	return NewDate(m.Year, m.Month, 1).t.Format("2006-01")
}

// =============================================================================
// DATE UTILITIES
// =============================================================================

// DaysBetween returns the whole days from one date to another (to - from).
func DaysBetween(from, to Date) int { return int(to.t.Sub(from.t).Hours() / 24) }

func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date   { return NewDate(year, time.December, 31) }

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }
func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month, 1).AddMonths(1).AddDays(-1)
}
