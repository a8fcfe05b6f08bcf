package rollforward

import "time"

// =============================================================================
// PERIOD - The time boundary every bridge is computed against
// =============================================================================

// Period is an inclusive date span [Start, End]. A bridge is ALWAYS computed
// for a period, never at a bare point in time: opening is measured at Start,
// and expiries/renewals/new business are recognized inside the span.
//
// Boundary convention (applied uniformly, see bridge.go):
//   - A record is OPEN at day D iff start_date <= D <= end_date.
//   - A record EXPIRES in period P iff end_date + 1 day falls inside P.
type Period struct {
	Start Date
	End   Date
}

// YearPeriod returns the calendar-year period Jan 1 - Dec 31.
func YearPeriod(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}

// MonthPeriod returns the full calendar month containing the key.
func MonthPeriod(m MonthKey) Period {
	return Period{Start: StartOfMonth(m.Year, m.Month), End: EndOfMonth(m.Year, m.Month)}
}

// Validate rejects malformed periods before any computation is attempted.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() || p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains returns true if the date is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Months splits the period into consecutive calendar-month sub-periods.
// The first and last sub-period are clipped to the period boundaries, so the
// sub-periods partition the span exactly: every day of the period belongs to
// exactly one sub-period. This is what makes month-by-month accumulation
// agree with the one-shot computation.
func (p Period) Months() []Period {
	if p.Validate() != nil {
		return nil
	}
	var months []Period
	cursor := p.Start
	for cursor.BeforeOrEqual(p.End) {
		monthEnd := EndOfMonth(cursor.Year(), cursor.Month())
		if monthEnd.After(p.End) {
			monthEnd = p.End
		}
		months = append(months, Period{Start: cursor, End: monthEnd})
		cursor = monthEnd.AddDays(1)
	}
	return months
}

// MonthRange returns whole-month periods for months [from, to] of a year.
// Used by the month-selector view (e.g., March..September 2024).
func MonthRange(year int, from, to time.Month) (Period, error) {
	if from < time.January || to > time.December || to < from {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: StartOfMonth(year, from), End: EndOfMonth(year, to)}, nil
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
