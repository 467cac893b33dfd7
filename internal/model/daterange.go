package model

import (
	"time"

	"github.com/iliyamo/hall-reservation/internal/apperror"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date.  All dates handled
// by the engine are normalised through Day so that equality and map keys
// work on the calendar date only.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// DateRange is a closed interval of calendar dates: both Start and End are
// part of the range, so a range where Start equals End covers one day.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range from two dates and rejects inverted ranges.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: Day(start), End: Day(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, apperror.Validation("end_date", "end date must be on or after start date")
	}
	return r, nil
}

// ParseDateRange parses two YYYY-MM-DD strings into a DateRange.  The
// field names are used in validation errors.
func ParseDateRange(startField, start, endField, end string) (DateRange, error) {
	if start == "" {
		return DateRange{}, apperror.Validation(startField, "is required")
	}
	if end == "" {
		return DateRange{}, apperror.Validation(endField, "is required")
	}
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, apperror.Validation(startField, "must be a YYYY-MM-DD date")
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, apperror.Validation(endField, "must be a YYYY-MM-DD date")
	}
	if e.Before(s) {
		return DateRange{}, apperror.Validation(endField, "must be on or after "+startField)
	}
	return DateRange{Start: s, End: e}, nil
}

// HorizonFrom returns the range of n consecutive days starting at from.
// n below one is treated as one.
func HorizonFrom(from time.Time, n int) DateRange {
	if n < 1 {
		n = 1
	}
	start := Day(from)
	return DateRange{Start: start, End: start.AddDate(0, 0, n-1)}
}

// Days returns the inclusive number of calendar days in the range.
func (r DateRange) Days() int {
	return int(Day(r.End).Sub(Day(r.Start)).Hours()/24) + 1
}

// Dates lists every date in the range in ascending order.
func (r DateRange) Dates() []time.Time {
	n := r.Days()
	if n < 1 {
		return nil
	}
	out := make([]time.Time, 0, n)
	for d := Day(r.Start); !d.After(r.End); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(Day(r.Start)) && !d.After(Day(r.End))
}

// Overlaps reports whether two closed ranges share at least one day:
// [a,b] and [c,d] intersect iff a <= d and c <= b.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.Start.After(o.End) && !o.Start.After(r.End)
}

func (r DateRange) String() string {
	return FormatDate(r.Start) + ".." + FormatDate(r.End)
}
