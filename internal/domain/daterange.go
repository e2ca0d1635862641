package domain

import (
	"fmt"
	"time"
)

// DateRange is a half-open time interval [Start, End).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange validates that end is after start.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if !end.After(start) {
		return DateRange{}, fmt.Errorf("%w: %s is not after %s", ErrInvalidDateRange,
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return DateRange{Start: start.UTC(), End: end.UTC()}, nil
}

// Day returns the UTC calendar day containing t.
func Day(t time.Time) DateRange {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return DateRange{Start: start, End: start.AddDate(0, 0, 1)}
}

// TrailingYear returns the 365 days preceding t: [t-365d, t).
func TrailingYear(t time.Time) DateRange {
	t = t.UTC()
	return DateRange{Start: t.AddDate(0, 0, -365), End: t}
}

// YearFrom returns the 365 days starting at t: [t, t+365d).
func YearFrom(t time.Time) DateRange {
	t = t.UTC()
	return DateRange{Start: t, End: t.AddDate(0, 0, 365)}
}

// Contains reports whether t falls inside the range.
func (d DateRange) Contains(t time.Time) bool {
	return !t.Before(d.Start) && t.Before(d.End)
}

// String formats the range as "start/end" in RFC 3339.
func (d DateRange) String() string {
	return d.Start.Format(time.RFC3339) + "/" + d.End.Format(time.RFC3339)
}
