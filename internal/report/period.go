package report

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Range selects how a report period is derived from a reference date.
type Range string

const (
	RangeWeek   Range = "week"
	RangeMonth  Range = "month"
	RangeYear   Range = "year"
	RangeCustom Range = "custom"
)

// ParseRange accepts both the view names ("month") and the tool report
// types ("monthly").
func ParseRange(s string) (Range, error) {
	switch s {
	case "week", "weekly":
		return RangeWeek, nil
	case "", "month", "monthly":
		return RangeMonth, nil
	case "year", "yearly":
		return RangeYear, nil
	case "custom":
		return RangeCustom, nil
	}
	return "", fmt.Errorf("unknown report range %q", s)
}

// Period is an inclusive date interval with a display label.
type Period struct {
	Range Range
	Start civil.Date
	End   civil.Date
}

// PeriodFor resolves r around ref. Custom periods use start and end,
// swapping them when reversed.
func PeriodFor(r Range, ref, start, end civil.Date) (Period, error) {
	switch r {
	case RangeWeek:
		offset := (int(ref.In(time.UTC).Weekday()) + 6) % 7
		monday := ref.AddDays(-offset)
		return Period{Range: r, Start: monday, End: monday.AddDays(6)}, nil
	case RangeMonth:
		first := civil.Date{Year: ref.Year, Month: ref.Month, Day: 1}
		last := civil.DateOf(first.In(time.UTC).AddDate(0, 1, -1))
		return Period{Range: r, Start: first, End: last}, nil
	case RangeYear:
		return Period{
			Range: r,
			Start: civil.Date{Year: ref.Year, Month: time.January, Day: 1},
			End:   civil.Date{Year: ref.Year, Month: time.December, Day: 31},
		}, nil
	case RangeCustom:
		if !start.IsValid() || !end.IsValid() {
			return Period{}, fmt.Errorf("custom report needs a valid start and end date")
		}
		if end.Before(start) {
			start, end = end, start
		}
		return Period{Range: r, Start: start, End: end}, nil
	}
	return Period{}, fmt.Errorf("unknown report range %q", r)
}

// Label renders the period the way the report header shows it.
func (p Period) Label() string {
	start := p.Start.In(time.UTC)
	end := p.End.In(time.UTC)
	switch p.Range {
	case RangeWeek:
		return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
	case RangeMonth:
		return start.Format("January 2006")
	case RangeYear:
		return start.Format("2006")
	}
	return fmt.Sprintf("%s - %s", start.Format("Jan 2, 2006"), end.Format("Jan 2, 2006"))
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d civil.Date) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}
