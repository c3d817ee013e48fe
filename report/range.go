package report

import (
	"errors"
	"fmt"
	"time"
)

type Period string

const (
	PeriodToday  Period = "today"
	PeriodMonth  Period = "month"
	PeriodYear   Period = "year"
	PeriodCustom Period = "custom"
)

const dateLayout = "2006-01-02"

var ErrInvalidRange = errors.New("invalid report range")

// Range is a half-open interval [From, To) of whole days.
type Range struct {
	Period Period    `json:"period"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

// ResolveRange turns a period into concrete bounds in now's location. Custom
// ranges take inclusive start and end dates.
func ResolveRange(period Period, start, end string, now time.Time) (Range, error) {
	loc := now.Location()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	r := Range{Period: period}
	switch period {
	case "", PeriodToday:
		r.Period = PeriodToday
		r.From, r.To = day, day.AddDate(0, 0, 1)
	case PeriodMonth:
		r.From = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		r.To = r.From.AddDate(0, 1, 0)
	case PeriodYear:
		r.From = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		r.To = r.From.AddDate(1, 0, 0)
	case PeriodCustom:
		from, err := time.ParseInLocation(dateLayout, start, loc)
		if err != nil {
			return r, fmt.Errorf("%w: start date %q", ErrInvalidRange, start)
		}
		to, err := time.ParseInLocation(dateLayout, end, loc)
		if err != nil {
			return r, fmt.Errorf("%w: end date %q", ErrInvalidRange, end)
		}
		if to.Before(from) {
			return r, fmt.Errorf("%w: end before start", ErrInvalidRange)
		}
		r.From, r.To = from, to.AddDate(0, 0, 1)
	default:
		return r, fmt.Errorf("%w: unknown period %q", ErrInvalidRange, period)
	}
	return r, nil
}

// Label is a short human form of the range, used for export file names.
func (r Range) Label() string {
	last := r.To.AddDate(0, 0, -1)
	if last.Equal(r.From) {
		return r.From.Format(dateLayout)
	}
	return r.From.Format(dateLayout) + "_" + last.Format(dateLayout)
}
