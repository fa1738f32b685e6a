package calendar

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// DefaultTradingDaysPerYear is the US equity convention
const DefaultTradingDaysPerYear = 252

// Calendar turns a date range into a year fraction
type Calendar interface {
	YearFraction(start, end civil.Date) (float64, error)
}

// Weekday is a Monday to Friday session calendar with an optional holiday list
type Weekday struct {
	daysPerYear float64
	holidays    map[civil.Date]struct{}
}

// Option configures a Weekday calendar
type Option func(*Weekday)

// WithTradingDaysPerYear overrides the annualisation denominator
func WithTradingDaysPerYear(n int) Option {
	return func(c *Weekday) {
		if n > 0 {
			c.daysPerYear = float64(n)
		}
	}
}

// WithHolidays marks the given dates as non-trading
func WithHolidays(dates ...civil.Date) Option {
	return func(c *Weekday) {
		for _, d := range dates {
			c.holidays[d] = struct{}{}
		}
	}
}

// NewWeekday creates a weekday calendar
func NewWeekday(opts ...Option) *Weekday {
	c := &Weekday{
		daysPerYear: DefaultTradingDaysPerYear,
		holidays:    make(map[civil.Date]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Default returns a weekday calendar without holidays
func Default() *Weekday {
	return NewWeekday()
}

// ParseHolidays parses ISO dates (YYYY-MM-DD)
func ParseHolidays(values []string) ([]civil.Date, error) {
	dates := make([]civil.Date, 0, len(values))
	for _, v := range values {
		d, err := civil.ParseDate(v)
		if err != nil {
			return nil, errors.InvalidArgument("invalid holiday %q: %v", v, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// IsTradingDay reports whether d is a weekday that is not a holiday
func (c *Weekday) IsTradingDay(d civil.Date) bool {
	if isWeekend(d) {
		return false
	}
	_, holiday := c.holidays[d]
	return !holiday
}

// TradingDays counts the sessions in (start, end]. It is zero when end is
// not after start.
func (c *Weekday) TradingDays(start, end civil.Date) int {
	span := end.DaysSince(start)
	if span <= 0 {
		return 0
	}

	weeks := span / 7
	count := weeks * 5

	for d := start.AddDays(weeks*7 + 1); !d.After(end); d = d.AddDays(1) {
		if !isWeekend(d) {
			count++
		}
	}

	for h := range c.holidays {
		if h.After(start) && !h.After(end) && !isWeekend(h) {
			count--
		}
	}
	return count
}

// YearFraction returns the trading sessions in (start, end] divided by the
// trading days per year. An end date before start is an error.
func (c *Weekday) YearFraction(start, end civil.Date) (float64, error) {
	if !start.IsValid() || !end.IsValid() {
		return 0, errors.InvalidArgument("invalid date range %s..%s", start, end)
	}
	if end.Before(start) {
		return 0, errors.InvalidArgument("end date %s is before start date %s", end, start)
	}
	return float64(c.TradingDays(start, end)) / c.daysPerYear, nil
}

func isWeekend(d civil.Date) bool {
	wd := d.In(time.UTC).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
