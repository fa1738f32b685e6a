package calendar

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

func date(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func TestTradingDays(t *testing.T) {
	cal := Default()

	tests := []struct {
		name       string
		start, end civil.Date
		want       int
	}{
		{"same day", date(2024, 3, 4), date(2024, 3, 4), 0},
		{"monday to friday", date(2024, 3, 4), date(2024, 3, 8), 4},
		{"friday to monday", date(2024, 3, 8), date(2024, 3, 11), 1},
		{"saturday to sunday", date(2024, 3, 9), date(2024, 3, 10), 0},
		{"one week", date(2024, 3, 4), date(2024, 3, 11), 5},
		{"three weeks and two days", date(2024, 3, 4), date(2024, 3, 27), 17},
		{"reversed", date(2024, 3, 8), date(2024, 3, 4), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.TradingDays(tt.start, tt.end))
		})
	}
}

func TestTradingDaysMatchesDayByDayCount(t *testing.T) {
	cal := NewWeekday(WithHolidays(date(2024, 1, 1), date(2024, 1, 15), date(2024, 2, 17)))
	start := date(2023, 12, 20)

	for span := 0; span < 90; span++ {
		end := start.AddDays(span)
		want := 0
		for d := start.AddDays(1); !d.After(end); d = d.AddDays(1) {
			if cal.IsTradingDay(d) {
				want++
			}
		}
		assert.Equal(t, want, cal.TradingDays(start, end), "end=%s", end)
	}
}

func TestHolidays(t *testing.T) {
	newYear := date(2024, 1, 1)
	cal := NewWeekday(WithHolidays(newYear))

	assert.False(t, cal.IsTradingDay(newYear))
	assert.True(t, cal.IsTradingDay(date(2024, 1, 2)))
	assert.False(t, cal.IsTradingDay(date(2024, 1, 6)))

	assert.Equal(t, 4, cal.TradingDays(date(2023, 12, 29), date(2024, 1, 5)))
	assert.Equal(t, 5, Default().TradingDays(date(2023, 12, 29), date(2024, 1, 5)))

	// a holiday on the start date is outside (start, end]
	assert.Equal(t, 1, cal.TradingDays(newYear, date(2024, 1, 2)))
}

func TestYearFraction(t *testing.T) {
	yf, err := Default().YearFraction(date(2024, 3, 4), date(2024, 3, 11))
	require.NoError(t, err)
	assert.InDelta(t, 5.0/252, yf, 1e-15)

	yf, err = NewWeekday(WithTradingDaysPerYear(250)).YearFraction(date(2024, 3, 4), date(2024, 3, 11))
	require.NoError(t, err)
	assert.InDelta(t, 5.0/250, yf, 1e-15)

	yf, err = Default().YearFraction(date(2024, 3, 4), date(2024, 3, 4))
	require.NoError(t, err)
	assert.Zero(t, yf)

	_, err = Default().YearFraction(date(2024, 3, 5), date(2024, 3, 4))
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	_, err = Default().YearFraction(civil.Date{}, date(2024, 3, 4))
	assert.Error(t, err)
}

func TestParseHolidays(t *testing.T) {
	dates, err := ParseHolidays([]string{"2024-07-04", "2024-12-25"})
	require.NoError(t, err)
	assert.Equal(t, []civil.Date{date(2024, 7, 4), date(2024, 12, 25)}, dates)

	_, err = ParseHolidays([]string{"July 4th"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}
