package option

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/options-risk-engine/internal/calendar"
	"github.com/rzzdr/options-risk-engine/internal/pricing"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

var expiry = civil.Date{Year: 2025, Month: 6, Day: 20}

var market = models.MarketInputs{Spot: 100, Volatility: 0.2, Rate: 0.05, TimeToExpiry: models.Years(1)}

func fixedClock(d civil.Date) Setting {
	return WithClock(func() civil.Date { return d })
}

func TestNewValidates(t *testing.T) {
	_, err := NewCall("SPY", 0, models.ExerciseEuropean, expiry)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidMarketParameter))

	_, err = NewPut("SPY", -5, models.ExerciseEuropean, expiry)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidMarketParameter))

	_, err = New(models.OptionClass(3), "SPY", 100, models.ExerciseEuropean, expiry)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	_, err = NewCall("SPY", 100, models.ExerciseType(9), expiry)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	o, err := NewPut("SPY", 100, models.ExerciseAmerican, expiry)
	require.NoError(t, err)
	assert.Equal(t, models.Put, o.Class())
	assert.Equal(t, "SPY", o.Underlying())
	assert.Equal(t, 100.0, o.Strike())
	assert.Equal(t, models.ExerciseAmerican, o.ExerciseType())
	assert.Equal(t, expiry, o.Expiry())
	assert.Equal(t, "SPY 2025-06-20 100 put (american)", o.String())
}

func TestIntrinsicValue(t *testing.T) {
	call, err := NewCall("SPY", 100, models.ExerciseEuropean, expiry)
	require.NoError(t, err)
	put, err := NewPut("SPY", 100, models.ExerciseEuropean, expiry)
	require.NoError(t, err)

	assert.Equal(t, 0.0, call.IntrinsicValue(50))
	assert.Equal(t, 0.0, call.IntrinsicValue(100))
	assert.Equal(t, 25.0, call.IntrinsicValue(125))
	assert.Equal(t, 50.0, put.IntrinsicValue(50))
	assert.Equal(t, 0.0, put.IntrinsicValue(125))

	prices := []float64{0, 40, 99.5, 100, 100.5, 180}
	for _, o := range []*Option{call, put} {
		values := o.ValuesAtExpiry(prices)
		require.Len(t, values, len(prices))
		for i, p := range prices {
			assert.Equal(t, o.IntrinsicValue(p), values[i])
			assert.GreaterOrEqual(t, values[i], 0.0)
		}
	}

	assert.Empty(t, call.ValuesAtExpiry(nil))
}

func TestPriceReferenceCase(t *testing.T) {
	call, err := NewCall("XYZ", 100, models.ExerciseEuropean, expiry)
	require.NoError(t, err)

	price, err := call.Price(market)
	require.NoError(t, err)
	assert.InDelta(t, 10.4506, price, 1e-4)

	delta, err := call.Delta(market)
	require.NoError(t, err)
	assert.InDelta(t, 0.6368, delta, 1e-4)

	put, err := NewPut("XYZ", 100, models.ExerciseEuropean, expiry)
	require.NoError(t, err)
	price, err = put.Price(market)
	require.NoError(t, err)
	assert.InDelta(t, 5.5735, price, 1e-4)

	g, err := put.Greeks(market)
	require.NoError(t, err)
	for name, fn := range map[string]func(models.MarketInputs) (float64, error){
		"delta": put.Delta, "gamma": put.Gamma, "theta": put.Theta, "vega": put.Vega, "rho": put.Rho,
	} {
		v, err := fn(market)
		require.NoError(t, err, name)
		assert.NotZero(t, v, name)
	}
	assert.Less(t, g.Delta, 0.0)
}

func TestDeepOutOfTheMoneyCallHasNoIntrinsicValue(t *testing.T) {
	call, err := NewCall("XYZ", 150, models.ExerciseEuropean, expiry)
	require.NoError(t, err)

	assert.Equal(t, 0.0, call.IntrinsicValue(100))
	price, err := call.Price(market)
	require.NoError(t, err)
	assert.Greater(t, price, 0.0)
	assert.Less(t, price, 1.0)
}

func TestTimeToExpiry(t *testing.T) {
	o, err := NewCall("XYZ", 100, models.ExerciseEuropean, expiry)
	require.NoError(t, err)

	// Friday to Friday, one week of sessions
	yf, err := o.TimeToExpiry(civil.Date{Year: 2025, Month: 6, Day: 13})
	require.NoError(t, err)
	assert.InDelta(t, 5.0/252, yf, 1e-15)

	yf, err = o.TimeToExpiry(expiry)
	require.NoError(t, err)
	assert.Zero(t, yf)

	_, err = o.TimeToExpiry(expiry.AddDays(1))
	assert.True(t, errors.IsType(err, errors.ErrorTypeExpiredContract))
}

func TestPriceResolvesTimeFromClockAndCalendar(t *testing.T) {
	asOf := civil.Date{Year: 2025, Month: 6, Day: 13}
	cal := calendar.NewWeekday(calendar.WithHolidays(civil.Date{Year: 2025, Month: 6, Day: 19}))

	o, err := NewCall("XYZ", 100, models.ExerciseEuropean, expiry, WithCalendar(cal), fixedClock(asOf))
	require.NoError(t, err)

	implicit, err := o.Price(models.MarketInputs{Spot: 100, Volatility: 0.2, Rate: 0.05})
	require.NoError(t, err)
	explicit, err := o.Price(models.MarketInputs{Spot: 100, Volatility: 0.2, Rate: 0.05, TimeToExpiry: models.Years(4.0 / 252)})
	require.NoError(t, err)
	assert.InDelta(t, explicit, implicit, 1e-12)
}

func TestExpiredContract(t *testing.T) {
	inputs := models.MarketInputs{Spot: 100, Volatility: 0.2, Rate: 0.05}

	for _, asOf := range []civil.Date{expiry, expiry.AddDays(1), expiry.AddDays(400)} {
		o, err := NewCall("XYZ", 100, models.ExerciseEuropean, expiry, fixedClock(asOf))
		require.NoError(t, err)

		price, err := o.Price(inputs)
		assert.True(t, errors.IsType(err, errors.ErrorTypeExpiredContract), "as of %s: %v", asOf, err)
		assert.Zero(t, price)

		_, err = o.Greeks(inputs)
		assert.True(t, errors.IsType(err, errors.ErrorTypeExpiredContract))
	}

	// an explicit non-positive time is a market parameter problem
	o, err := NewCall("XYZ", 100, models.ExerciseEuropean, expiry)
	require.NoError(t, err)
	_, err = o.Price(market.WithTimeToExpiry(-0.5))
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidMarketParameter))

	// an explicit zero is not resolved from the calendar
	_, err = o.Price(market.WithTimeToExpiry(0))
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidMarketParameter))
	_, err = o.Greeks(models.MarketInputs{Spot: 100, Volatility: 0.2, TimeToExpiry: models.Years(0)})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidMarketParameter))
}

func TestExerciseStyleDispatch(t *testing.T) {
	for _, style := range []models.ExerciseType{models.ExerciseBermudan, models.ExerciseAsian} {
		o, err := NewCall("XYZ", 100, style, expiry)
		require.NoError(t, err)
		_, err = o.Price(market)
		assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupportedExerciseStyle), "%s", style)
		_, err = o.Vega(market)
		assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupportedExerciseStyle))
	}

	americanPut, err := NewPut("XYZ", 100, models.ExerciseAmerican, expiry)
	require.NoError(t, err)
	_, err = americanPut.Price(market)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupportedExerciseStyle))

	reg := pricing.DefaultRegistry()
	require.NoError(t, reg.Register(models.Put, models.ExerciseAmerican, pricing.AmericanPutTransform))
	americanPut, err = NewPut("XYZ", 100, models.ExerciseAmerican, expiry, WithRegistry(reg))
	require.NoError(t, err)
	price, err := americanPut.Price(market)
	require.NoError(t, err)
	assert.Greater(t, price, 5.5735)

	americanCall, err := NewCall("XYZ", 100, models.ExerciseAmerican, expiry)
	require.NoError(t, err)
	price, err = americanCall.Price(market)
	require.NoError(t, err)
	assert.InDelta(t, 10.4506, price, 1e-4)
}

func TestPriceRejectsInvalidMarketInputs(t *testing.T) {
	o, err := NewCall("XYZ", 100, models.ExerciseEuropean, expiry)
	require.NoError(t, err)

	bad := market
	bad.Volatility = 0
	_, err = o.Price(bad)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidMarketParameter))

	bad = market
	bad.Spot = -1
	_, err = o.Gamma(bad)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidMarketParameter))
}
