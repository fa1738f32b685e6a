package option

import (
	"fmt"
	"math"
	"time"

	"cloud.google.com/go/civil"

	"github.com/rzzdr/options-risk-engine/internal/calendar"
	"github.com/rzzdr/options-risk-engine/internal/pricing"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

var defaultRegistry = pricing.DefaultRegistry()

// Option is an immutable call or put contract
type Option struct {
	class      models.OptionClass
	underlying string
	strike     float64
	style      models.ExerciseType
	expiry     civil.Date

	calendar calendar.Calendar
	clock    func() civil.Date
	registry *pricing.Registry
}

// Setting customises how an Option resolves time and models
type Setting func(*Option)

// WithCalendar sets the trading calendar used for year fractions
func WithCalendar(c calendar.Calendar) Setting {
	return func(o *Option) {
		if c != nil {
			o.calendar = c
		}
	}
}

// WithClock sets the source of "today" for valuations without an explicit
// time to expiry
func WithClock(now func() civil.Date) Setting {
	return func(o *Option) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithRegistry sets the capability table used to value the contract
func WithRegistry(r *pricing.Registry) Setting {
	return func(o *Option) {
		if r != nil {
			o.registry = r
		}
	}
}

func today() civil.Date {
	return civil.DateOf(time.Now())
}

// New creates an option contract
func New(class models.OptionClass, underlying string, strike float64, style models.ExerciseType, expiry civil.Date, settings ...Setting) (*Option, error) {
	if !class.Valid() {
		return nil, errors.InvalidArgument("unknown option class %v", class)
	}
	if !style.Valid() {
		return nil, errors.InvalidArgument("unknown exercise type %v", style)
	}
	if !(strike > 0) || math.IsInf(strike, 0) {
		return nil, errors.InvalidMarketParameter("strike must be positive, got %v", strike)
	}
	if !expiry.IsValid() {
		return nil, errors.InvalidArgument("invalid expiry date %s", expiry)
	}

	o := &Option{
		class:      class,
		underlying: underlying,
		strike:     strike,
		style:      style,
		expiry:     expiry,
		calendar:   calendar.Default(),
		clock:      today,
		registry:   defaultRegistry,
	}
	for _, s := range settings {
		s(o)
	}
	return o, nil
}

// NewCall creates a call option
func NewCall(underlying string, strike float64, style models.ExerciseType, expiry civil.Date, settings ...Setting) (*Option, error) {
	return New(models.Call, underlying, strike, style, expiry, settings...)
}

// NewPut creates a put option
func NewPut(underlying string, strike float64, style models.ExerciseType, expiry civil.Date, settings ...Setting) (*Option, error) {
	return New(models.Put, underlying, strike, style, expiry, settings...)
}

func (o *Option) Class() models.OptionClass         { return o.class }
func (o *Option) Underlying() string                { return o.underlying }
func (o *Option) Strike() float64                   { return o.strike }
func (o *Option) ExerciseType() models.ExerciseType { return o.style }
func (o *Option) Expiry() civil.Date                { return o.expiry }

func (o *Option) String() string {
	return fmt.Sprintf("%s %s %g %s (%s)", o.underlying, o.expiry, o.strike, o.class, o.style)
}

// IntrinsicValue is the exercise value at the given underlying price
func (o *Option) IntrinsicValue(price float64) float64 {
	if o.class == models.Put {
		return math.Max(0, o.strike-price)
	}
	return math.Max(0, price-o.strike)
}

// ValuesAtExpiry evaluates IntrinsicValue at every price
func (o *Option) ValuesAtExpiry(prices []float64) []float64 {
	values := make([]float64, len(prices))
	for i, p := range prices {
		values[i] = o.IntrinsicValue(p)
	}
	return values
}

// TimeToExpiry returns the year fraction from asOf to expiry. It is zero on
// the expiry date and ExpiredContract after it.
func (o *Option) TimeToExpiry(asOf civil.Date) (float64, error) {
	if asOf.After(o.expiry) {
		return 0, errors.ExpiredContract("%s expired on %s, valuation date %s", o, o.expiry, asOf)
	}
	return o.calendar.YearFraction(asOf, o.expiry)
}

func (o *Option) params(m models.MarketInputs) (pricing.Params, error) {
	var t float64
	if m.TimeToExpiry != nil {
		// explicit values, zero included, are checked by the pricing model
		t = *m.TimeToExpiry
	} else {
		var err error
		if t, err = o.TimeToExpiry(o.clock()); err != nil {
			return pricing.Params{}, err
		}
		if t == 0 {
			return pricing.Params{}, errors.ExpiredContract("%s has no trading sessions left", o)
		}
	}

	return pricing.Params{
		Spot:       m.Spot,
		Strike:     o.strike,
		Volatility: m.Volatility,
		Rate:       m.Rate,
		Dividend:   m.DividendYield,
		Time:       t,
	}, nil
}

func (o *Option) model() (pricing.Model, error) {
	return o.registry.Lookup(o.class, o.style)
}

// Price values the contract through the model registered for its class and
// exercise style
func (o *Option) Price(m models.MarketInputs) (float64, error) {
	model, err := o.model()
	if err != nil {
		return 0, err
	}
	p, err := o.params(m)
	if err != nil {
		return 0, err
	}
	return model.Price(p)
}

// Greeks returns all five sensitivities from one model evaluation
func (o *Option) Greeks(m models.MarketInputs) (models.Greeks, error) {
	model, err := o.model()
	if err != nil {
		return models.Greeks{}, err
	}
	p, err := o.params(m)
	if err != nil {
		return models.Greeks{}, err
	}
	return model.Greeks(p)
}

func (o *Option) greek(m models.MarketInputs, pick func(models.Greeks) float64) (float64, error) {
	g, err := o.Greeks(m)
	if err != nil {
		return 0, err
	}
	return pick(g), nil
}

func (o *Option) Delta(m models.MarketInputs) (float64, error) {
	return o.greek(m, func(g models.Greeks) float64 { return g.Delta })
}

func (o *Option) Gamma(m models.MarketInputs) (float64, error) {
	return o.greek(m, func(g models.Greeks) float64 { return g.Gamma })
}

func (o *Option) Theta(m models.MarketInputs) (float64, error) {
	return o.greek(m, func(g models.Greeks) float64 { return g.Theta })
}

func (o *Option) Vega(m models.MarketInputs) (float64, error) {
	return o.greek(m, func(g models.Greeks) float64 { return g.Vega })
}

func (o *Option) Rho(m models.MarketInputs) (float64, error) {
	return o.greek(m, func(g models.Greeks) float64 { return g.Rho })
}
