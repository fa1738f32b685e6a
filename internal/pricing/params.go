package pricing

import (
	"math"

	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// Params is the full input set of a closed-form valuation.
type Params struct {
	Spot       float64 // S, underlying price
	Strike     float64 // K
	Volatility float64 // sigma, annualised
	Rate       float64 // r, continuously compounded
	Dividend   float64 // q, continuous dividend yield
	Time       float64 // T, year fraction to expiry
}

// CostOfCarry returns b = r - q
func (p Params) CostOfCarry() float64 {
	return p.Rate - p.Dividend
}

// Validate rejects inputs for which the closed forms are undefined
func (p Params) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"spot", p.Spot},
		{"strike", p.Strike},
		{"volatility", p.Volatility},
		{"time to expiry", p.Time},
	}
	for _, f := range positive {
		if !finite(f.value) || f.value <= 0 {
			return errors.InvalidMarketParameter("%s must be strictly positive, got %v", f.name, f.value)
		}
	}

	if !finite(p.Rate) {
		return errors.InvalidMarketParameter("rate must be finite, got %v", p.Rate)
	}
	if !finite(p.Dividend) || p.Dividend < 0 {
		return errors.InvalidMarketParameter("dividend yield must be non-negative, got %v", p.Dividend)
	}

	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// terms holds the intermediate quantities every formula shares. Computing
// them once keeps price and all Greeks on the same d1/d2.
type terms struct {
	d1, d2   float64
	sqrtT    float64
	discRate float64 // e^(-rT)
	discDiv  float64 // e^(-qT)
}

func (p Params) terms() terms {
	sqrtT := math.Sqrt(p.Time)
	d1 := (math.Log(p.Spot/p.Strike) + (p.Rate-p.Dividend+0.5*p.Volatility*p.Volatility)*p.Time) / (p.Volatility * sqrtT)

	return terms{
		d1:       d1,
		d2:       d1 - p.Volatility*sqrtT,
		sqrtT:    sqrtT,
		discRate: math.Exp(-p.Rate * p.Time),
		discDiv:  math.Exp(-p.Dividend * p.Time),
	}
}
