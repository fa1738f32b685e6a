package pricing

import (
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// EuropeanPrice returns the Black-Scholes-Merton value of a European option
// with continuous dividend yield.
func EuropeanPrice(class models.OptionClass, p Params) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return europeanPrice(class, p, p.terms())
}

func europeanPrice(class models.OptionClass, p Params, t terms) (float64, error) {
	switch class {
	case models.Call:
		return p.Spot*t.discDiv*normCDF(t.d1) - p.Strike*t.discRate*normCDF(t.d2), nil
	case models.Put:
		return p.Strike*t.discRate*normCDF(-t.d2) - p.Spot*t.discDiv*normCDF(-t.d1), nil
	default:
		return 0, errors.InvalidArgument("unknown option class %v", class)
	}
}

// EuropeanGreeks returns delta, gamma, theta, vega and rho of a European
// option. Theta is per year; vega and rho are per unit (not per 1%) change.
func EuropeanGreeks(class models.OptionClass, p Params) (models.Greeks, error) {
	if err := p.Validate(); err != nil {
		return models.Greeks{}, err
	}
	return europeanGreeks(class, p, p.terms())
}

func europeanGreeks(class models.OptionClass, p Params, t terms) (models.Greeks, error) {
	pdf := normPDF(t.d1)

	// gamma and vega do not depend on the class
	g := models.Greeks{
		Gamma: t.discDiv * pdf / (p.Volatility * p.Spot * t.sqrtT),
		Vega:  p.Spot * t.sqrtT * t.discDiv * pdf,
	}
	decay := -p.Spot * t.discDiv * pdf * p.Volatility / (2 * t.sqrtT)

	switch class {
	case models.Call:
		g.Delta = t.discDiv * normCDF(t.d1)
		g.Theta = decay - p.Rate*p.Strike*t.discRate*normCDF(t.d2) + p.Dividend*p.Spot*t.discDiv*normCDF(t.d1)
		g.Rho = p.Strike * p.Time * t.discRate * normCDF(t.d2)
	case models.Put:
		g.Delta = t.discDiv * (normCDF(t.d1) - 1)
		g.Theta = decay + p.Rate*p.Strike*t.discRate*normCDF(-t.d2) - p.Dividend*p.Spot*t.discDiv*normCDF(-t.d1)
		g.Rho = -p.Strike * p.Time * t.discRate * normCDF(-t.d2)
	default:
		return models.Greeks{}, errors.InvalidArgument("unknown option class %v", class)
	}

	return g, nil
}
