package risk

import (
	"strings"

	"github.com/rzzdr/options-risk-engine/internal/strategy"
	"github.com/rzzdr/options-risk-engine/internal/volatility"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// MarketSource supplies valuation inputs for the legs of a strategy
type MarketSource interface {
	Inputs(s *strategy.Strategy) (strategy.Inputs, error)
}

// BarSource defines an interface for retrieving OHLC history
type BarSource interface {
	Bars(underlying string, n int) ([]volatility.Bar, error)
}

func underlyingKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// legInputs resolves every leg through lookup, sharing one value when all
// legs agree
func legInputs(s *strategy.Strategy, lookup func(underlying string) (models.MarketInputs, error)) (strategy.Inputs, error) {
	legs := s.Positions()
	if len(legs) == 0 {
		return strategy.Shared(models.MarketInputs{}), nil
	}

	cache := make(map[string]models.MarketInputs)
	inputs := make([]models.MarketInputs, len(legs))
	for i, p := range legs {
		u := underlyingKey(p.Option().Underlying())
		m, ok := cache[u]
		if !ok {
			var err error
			if m, err = lookup(u); err != nil {
				return nil, err
			}
			cache[u] = m
		}
		inputs[i] = m
	}

	if len(cache) == 1 {
		return strategy.Shared(inputs[0]), nil
	}
	return strategy.PerLeg(inputs...), nil
}

// StaticMarket serves fixed inputs. Underlyings overrides Base per underlying
// symbol; zero fields of an override inherit from Base.
type StaticMarket struct {
	Base        models.MarketInputs
	Underlyings map[string]models.MarketInputs
}

func (m StaticMarket) lookup(underlying string) (models.MarketInputs, error) {
	in := m.Base
	for k, o := range m.Underlyings {
		if underlyingKey(k) != underlying {
			continue
		}
		if o.Spot != 0 {
			in.Spot = o.Spot
		}
		if o.Volatility != 0 {
			in.Volatility = o.Volatility
		}
		if o.Rate != 0 {
			in.Rate = o.Rate
		}
		if o.DividendYield != 0 {
			in.DividendYield = o.DividendYield
		}
		if o.TimeToExpiry != nil {
			in.TimeToExpiry = o.TimeToExpiry
		}
	}
	if in.Spot == 0 {
		return models.MarketInputs{}, errors.InvalidMarketParameter("no spot price for %s", underlying)
	}
	return in, nil
}

// Inputs implements MarketSource
func (m StaticMarket) Inputs(s *strategy.Strategy) (strategy.Inputs, error) {
	return legInputs(s, m.lookup)
}

// HistoryMarket derives spot and volatility from OHLC history: the spot is
// the latest close and the volatility comes from the range estimator over
// the latest window.
type HistoryMarket struct {
	Bars           BarSource
	Estimator      volatility.Estimator
	Window         int
	PeriodsPerYear float64
	Rate           float64
	DividendYield  float64
}

func (m HistoryMarket) lookup(underlying string) (models.MarketInputs, error) {
	bars, err := m.Bars.Bars(underlying, m.Window)
	if err != nil {
		return models.MarketInputs{}, err
	}
	vol, err := volatility.Latest(bars, m.Estimator, m.Window, m.PeriodsPerYear)
	if err != nil {
		return models.MarketInputs{}, errors.Wrapf(err, "volatility of %s", underlying)
	}
	return models.MarketInputs{
		Spot:          bars[len(bars)-1].Close,
		Volatility:    vol,
		Rate:          m.Rate,
		DividendYield: m.DividendYield,
	}, nil
}

// Inputs implements MarketSource
func (m HistoryMarket) Inputs(s *strategy.Strategy) (strategy.Inputs, error) {
	return legInputs(s, m.lookup)
}
