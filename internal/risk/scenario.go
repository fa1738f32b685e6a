package risk

import (
	"time"

	"github.com/rzzdr/options-risk-engine/internal/strategy"
	"github.com/rzzdr/options-risk-engine/pkg/models"
)

// Shock moves the market inputs of every leg. SpotMove is relative (-0.1 is
// a 10% drop) and VolMove is absolute (0.05 adds five vol points).
type Shock struct {
	Name     string  `json:"name"`
	SpotMove float64 `json:"spot_move"`
	VolMove  float64 `json:"vol_move"`
}

// ScenarioResult is the revaluation of a strategy under one shock
type ScenarioResult struct {
	Shock Shock   `json:"shock"`
	Value float64 `json:"value"`
	PnL   float64 `json:"pnl"`
}

// DefaultShocks is a small grid of joint spot and volatility moves
var DefaultShocks = []Shock{
	{Name: "spot -20%, vol +10", SpotMove: -0.20, VolMove: 0.10},
	{Name: "spot -10%, vol +5", SpotMove: -0.10, VolMove: 0.05},
	{Name: "spot -5%", SpotMove: -0.05},
	{Name: "vol -5", VolMove: -0.05},
	{Name: "vol +5", VolMove: 0.05},
	{Name: "spot +5%", SpotMove: 0.05},
	{Name: "spot +10%, vol -3", SpotMove: 0.10, VolMove: -0.03},
}

type adjusted struct {
	base   strategy.Inputs
	adjust func(models.MarketInputs) models.MarketInputs
}

func (a adjusted) For(i, n int) (models.MarketInputs, error) {
	m, err := a.base.For(i, n)
	if err != nil {
		return models.MarketInputs{}, err
	}
	return a.adjust(m), nil
}

// AtSpot returns in with every leg's spot replaced by spot
func AtSpot(in strategy.Inputs, spot float64) strategy.Inputs {
	return adjusted{base: in, adjust: func(m models.MarketInputs) models.MarketInputs {
		m.Spot = spot
		return m
	}}
}

// Shocked returns in with the shock applied to every leg
func Shocked(in strategy.Inputs, shock Shock) strategy.Inputs {
	return adjusted{base: in, adjust: func(m models.MarketInputs) models.MarketInputs {
		m.Spot *= 1 + shock.SpotMove
		m.Volatility += shock.VolMove
		return m
	}}
}

// Stress revalues s under every shock. P&L is measured against the unshocked
// value.
func (e *Engine) Stress(s *strategy.Strategy, in strategy.Inputs, shocks []Shock) (results []ScenarioResult, err error) {
	start := time.Now()
	defer func() { e.observe("stress", start, err) }()

	base, err := s.Value(in)
	if err != nil {
		return nil, err
	}

	results = make([]ScenarioResult, 0, len(shocks))
	for _, shock := range shocks {
		v, err := s.Value(Shocked(in, shock))
		if err != nil {
			e.log.Warnw("Scenario revaluation failed", "strategy", s.Name(), "shock", shock.Name, "error", err)
			return nil, err
		}
		results = append(results, ScenarioResult{Shock: shock, Value: v, PnL: v - base})
	}
	return results, nil
}
