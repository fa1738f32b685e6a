package strategy

import (
	"math"
	"sort"

	"github.com/rzzdr/options-risk-engine/internal/position"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// Strategy is an ordered collection of positions. Every aggregate is the
// plain sum of the position-level figures.
type Strategy struct {
	name      string
	positions []*position.Position
}

// New creates a strategy from the given positions
func New(name string, positions ...*position.Position) (*Strategy, error) {
	for i, p := range positions {
		if p == nil {
			return nil, errors.InvalidStrategyConfiguration("position %d is nil", i)
		}
	}
	return &Strategy{
		name:      name,
		positions: append([]*position.Position(nil), positions...),
	}, nil
}

func (s *Strategy) Name() string { return s.name }

// Len returns the number of legs
func (s *Strategy) Len() int { return len(s.positions) }

// Positions returns a copy of the legs in order
func (s *Strategy) Positions() []*position.Position {
	return append([]*position.Position(nil), s.positions...)
}

// IntrinsicValue sums the signed exercise values of every leg
func (s *Strategy) IntrinsicValue(price float64) float64 {
	total := 0.0
	for _, p := range s.positions {
		total += p.IntrinsicValue(price)
	}
	return total
}

// ValuesAtExpiry evaluates IntrinsicValue at every price
func (s *Strategy) ValuesAtExpiry(prices []float64) []float64 {
	return s.sumVectors(prices, (*position.Position).ValuesAtExpiry)
}

// ProfitAtExpiry sums the expiry P&L of every leg
func (s *Strategy) ProfitAtExpiry(price float64) float64 {
	total := 0.0
	for _, p := range s.positions {
		total += p.ProfitAtExpiry(price)
	}
	return total
}

// ProfitsAtExpiry evaluates ProfitAtExpiry at every price
func (s *Strategy) ProfitsAtExpiry(prices []float64) []float64 {
	return s.sumVectors(prices, (*position.Position).ProfitsAtExpiry)
}

func (s *Strategy) sumVectors(prices []float64, leg func(*position.Position, []float64) []float64) []float64 {
	total := make([]float64, len(prices))
	for _, p := range s.positions {
		for i, v := range leg(p, prices) {
			total[i] += v
		}
	}
	return total
}

// NetCost is the premium paid to open the strategy; negative is a net credit
func (s *Strategy) NetCost() float64 {
	total := 0.0
	for _, p := range s.positions {
		total += p.NetCost()
	}
	return total
}

// TransactionCosts sums the flat fees of every leg
func (s *Strategy) TransactionCosts() float64 {
	total := 0.0
	for _, p := range s.positions {
		total += p.TransactionCost()
	}
	return total
}

func (s *Strategy) fold(in Inputs, leg func(*position.Position, models.MarketInputs) (float64, error)) (float64, error) {
	total := 0.0
	for i, p := range s.positions {
		m, err := in.For(i, len(s.positions))
		if err != nil {
			return 0, err
		}
		v, err := leg(p, m)
		if err != nil {
			return 0, errors.Wrapf(err, "leg %d (%s)", i, p)
		}
		total += v
	}
	return total, nil
}

// Value is the model value of the whole strategy
func (s *Strategy) Value(in Inputs) (float64, error) {
	return s.fold(in, (*position.Position).Value)
}

// Profit is the mark-to-model P&L of the whole strategy
func (s *Strategy) Profit(in Inputs) (float64, error) {
	return s.fold(in, (*position.Position).Profit)
}

// Greeks sums the signed sensitivities of every leg
func (s *Strategy) Greeks(in Inputs) (models.Greeks, error) {
	var total models.Greeks
	for i, p := range s.positions {
		m, err := in.For(i, len(s.positions))
		if err != nil {
			return models.Greeks{}, err
		}
		g, err := p.Greeks(m)
		if err != nil {
			return models.Greeks{}, errors.Wrapf(err, "leg %d (%s)", i, p)
		}
		total = total.Add(g)
	}
	return total, nil
}

func (s *Strategy) Delta(in Inputs) (float64, error) {
	return s.fold(in, (*position.Position).Delta)
}

func (s *Strategy) Gamma(in Inputs) (float64, error) {
	return s.fold(in, (*position.Position).Gamma)
}

func (s *Strategy) Theta(in Inputs) (float64, error) {
	return s.fold(in, (*position.Position).Theta)
}

func (s *Strategy) Vega(in Inputs) (float64, error) {
	return s.fold(in, (*position.Position).Vega)
}

func (s *Strategy) Rho(in Inputs) (float64, error) {
	return s.fold(in, (*position.Position).Rho)
}

// Breakevens returns the underlying prices at which the expiry profit crosses
// zero, interpolated linearly between neighbouring grid points. The grid is
// sorted before use.
func (s *Strategy) Breakevens(prices []float64) []float64 {
	grid := append([]float64(nil), prices...)
	sort.Float64s(grid)
	profits := s.ProfitsAtExpiry(grid)

	var out []float64
	add := func(x float64) {
		if n := len(out); n > 0 && math.Abs(out[n-1]-x) < 1e-9 {
			return
		}
		out = append(out, x)
	}

	for i := range grid {
		if profits[i] == 0 {
			// inside a flat zero stretch nothing crosses
			if (i > 0 && profits[i-1] != 0) || (i+1 < len(grid) && profits[i+1] != 0) {
				add(grid[i])
			}
			continue
		}
		if i+1 < len(grid) && profits[i+1] != 0 && (profits[i] < 0) != (profits[i+1] < 0) {
			w := profits[i] / (profits[i] - profits[i+1])
			add(grid[i] + w*(grid[i+1]-grid[i]))
		}
	}
	return out
}
