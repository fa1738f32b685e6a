package position

import (
	"fmt"
	"math"

	"github.com/rzzdr/options-risk-engine/internal/option"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// Position is a signed, sized holding of one option contract. Side and
// quantity are applied here and nowhere else.
type Position struct {
	side            models.TradeSide
	quantity        int
	option          *option.Option
	cost            float64
	transactionCost float64
}

// New creates a position. Cost is the per-unit premium, always non-negative;
// the side decides whether it was paid or received. Transaction cost is a
// flat debit for the whole leg.
//
// Net cost is side × quantity × cost, so a leg of n contracts pays n
// premiums. It reduces to side × cost only for a quantity of one, and the
// strategy-level NetCost sums these scaled figures.
func New(side models.TradeSide, quantity int, opt *option.Option, cost, transactionCost float64) (*Position, error) {
	if !side.Valid() {
		return nil, errors.InvalidArgument("unknown trade side %v", side)
	}
	if quantity < 1 {
		return nil, errors.InvalidArgument("quantity must be at least 1, got %d", quantity)
	}
	if opt == nil {
		return nil, errors.InvalidArgument("position requires an option")
	}
	if !(cost >= 0) || math.IsInf(cost, 0) {
		return nil, errors.InvalidArgument("cost must be non-negative, got %v", cost)
	}
	if !(transactionCost >= 0) || math.IsInf(transactionCost, 0) {
		return nil, errors.InvalidArgument("transaction cost must be non-negative, got %v", transactionCost)
	}

	return &Position{
		side:            side,
		quantity:        quantity,
		option:          opt,
		cost:            cost,
		transactionCost: transactionCost,
	}, nil
}

func (p *Position) Side() models.TradeSide   { return p.side }
func (p *Position) Quantity() int            { return p.quantity }
func (p *Position) Option() *option.Option   { return p.option }
func (p *Position) Cost() float64            { return p.cost }
func (p *Position) TransactionCost() float64 { return p.transactionCost }

func (p *Position) String() string {
	return fmt.Sprintf("%s %d x %s @ %g", p.side, p.quantity, p.option, p.cost)
}

func (p *Position) signed() float64 {
	return p.side.Value() * float64(p.quantity)
}

// IntrinsicValue is the signed exercise value of the whole position
func (p *Position) IntrinsicValue(price float64) float64 {
	return p.signed() * p.option.IntrinsicValue(price)
}

// ValuesAtExpiry evaluates IntrinsicValue at every price
func (p *Position) ValuesAtExpiry(prices []float64) []float64 {
	values := p.option.ValuesAtExpiry(prices)
	k := p.signed()
	for i := range values {
		values[i] *= k
	}
	return values
}

// NetCost is the premium paid (positive) or received (negative) to open the
// position, excluding transaction cost
func (p *Position) NetCost() float64 {
	return p.signed() * p.cost
}

// ProfitAtExpiry is the P&L if the option expires with the underlying at price
func (p *Position) ProfitAtExpiry(price float64) float64 {
	return p.IntrinsicValue(price) - p.NetCost() - p.transactionCost
}

// ProfitsAtExpiry evaluates ProfitAtExpiry at every price
func (p *Position) ProfitsAtExpiry(prices []float64) []float64 {
	profits := p.ValuesAtExpiry(prices)
	debit := p.NetCost() + p.transactionCost
	for i := range profits {
		profits[i] -= debit
	}
	return profits
}

// Value is the signed model value of the position
func (p *Position) Value(m models.MarketInputs) (float64, error) {
	v, err := p.option.Price(m)
	if err != nil {
		return 0, err
	}
	return p.signed() * v, nil
}

// Profit is the mark-to-model P&L before expiry
func (p *Position) Profit(m models.MarketInputs) (float64, error) {
	v, err := p.Value(m)
	if err != nil {
		return 0, err
	}
	return v - p.NetCost() - p.transactionCost, nil
}

// Greeks returns the signed sensitivities of the position
func (p *Position) Greeks(m models.MarketInputs) (models.Greeks, error) {
	g, err := p.option.Greeks(m)
	if err != nil {
		return models.Greeks{}, err
	}
	return g.Scale(p.signed()), nil
}

func (p *Position) greek(m models.MarketInputs, pick func(models.Greeks) float64) (float64, error) {
	g, err := p.Greeks(m)
	if err != nil {
		return 0, err
	}
	return pick(g), nil
}

func (p *Position) Delta(m models.MarketInputs) (float64, error) {
	return p.greek(m, func(g models.Greeks) float64 { return g.Delta })
}

func (p *Position) Gamma(m models.MarketInputs) (float64, error) {
	return p.greek(m, func(g models.Greeks) float64 { return g.Gamma })
}

func (p *Position) Theta(m models.MarketInputs) (float64, error) {
	return p.greek(m, func(g models.Greeks) float64 { return g.Theta })
}

func (p *Position) Vega(m models.MarketInputs) (float64, error) {
	return p.greek(m, func(g models.Greeks) float64 { return g.Vega })
}

func (p *Position) Rho(m models.MarketInputs) (float64, error) {
	return p.greek(m, func(g models.Greeks) float64 { return g.Rho })
}
