package strategy

import (
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// Inputs supplies the market inputs for each leg of a strategy
type Inputs interface {
	// For returns the inputs of leg i out of n
	For(i, n int) (models.MarketInputs, error)
}

type shared models.MarketInputs

func (s shared) For(int, int) (models.MarketInputs, error) {
	return models.MarketInputs(s), nil
}

// Shared broadcasts one set of inputs to every leg
func Shared(m models.MarketInputs) Inputs {
	return shared(m)
}

type perLeg []models.MarketInputs

func (p perLeg) For(i, n int) (models.MarketInputs, error) {
	if len(p) != n {
		return models.MarketInputs{}, errors.InvalidArgument("got inputs for %d legs, strategy has %d", len(p), n)
	}
	return p[i], nil
}

// PerLeg supplies one set of inputs per position, in position order
func PerLeg(ms ...models.MarketInputs) Inputs {
	return perLeg(ms)
}
