package api

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/rzzdr/options-risk-engine/internal/ingest"
	"github.com/rzzdr/options-risk-engine/internal/option"
	"github.com/rzzdr/options-risk-engine/internal/position"
	"github.com/rzzdr/options-risk-engine/internal/risk"
	"github.com/rzzdr/options-risk-engine/internal/store"
	"github.com/rzzdr/options-risk-engine/internal/strategy"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// marketRequest carries explicit market inputs. When neither a spot nor
// per-underlying overrides are given, inputs come from stored bars.
type marketRequest struct {
	Spot          float64                        `json:"spot"`
	Volatility    float64                        `json:"volatility"`
	Rate          *float64                       `json:"rate"`
	DividendYield *float64                       `json:"dividend_yield"`
	TimeToExpiry  *float64                       `json:"time_to_expiry"`
	Underlyings   map[string]models.MarketInputs `json:"underlyings"`
}

func (m *marketRequest) explicit() bool {
	return m != nil && (m.Spot != 0 || len(m.Underlyings) > 0)
}

type priceRequest struct {
	Underlying string              `json:"underlying" binding:"required"`
	Class      models.OptionClass  `json:"class"`
	Style      models.ExerciseType `json:"style"`
	Strike     float64             `json:"strike"`
	Expiry     civil.Date          `json:"expiry"`
	Market     *marketRequest      `json:"market"`
}

type priceResponse struct {
	Option    string              `json:"option"`
	Class     models.OptionClass  `json:"class"`
	Style     models.ExerciseType `json:"style"`
	Strike    float64             `json:"strike"`
	Expiry    civil.Date          `json:"expiry"`
	Market    models.MarketInputs `json:"market"`
	Price     float64             `json:"price"`
	Intrinsic float64             `json:"intrinsic"`
	Greeks    models.Greeks       `json:"greeks"`
}

// strategyRequest describes a strategy either leg by leg (type "custom") or
// through one of the named builders. Strikes and Costs are in the leg order
// of the builder.
type strategyRequest struct {
	Type string                  `json:"type" binding:"required"`
	Name string                  `json:"name"`
	Legs []ingest.PositionRecord `json:"legs"`

	Underlying      string              `json:"underlying"`
	Class           models.OptionClass  `json:"class"`
	Style           models.ExerciseType `json:"style"`
	Expiry          civil.Date          `json:"expiry"`
	NearExpiry      civil.Date          `json:"near_expiry"`
	FarExpiry       civil.Date          `json:"far_expiry"`
	Quantity        int                 `json:"quantity"`
	Side            models.TradeSide    `json:"side"`
	Strikes         []float64           `json:"strikes"`
	Costs           []float64           `json:"costs"`
	TransactionCost float64             `json:"transaction_cost"`
}

var verticalBuilders = map[string]func(strategy.VerticalSpreadConfig) (*strategy.Strategy, error){
	"long_call_vertical":  strategy.LongCallVertical,
	"long_put_vertical":   strategy.LongPutVertical,
	"short_call_vertical": strategy.ShortCallVertical,
	"short_put_vertical":  strategy.ShortPutVertical,
	"bull_spread":         strategy.BullSpread,
	"bear_spread":         strategy.BearSpread,
}

// terms returns exactly strikes strikes and legs costs; missing costs are
// zero
func (r strategyRequest) terms(kind string, strikes, legs int) ([]float64, []float64, error) {
	if len(r.Strikes) != strikes {
		return nil, nil, errors.InvalidStrategyConfiguration("%s needs %d strikes, got %d", kind, strikes, len(r.Strikes))
	}
	costs := make([]float64, legs)
	switch len(r.Costs) {
	case 0:
	case legs:
		copy(costs, r.Costs)
	default:
		return nil, nil, errors.InvalidStrategyConfiguration("%s takes %d costs, got %d", kind, legs, len(r.Costs))
	}
	return r.Strikes, costs, nil
}

func (r strategyRequest) build(settings []option.Setting) (*strategy.Strategy, error) {
	kind := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(r.Type)), "-", "_")
	contract := strategy.Contract{
		Underlying: r.Underlying,
		Style:      r.Style,
		Expiry:     r.Expiry,
		Quantity:   r.Quantity,
		Settings:   settings,
	}

	if kind == "custom" {
		return r.custom(settings)
	}

	if build, ok := verticalBuilders[kind]; ok || kind == "vertical" {
		k, c, err := r.terms(kind, 2, 2)
		if err != nil {
			return nil, err
		}
		cfg := strategy.VerticalSpreadConfig{
			Contract:            contract,
			Class:               r.Class,
			LowStrike:           k[0],
			HighStrike:          k[1],
			LowCost:             c[0],
			HighCost:            c[1],
			LowTransactionCost:  r.TransactionCost,
			HighTransactionCost: r.TransactionCost,
		}
		if ok {
			return build(cfg)
		}
		cfg.LowSide = r.Side
		if cfg.LowSide == 0 {
			cfg.LowSide = models.Long
		}
		cfg.HighSide = cfg.LowSide.Opposite()
		return strategy.VerticalSpread(cfg)
	}

	switch kind {
	case "straddle":
		k, costs, err := r.terms(kind, 1, 2)
		if err != nil {
			return nil, err
		}
		return strategy.Straddle(strategy.StraddleConfig{
			Contract:            contract,
			Strike:              k[0],
			Side:                r.Side,
			CallCost:            costs[0],
			PutCost:             costs[1],
			CallTransactionCost: r.TransactionCost,
			PutTransactionCost:  r.TransactionCost,
		})

	case "strangle":
		k, c, err := r.terms(kind, 2, 2)
		if err != nil {
			return nil, err
		}
		return strategy.Strangle(strategy.StrangleConfig{
			Contract:            contract,
			PutStrike:           k[0],
			CallStrike:          k[1],
			Side:                r.Side,
			PutCost:             c[0],
			CallCost:            c[1],
			PutTransactionCost:  r.TransactionCost,
			CallTransactionCost: r.TransactionCost,
		})

	case "butterfly":
		k, c, err := r.terms(kind, 3, 3)
		if err != nil {
			return nil, err
		}
		return strategy.Butterfly(strategy.ButterflyConfig{
			Contract:        contract,
			Class:           r.Class,
			LowStrike:       k[0],
			MidStrike:       k[1],
			HighStrike:      k[2],
			Side:            r.Side,
			LowCost:         c[0],
			MidCost:         c[1],
			HighCost:        c[2],
			TransactionCost: r.TransactionCost,
		})

	case "condor":
		k, c, err := r.terms(kind, 4, 4)
		if err != nil {
			return nil, err
		}
		cfg := strategy.CondorConfig{
			Contract:        contract,
			Class:           r.Class,
			Side:            r.Side,
			TransactionCost: r.TransactionCost,
		}
		copy(cfg.Strikes[:], k)
		copy(cfg.Costs[:], c)
		return strategy.Condor(cfg)

	case "calendar_spread":
		k, costs, err := r.terms(kind, 1, 2)
		if err != nil {
			return nil, err
		}
		return strategy.CalendarSpread(strategy.CalendarSpreadConfig{
			Contract:        contract,
			Class:           r.Class,
			Strike:          k[0],
			NearExpiry:      r.NearExpiry,
			FarExpiry:       r.FarExpiry,
			Side:            r.Side,
			NearCost:        costs[0],
			FarCost:         costs[1],
			TransactionCost: r.TransactionCost,
		})
	}

	return nil, errors.InvalidStrategyConfiguration("unknown strategy type %q", r.Type)
}

func (r strategyRequest) custom(settings []option.Setting) (*strategy.Strategy, error) {
	if len(r.Legs) == 0 {
		return nil, errors.InvalidStrategyConfiguration("custom strategy needs at least one leg")
	}
	positions := make([]*position.Position, len(r.Legs))
	for i, rec := range r.Legs {
		pos, err := rec.Position(settings...)
		if err != nil {
			return nil, errors.Wrapf(err, "leg %d", i)
		}
		positions[i] = pos
	}

	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = positions[0].String()
	}
	return strategy.New(name, positions...)
}

type strategyResponse struct {
	ID               string                  `json:"id"`
	Name             string                  `json:"name"`
	CreatedAt        time.Time               `json:"created_at"`
	NetCost          float64                 `json:"net_cost"`
	TransactionCosts float64                 `json:"transaction_costs"`
	Legs             []ingest.PositionRecord `json:"legs"`
}

func newStrategyResponse(entry store.StoredStrategy) strategyResponse {
	s := entry.Strategy
	legs := ingest.Records(s)
	for i := range legs {
		legs[i].Strategy = ""
	}
	return strategyResponse{
		ID:               entry.ID,
		Name:             s.Name(),
		CreatedAt:        entry.CreatedAt,
		NetCost:          s.NetCost(),
		TransactionCosts: s.TransactionCosts(),
		Legs:             legs,
	}
}

type evaluateRequest struct {
	Market *marketRequest `json:"market"`
}

type profileRequest struct {
	Market *marketRequest `json:"market"`
	// Prices overrides the grid around the spot. With prices and no market
	// the profile holds expiry payoffs only.
	Prices []float64 `json:"prices"`
}

type stressRequest struct {
	Market *marketRequest `json:"market"`
	Shocks []risk.Shock   `json:"shocks"`
}

type varRequest struct {
	Market     *marketRequest `json:"market"`
	Confidence float64        `json:"confidence"`
	Lookback   int            `json:"lookback"`
}
