package risk

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rzzdr/options-risk-engine/internal/strategy"
	"github.com/rzzdr/options-risk-engine/pkg/metrics"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
	"github.com/rzzdr/options-risk-engine/pkg/utils/pools"
)

// EngineConfig contains configuration for the report engine
type EngineConfig struct {
	Workers int
	// Expiry profiles span [ProfileMin, ProfileMax] times the spot
	ProfileMin   float64
	ProfileMax   float64
	ProfileSteps int
}

// Report is the valuation summary of one strategy
type Report struct {
	Name             string        `json:"name"`
	Legs             int           `json:"legs"`
	NetCost          float64       `json:"net_cost"`
	TransactionCosts float64       `json:"transaction_costs"`
	Value            float64       `json:"value"`
	Profit           float64       `json:"profit"`
	Greeks           models.Greeks `json:"greeks"`
	// HedgeUnits of the underlying flatten the strategy delta
	HedgeUnits float64   `json:"hedge_units"`
	Breakevens []float64 `json:"breakevens"`
	// Extremes of the expiry profit within the profile range
	MaxProfit float64 `json:"max_profit"`
	MaxLoss   float64 `json:"max_loss"`
	Error     string  `json:"error,omitempty"`
}

// Profile is the expiry payoff of a strategy over a price grid. ModelProfits
// holds the mark-to-model P&L at each grid price when inputs were supplied.
type Profile struct {
	Prices       []float64 `json:"prices"`
	Values       []float64 `json:"values"`
	Profits      []float64 `json:"profits"`
	ModelProfits []float64 `json:"model_profits,omitempty"`
	Breakevens   []float64 `json:"breakevens"`
}

// Engine values strategies and builds their risk reports
type Engine struct {
	config  EngineConfig
	metrics *metrics.Recorder
	scratch *pools.Float64SlicePool
	log     *logger.Logger
}

// NewEngine creates a new report engine. The recorder may be nil.
func NewEngine(config EngineConfig, recorder *metrics.Recorder) *Engine {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.ProfileMin <= 0 {
		config.ProfileMin = 0.5
	}
	if config.ProfileMax <= config.ProfileMin {
		config.ProfileMax = config.ProfileMin + 1
	}
	if config.ProfileSteps < 2 {
		config.ProfileSteps = 101
	}

	return &Engine{
		config:  config,
		metrics: recorder,
		scratch: pools.NewFloat64SlicePool(config.ProfileSteps),
		log:     logger.GetLogger("risk.engine"),
	}
}

func (e *Engine) observe(kind string, start time.Time, err error) {
	if e.metrics != nil {
		e.metrics.RecordEvaluation(kind, err, time.Since(start))
	}
}

// Grid returns ProfileSteps evenly spaced prices around spot
func (e *Engine) Grid(spot float64) []float64 {
	return e.fillGrid(make([]float64, e.config.ProfileSteps), spot)
}

func (e *Engine) fillGrid(grid []float64, spot float64) []float64 {
	lo, hi := spot*e.config.ProfileMin, spot*e.config.ProfileMax
	n := len(grid)
	step := (hi - lo) / float64(n-1)
	for i := range grid {
		grid[i] = lo + float64(i)*step
	}
	grid[n-1] = hi
	return grid
}

// Evaluate values s with the given inputs
func (e *Engine) Evaluate(ctx context.Context, s *strategy.Strategy, in strategy.Inputs) (report Report, err error) {
	start := time.Now()
	defer func() { e.observe("strategy", start, err) }()

	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	report = Report{
		Name:             s.Name(),
		Legs:             s.Len(),
		NetCost:          s.NetCost(),
		TransactionCosts: s.TransactionCosts(),
	}
	if s.Len() == 0 {
		return report, nil
	}

	if report.Value, err = s.Value(in); err != nil {
		return Report{}, err
	}
	report.Profit = report.Value - report.NetCost - report.TransactionCosts
	if report.Greeks, err = s.Greeks(in); err != nil {
		return Report{}, err
	}
	report.HedgeUnits = -report.Greeks.Delta

	m, err := in.For(0, s.Len())
	if err != nil {
		return Report{}, err
	}
	grid := e.fillGrid(e.scratch.GetN(e.config.ProfileSteps), m.Spot)
	defer e.scratch.Put(grid)
	profits := s.ProfitsAtExpiry(grid)
	report.Breakevens = s.Breakevens(grid)
	report.MaxProfit, report.MaxLoss = math.Inf(-1), math.Inf(1)
	for _, p := range profits {
		report.MaxProfit = math.Max(report.MaxProfit, p)
		report.MaxLoss = math.Min(report.MaxLoss, p)
	}

	if e.metrics != nil {
		g := report.Greeks
		e.metrics.RecordStrategyRisk(s.Name(), report.Value, g.Delta, g.Gamma, g.Theta, g.Vega, g.Rho)
	}
	return report, nil
}

// Profile evaluates the expiry payoff of s over grid. When in is not nil the
// mark-to-model P&L is computed at every grid price as well.
func (e *Engine) Profile(s *strategy.Strategy, grid []float64, in strategy.Inputs) (profile Profile, err error) {
	start := time.Now()
	defer func() { e.observe("profile", start, err) }()

	profile = Profile{
		Prices:     grid,
		Values:     s.ValuesAtExpiry(grid),
		Profits:    s.ProfitsAtExpiry(grid),
		Breakevens: s.Breakevens(grid),
	}
	if in == nil {
		return profile, nil
	}

	profile.ModelProfits = make([]float64, len(grid))
	for i, price := range grid {
		p, err := s.Profit(AtSpot(in, price))
		if err != nil {
			return Profile{}, errors.Wrapf(err, "model profit at %g", price)
		}
		profile.ModelProfits[i] = p
	}
	return profile, nil
}

// EvaluateAll values the strategies in parallel. A strategy that cannot be
// valued gets a report carrying the error; only cancellation of ctx fails the
// whole batch. Reports keep the order of strategies.
func (e *Engine) EvaluateAll(ctx context.Context, strategies []*strategy.Strategy, market MarketSource) ([]Report, error) {
	reports := make([]Report, len(strategies))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)

	for i, s := range strategies {
		g.Go(func() error {
			in, err := market.Inputs(s)
			if err == nil {
				reports[i], err = e.Evaluate(ctx, s, in)
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				e.log.Warnw("Strategy valuation failed", "strategy", s.Name(), "error", err)
				reports[i] = Report{Name: s.Name(), Legs: s.Len(), NetCost: s.NetCost(), TransactionCosts: s.TransactionCosts(), Error: err.Error()}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.log.Infow("Evaluated strategies", "count", len(strategies))
	return reports, nil
}
