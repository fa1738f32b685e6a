package risk

import (
	"bytes"
	"context"
	"math"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/options-risk-engine/internal/store"
	"github.com/rzzdr/options-risk-engine/internal/strategy"
	"github.com/rzzdr/options-risk-engine/internal/volatility"
	"github.com/rzzdr/options-risk-engine/pkg/metrics"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

func init() {
	logger.UseNop()
}

var (
	expiry = civil.Date{Year: 2025, Month: 6, Day: 20}
	market = models.MarketInputs{Spot: 100, Volatility: 0.2, Rate: 0.05, TimeToExpiry: models.Years(0.5)}
)

func vertical(t *testing.T, underlying string) *strategy.Strategy {
	t.Helper()
	s, err := strategy.LongCallVertical(strategy.VerticalSpreadConfig{
		Contract:   strategy.Contract{Underlying: underlying, Expiry: expiry},
		LowStrike:  95,
		HighStrike: 105,
		LowCost:    8,
		HighCost:   3,
	})
	require.NoError(t, err)
	return s
}

func newEngine() *Engine {
	return NewEngine(EngineConfig{Workers: 2, ProfileMin: 0.5, ProfileMax: 1.5, ProfileSteps: 101}, metrics.NewRecorder(prometheus.NewRegistry()))
}

func TestGrid(t *testing.T) {
	grid := newEngine().Grid(100)
	require.Len(t, grid, 101)
	assert.Equal(t, 50.0, grid[0])
	assert.Equal(t, 150.0, grid[100])
	assert.InDelta(t, 100, grid[50], 1e-12)

	defaults := NewEngine(EngineConfig{}, nil)
	assert.Len(t, defaults.Grid(10), 101)
}

func TestEvaluate(t *testing.T) {
	e := newEngine()
	s := vertical(t, "XYZ")

	report, err := e.Evaluate(context.Background(), s, strategy.Shared(market))
	require.NoError(t, err)

	value, err := s.Value(strategy.Shared(market))
	require.NoError(t, err)
	greeks, err := s.Greeks(strategy.Shared(market))
	require.NoError(t, err)

	assert.Equal(t, s.Name(), report.Name)
	assert.Equal(t, 2, report.Legs)
	assert.InDelta(t, 5, report.NetCost, 1e-12)
	assert.InDelta(t, value, report.Value, 1e-12)
	assert.InDelta(t, value-5, report.Profit, 1e-12)
	assert.Equal(t, greeks, report.Greeks)
	assert.InDelta(t, -greeks.Delta, report.HedgeUnits, 1e-12)
	assert.InDelta(t, 5, report.MaxProfit, 1e-9)
	assert.InDelta(t, -5, report.MaxLoss, 1e-9)
	require.Len(t, report.Breakevens, 1)
	assert.InDelta(t, 100, report.Breakevens[0], 1e-9)
}

func TestEvaluateEmptyAndFailing(t *testing.T) {
	e := newEngine()

	empty, err := strategy.New("empty")
	require.NoError(t, err)
	report, err := e.Evaluate(context.Background(), empty, strategy.Shared(market))
	require.NoError(t, err)
	assert.Zero(t, report.Value)
	assert.Empty(t, report.Breakevens)

	bad := market
	bad.Volatility = 0
	_, err = e.Evaluate(context.Background(), vertical(t, "XYZ"), strategy.Shared(bad))
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidMarketParameter))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Evaluate(ctx, vertical(t, "XYZ"), strategy.Shared(market))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProfile(t *testing.T) {
	e := newEngine()
	s := vertical(t, "XYZ")
	grid := []float64{80, 100, 110, 130}

	p, err := e.Profile(s, grid, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5, 10, 10}, p.Values)
	assert.Equal(t, []float64{-5, 0, 5, 5}, p.Profits)
	assert.Equal(t, []float64{100}, p.Breakevens)
	assert.Nil(t, p.ModelProfits)

	p, err = e.Profile(s, grid, strategy.Shared(market))
	require.NoError(t, err)
	require.Len(t, p.ModelProfits, 4)
	for i := 1; i < len(grid); i++ {
		assert.Greater(t, p.ModelProfits[i], p.ModelProfits[i-1])
	}
	for _, mp := range p.ModelProfits {
		assert.Greater(t, mp, -5.0)
		assert.Less(t, mp, 5.0)
	}
}

func TestEvaluateAll(t *testing.T) {
	e := newEngine()
	strategies := []*strategy.Strategy{vertical(t, "XYZ"), vertical(t, "ABC"), vertical(t, "xyz")}

	source := StaticMarket{
		Base:        models.MarketInputs{Volatility: 0.2, Rate: 0.05, TimeToExpiry: models.Years(0.5)},
		Underlyings: map[string]models.MarketInputs{"XYZ": {Spot: 100}},
	}

	reports, err := e.EvaluateAll(context.Background(), strategies, source)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Empty(t, reports[0].Error)
	assert.Contains(t, reports[1].Error, "no spot price for ABC")
	assert.Equal(t, strategies[1].Name(), reports[1].Name)
	assert.Empty(t, reports[2].Error)
	assert.InDelta(t, reports[0].Value, reports[2].Value, 1e-12)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.EvaluateAll(ctx, strategies, source)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticMarketPerLeg(t *testing.T) {
	s, err := strategy.New("pair", append(vertical(t, "AAA").Positions(), vertical(t, "BBB").Positions()...)...)
	require.NoError(t, err)

	source := StaticMarket{
		Base: models.MarketInputs{Volatility: 0.2, Rate: 0.05, TimeToExpiry: models.Years(0.5)},
		Underlyings: map[string]models.MarketInputs{
			"AAA": {Spot: 100},
			"bbb": {Spot: 200, Volatility: 0.3},
		},
	}
	in, err := source.Inputs(s)
	require.NoError(t, err)

	first, err := in.For(0, 4)
	require.NoError(t, err)
	last, err := in.For(3, 4)
	require.NoError(t, err)
	assert.Equal(t, 100.0, first.Spot)
	assert.Equal(t, 0.2, first.Volatility)
	assert.Equal(t, 200.0, last.Spot)
	assert.Equal(t, 0.3, last.Volatility)
	assert.Equal(t, 0.05, last.Rate)
}

func trendingBars(n int) []volatility.Bar {
	bars := make([]volatility.Bar, n)
	price := 100.0
	start := civil.Date{Year: 2024, Month: 1, Day: 1}
	for i := range bars {
		move := 0.01 * math.Sin(float64(i))
		open := price
		price *= 1 + move
		bars[i] = volatility.Bar{
			Date:  start.AddDays(i),
			Open:  open,
			High:  math.Max(open, price) * 1.005,
			Low:   math.Min(open, price) * 0.995,
			Close: price,
		}
	}
	return bars
}

func TestHistoryMarket(t *testing.T) {
	bars := store.NewBarStore()
	history := trendingBars(40)
	require.NoError(t, bars.Put("XYZ", history))

	source := HistoryMarket{Bars: bars, Estimator: volatility.GarmanKlass, Window: 20, PeriodsPerYear: 252, Rate: 0.04}
	in, err := source.Inputs(vertical(t, "XYZ"))
	require.NoError(t, err)

	m, err := in.For(1, 2)
	require.NoError(t, err)
	assert.Equal(t, history[39].Close, m.Spot)
	assert.Equal(t, 0.04, m.Rate)
	want, err := volatility.Latest(history, volatility.GarmanKlass, 20, 252)
	require.NoError(t, err)
	assert.InDelta(t, want, m.Volatility, 1e-12)

	_, err = source.Inputs(vertical(t, "NOPE"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestStress(t *testing.T) {
	e := newEngine()
	s := vertical(t, "XYZ")

	results, err := e.Stress(s, strategy.Shared(market), DefaultShocks)
	require.NoError(t, err)
	require.Len(t, results, len(DefaultShocks))

	byName := make(map[string]ScenarioResult)
	for _, r := range results {
		byName[r.Shock.Name] = r
	}
	assert.Less(t, byName["spot -5%"].PnL, 0.0)
	assert.Greater(t, byName["spot +5%"].PnL, 0.0)

	flat, err := e.Stress(s, strategy.Shared(market), []Shock{{Name: "none"}})
	require.NoError(t, err)
	assert.InDelta(t, 0, flat[0].PnL, 1e-12)

	_, err = e.Stress(s, strategy.Shared(market), []Shock{{Name: "vol crush", VolMove: -0.5}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidMarketParameter))
}

func TestHistoricalVaR(t *testing.T) {
	e := newEngine()
	s := vertical(t, "XYZ")
	bars := trendingBars(120)

	res, err := e.HistoricalVaR(s, strategy.Shared(market), bars, 0.95)
	require.NoError(t, err)
	assert.Equal(t, 119, res.Observations)
	assert.Greater(t, res.ValueAtRisk, 0.0)
	assert.GreaterOrEqual(t, res.ExpectedShortfall, res.ValueAtRisk)
	// a long vertical cannot lose more than its value
	value, err := s.Value(strategy.Shared(market))
	require.NoError(t, err)
	assert.Less(t, res.ExpectedShortfall, value)

	// a confidence this small leaves no tail beyond the worst loss
	tiny, err := e.HistoricalVaR(s, strategy.Shared(market), bars[:4], 1e-17)
	require.NoError(t, err)
	assert.Equal(t, 3, tiny.Observations)
	assert.GreaterOrEqual(t, tiny.ValueAtRisk, 0.0)

	_, err = e.HistoricalVaR(s, strategy.Shared(market), bars, 1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
	_, err = e.HistoricalVaR(s, strategy.Shared(market), bars[:1], 0.99)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}

func TestRender(t *testing.T) {
	e := newEngine()
	s := vertical(t, "XYZ")

	report, err := e.Evaluate(context.Background(), s, strategy.Shared(market))
	require.NoError(t, err)

	var buf bytes.Buffer
	RenderReports(&buf, []Report{report, {Name: "broken", Legs: 1, Error: "no spot price for ABC"}})
	out := buf.String()
	assert.Contains(t, out, "Strategy")
	assert.Contains(t, out, s.Name())
	assert.Contains(t, out, "100.00")
	assert.Contains(t, out, "error: no spot price for ABC")

	profile, err := e.Profile(s, []float64{90, 100, 110}, strategy.Shared(market))
	require.NoError(t, err)
	buf.Reset()
	RenderProfile(&buf, profile)
	assert.Contains(t, buf.String(), "P&L today")
	assert.Contains(t, buf.String(), "-5.00")

	buf.Reset()
	RenderScenarios(&buf, []ScenarioResult{{Shock: Shock{Name: "spot -5%"}, Value: 1, PnL: -0.5}})
	assert.Contains(t, buf.String(), "spot -5%")
	assert.Contains(t, buf.String(), "-0.50")
}
