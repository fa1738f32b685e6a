package risk

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/rzzdr/options-risk-engine/internal/strategy"
	"github.com/rzzdr/options-risk-engine/internal/volatility"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// VaRResult is a one-day historical-simulation value at risk. Losses are
// reported as positive numbers.
type VaRResult struct {
	Confidence        float64 `json:"confidence"`
	Observations      int     `json:"observations"`
	ValueAtRisk       float64 `json:"value_at_risk"`
	ExpectedShortfall float64 `json:"expected_shortfall"`
}

// HistoricalVaR revalues s under every close-to-close return in bars, every
// leg moving with the same return, and reads VaR and expected shortfall off
// the P&L distribution.
func (e *Engine) HistoricalVaR(s *strategy.Strategy, in strategy.Inputs, bars []volatility.Bar, confidence float64) (result VaRResult, err error) {
	start := time.Now()
	defer func() { e.observe("var", start, err) }()

	if confidence <= 0 || confidence >= 1 {
		return VaRResult{}, errors.InvalidArgument("confidence must be in (0, 1), got %v", confidence)
	}
	if len(bars) < 2 {
		return VaRResult{}, errors.InvalidArgument("need at least 2 bars for returns, got %d", len(bars))
	}

	for _, b := range bars {
		if err := b.Validate(); err != nil {
			return VaRResult{}, err
		}
	}

	base, err := s.Value(in)
	if err != nil {
		return VaRResult{}, err
	}

	pnl := e.scratch.Get()
	defer func() { e.scratch.Put(pnl) }()
	for i := 1; i < len(bars); i++ {
		growth := bars[i].Close / bars[i-1].Close
		shifted := adjusted{base: in, adjust: func(m models.MarketInputs) models.MarketInputs {
			m.Spot *= growth
			return m
		}}
		v, err := s.Value(shifted)
		if err != nil {
			return VaRResult{}, err
		}
		pnl = append(pnl, v-base)
	}
	sort.Float64s(pnl)

	// The index of the quantile, as the classic historical estimator takes it
	index := int(math.Floor((1 - confidence) * float64(len(pnl))))
	// 1-confidence rounds to 1 for confidences below the float epsilon
	index = min(index, len(pnl)-1)
	tail, err := stats.Mean(pnl[:index+1])
	if err != nil {
		return VaRResult{}, errors.Wrap(err, "tail mean")
	}

	return VaRResult{
		Confidence:        confidence,
		Observations:      len(pnl),
		ValueAtRisk:       math.Max(-pnl[index], 0),
		ExpectedShortfall: math.Max(-tail, 0),
	}, nil
}
