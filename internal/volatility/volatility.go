package volatility

import (
	"fmt"
	"math"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/montanaflynn/stats"

	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// Bar is one OHLC observation of the underlying
type Bar struct {
	Date  civil.Date `json:"date"`
	Open  float64    `json:"open"`
	High  float64    `json:"high"`
	Low   float64    `json:"low"`
	Close float64    `json:"close"`
}

// Validate checks that the prices are positive and consistent
func (b Bar) Validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if !(v > 0) || math.IsInf(v, 0) {
			return errors.InvalidMarketParameter("bar %s: prices must be positive, got %+v", b.Date, b)
		}
	}
	if b.High < b.Low || b.High < b.Open || b.High < b.Close || b.Low > b.Open || b.Low > b.Close {
		return errors.InvalidMarketParameter("bar %s: high/low do not bracket open/close", b.Date)
	}
	return nil
}

// Estimator is a range-based variance estimator
type Estimator int

const (
	Parkinson Estimator = iota + 1
	GarmanKlass
	RogersSatchell
)

var estimatorNames = map[Estimator]string{
	Parkinson:      "parkinson",
	GarmanKlass:    "garman_klass",
	RogersSatchell: "rogers_satchell",
}

func (e Estimator) String() string {
	if name, ok := estimatorNames[e]; ok {
		return name
	}
	return fmt.Sprintf("estimator(%d)", int(e))
}

// ParseEstimator accepts the names returned by String, case-insensitively
func ParseEstimator(s string) (Estimator, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for e, name := range estimatorNames {
		if norm == name {
			return e, nil
		}
	}
	return 0, errors.InvalidArgument("unknown volatility estimator %q", s)
}

var parkinsonScale = 1 / (4 * math.Ln2)

// Variance returns the single-period variance contribution of one bar
func (e Estimator) Variance(b Bar) (float64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}

	hl := math.Log(b.High / b.Low)
	switch e {
	case Parkinson:
		return parkinsonScale * hl * hl, nil
	case GarmanKlass:
		co := math.Log(b.Close / b.Open)
		return 0.5*hl*hl - (2*math.Ln2-1)*co*co, nil
	case RogersSatchell:
		hc, ho := math.Log(b.High/b.Close), math.Log(b.High/b.Open)
		lc, lo := math.Log(b.Low/b.Close), math.Log(b.Low/b.Open)
		return hc*ho + lc*lo, nil
	default:
		return 0, errors.InvalidArgument("unknown volatility estimator %v", e)
	}
}

// Rolling returns the annualised volatility of every full window of bars, the
// first value covering bars[0:window]
func Rolling(bars []Bar, e Estimator, window int, periodsPerYear float64) ([]float64, error) {
	if window < 1 {
		return nil, errors.InvalidArgument("window must be at least 1, got %d", window)
	}
	if !(periodsPerYear > 0) {
		return nil, errors.InvalidArgument("periods per year must be positive, got %v", periodsPerYear)
	}
	if len(bars) < window {
		return nil, errors.InvalidArgument("need at least %d bars, got %d", window, len(bars))
	}

	variances := make(stats.Float64Data, len(bars))
	for i, b := range bars {
		v, err := e.Variance(b)
		if err != nil {
			return nil, err
		}
		variances[i] = v
	}

	scale := math.Sqrt(periodsPerYear)
	out := make([]float64, 0, len(bars)-window+1)
	for end := window; end <= len(bars); end++ {
		mean, err := stats.Mean(variances[end-window : end])
		if err != nil {
			return nil, errors.Wrap(err, "rolling mean")
		}
		out = append(out, math.Sqrt(math.Max(mean, 0))*scale)
	}
	return out, nil
}

// Latest returns the annualised volatility of the most recent window
func Latest(bars []Bar, e Estimator, window int, periodsPerYear float64) (float64, error) {
	if window < 1 {
		return 0, errors.InvalidArgument("window must be at least 1, got %d", window)
	}
	if len(bars) > window {
		bars = bars[len(bars)-window:]
	}
	vols, err := Rolling(bars, e, window, periodsPerYear)
	if err != nil {
		return 0, err
	}
	return vols[len(vols)-1], nil
}
