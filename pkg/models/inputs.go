package models

// MarketInputs are the market-side parameters of a valuation. Rates and
// volatility are annualised decimals (0.05 is 5%).
type MarketInputs struct {
	Spot          float64 `json:"spot"`
	Volatility    float64 `json:"volatility"`
	Rate          float64 `json:"rate"`
	DividendYield float64 `json:"dividend_yield"`
	// TimeToExpiry is a year fraction. Nil asks the option to resolve it
	// from its trading calendar as of today; an explicit value, zero
	// included, is used as given.
	TimeToExpiry *float64 `json:"time_to_expiry,omitempty"`
}

// Years returns a pointer to the year fraction t
func Years(t float64) *float64 {
	return &t
}

// WithTimeToExpiry returns a copy of m with the year fraction set to t
func (m MarketInputs) WithTimeToExpiry(t float64) MarketInputs {
	m.TimeToExpiry = Years(t)
	return m
}
