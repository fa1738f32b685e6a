package pricing

import (
	"math"

	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// Relative and absolute bump sizes for American Greeks
const (
	spotBump = 1e-3
	volBump  = 1e-4
	rateBump = 1e-4
	timeBump = 1e-4
)

// BjerksundStensland2002Call returns the Bjerksund-Stensland (2002) closed-form
// approximation of an American call with cost of carry b = r - q. When
// b >= r early exercise is never optimal and the European value is returned.
func BjerksundStensland2002Call(p Params) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return bs2002Call(p)
}

func bs2002Call(p Params) (float64, error) {
	s, k, t, r, v := p.Spot, p.Strike, p.Time, p.Rate, p.Volatility
	b := p.CostOfCarry()

	if b >= r {
		return europeanPrice(models.Call, p, p.terms())
	}

	v2 := v * v
	t1 := 0.5 * (math.Sqrt(5) - 1) * t

	beta := (0.5 - b/v2) + math.Sqrt(math.Pow(b/v2-0.5, 2)+2*r/v2)
	bInf := beta / (beta - 1) * k
	b0 := math.Max(k, r/(r-b)*k)

	ht1 := -(b*t1 + 2*v*math.Sqrt(t1)) * k * k / ((bInf - b0) * b0)
	ht2 := -(b*t + 2*v*math.Sqrt(t)) * k * k / ((bInf - b0) * b0)
	i1 := b0 + (bInf-b0)*(1-math.Exp(ht1))
	i2 := b0 + (bInf-b0)*(1-math.Exp(ht2))
	alpha1 := (i1 - k) * math.Pow(i1, -beta)
	alpha2 := (i2 - k) * math.Pow(i2, -beta)

	if !finite(beta) || !finite(i1) || !finite(i2) {
		return 0, errors.InvalidMarketParameter("early exercise boundary undefined for r=%v q=%v sigma=%v", r, p.Dividend, v)
	}

	if s >= i2 {
		return s - k, nil
	}

	phi := func(tt, gamma, h, i float64) float64 {
		return bsPhi(s, tt, gamma, h, i, r, b, v)
	}
	psi := func(gamma, h float64) float64 {
		return bsPsi(s, t, gamma, h, i2, i1, t1, r, b, v)
	}

	value := alpha2*math.Pow(s, beta) - alpha2*phi(t1, beta, i2, i2) +
		phi(t1, 1, i2, i2) - phi(t1, 1, i1, i2) -
		k*phi(t1, 0, i2, i2) + k*phi(t1, 0, i1, i2) +
		alpha1*phi(t1, beta, i1, i2) - alpha1*psi(beta, i1) +
		psi(1, i1) - psi(1, k) -
		k*psi(0, i1) + k*psi(0, k)

	if !finite(value) {
		return 0, errors.InvalidMarketParameter("american call approximation diverged for S=%v K=%v T=%v", s, k, t)
	}
	return value, nil
}

func bsPhi(s, t, gamma, h, i, r, b, v float64) float64 {
	v2 := v * v
	lambda := (-r + gamma*b + 0.5*gamma*(gamma-1)*v2) * t
	d := -(math.Log(s/h) + (b+(gamma-0.5)*v2)*t) / (v * math.Sqrt(t))
	kappa := 2*b/v2 + 2*gamma - 1

	return math.Exp(lambda) * math.Pow(s, gamma) *
		(normCDF(d) - math.Pow(i/s, kappa)*normCDF(d-2*math.Log(i/s)/(v*math.Sqrt(t))))
}

func bsPsi(s, t2, gamma, h, i2, i1, t1, r, b, v float64) float64 {
	v2 := v * v
	drift := b + (gamma-0.5)*v2
	sq1 := v * math.Sqrt(t1)
	sq2 := v * math.Sqrt(t2)

	e1 := (math.Log(s/i1) + drift*t1) / sq1
	e2 := (math.Log(i2*i2/(s*i1)) + drift*t1) / sq1
	e3 := (math.Log(s/i1) - drift*t1) / sq1
	e4 := (math.Log(i2*i2/(s*i1)) - drift*t1) / sq1

	f1 := (math.Log(s/h) + drift*t2) / sq2
	f2 := (math.Log(i2*i2/(s*h)) + drift*t2) / sq2
	f3 := (math.Log(i1*i1/(s*h)) + drift*t2) / sq2
	f4 := (math.Log(s*i1*i1/(h*i2*i2)) + drift*t2) / sq2

	rho := math.Sqrt(t1 / t2)
	lambda := -r + gamma*b + 0.5*gamma*(gamma-1)*v2
	kappa := 2*b/v2 + 2*gamma - 1

	return math.Exp(lambda*t2) * math.Pow(s, gamma) *
		(BivariateNormalCDF(-e1, -f1, rho) -
			math.Pow(i2/s, kappa)*BivariateNormalCDF(-e2, -f2, rho) -
			math.Pow(i1/s, kappa)*BivariateNormalCDF(-e3, -f3, -rho) +
			math.Pow(i1/i2, kappa)*BivariateNormalCDF(-e4, -f4, -rho))
}

// AmericanCallGreeks returns the Greeks of the Bjerksund-Stensland call. They
// are analytic when early exercise is never optimal and central differences
// of the closed form otherwise.
func AmericanCallGreeks(p Params) (models.Greeks, error) {
	if err := p.Validate(); err != nil {
		return models.Greeks{}, err
	}
	if p.CostOfCarry() >= p.Rate {
		return europeanGreeks(models.Call, p, p.terms())
	}
	return bumpGreeks(p, bs2002Call)
}

// bumpGreeks differentiates a pricing function numerically. Theta follows
// the sign convention of the analytic formulas (value lost per year).
func bumpGreeks(p Params, price func(Params) (float64, error)) (models.Greeks, error) {
	eval := func(mutate func(*Params)) (float64, error) {
		q := p
		mutate(&q)
		return price(q)
	}

	mid, err := price(p)
	if err != nil {
		return models.Greeks{}, err
	}

	hs := p.Spot * spotBump
	up, err := eval(func(q *Params) { q.Spot += hs })
	if err != nil {
		return models.Greeks{}, err
	}
	down, err := eval(func(q *Params) { q.Spot -= hs })
	if err != nil {
		return models.Greeks{}, err
	}

	vUp, err := eval(func(q *Params) { q.Volatility += volBump })
	if err != nil {
		return models.Greeks{}, err
	}
	vDown, err := eval(func(q *Params) { q.Volatility -= math.Min(volBump, p.Volatility/2) })
	if err != nil {
		return models.Greeks{}, err
	}

	rUp, err := eval(func(q *Params) { q.Rate += rateBump })
	if err != nil {
		return models.Greeks{}, err
	}
	rDown, err := eval(func(q *Params) { q.Rate -= rateBump })
	if err != nil {
		return models.Greeks{}, err
	}

	ht := math.Min(timeBump, p.Time/2)
	tUp, err := eval(func(q *Params) { q.Time += ht })
	if err != nil {
		return models.Greeks{}, err
	}
	tDown, err := eval(func(q *Params) { q.Time -= ht })
	if err != nil {
		return models.Greeks{}, err
	}

	return models.Greeks{
		Delta: (up - down) / (2 * hs),
		Gamma: (up - 2*mid + down) / (hs * hs),
		Vega:  (vUp - vDown) / (volBump + math.Min(volBump, p.Volatility/2)),
		Rho:   (rUp - rDown) / (2 * rateBump),
		Theta: -(tUp - tDown) / (2 * ht),
	}, nil
}

// americanPutViaTransform prices an American put with the Bjerksund-Stensland
// put-call transformation P(S, K, T, r, b) = C(K, S, T, r-b, -b).
func americanPutViaTransform(p Params) (float64, error) {
	return bs2002Call(Params{
		Spot:       p.Strike,
		Strike:     p.Spot,
		Volatility: p.Volatility,
		Rate:       p.Dividend,
		Dividend:   p.Rate,
		Time:       p.Time,
	})
}
