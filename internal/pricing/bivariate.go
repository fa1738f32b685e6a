package pricing

import (
	"math"
)

// Gauss-Legendre abscissae and weights for 6, 12 and 20 point rules
// (half of each symmetric rule).
var (
	glX = [3][]float64{
		{-0.9324695142031522, -0.6612093864662647, -0.2386191860831970},
		{-0.9815606342467191, -0.9041172563704750, -0.7699026741943050,
			-0.5873179542866171, -0.3678314989981802, -0.1252334085114692},
		{-0.9931285991850949, -0.9639719272779138, -0.9122344282513259,
			-0.8391169718222188, -0.7463319064601508, -0.6360536807265150,
			-0.5108670019508271, -0.3737060887154196, -0.2277858511416451,
			-0.07652652113349733},
	}
	glW = [3][]float64{
		{0.1713244923791705, 0.3607615730481384, 0.4679139345726904},
		{0.04717533638651177, 0.1069393259953183, 0.1600783285433464,
			0.2031674267230659, 0.2334925365383547, 0.2491470458134029},
		{0.01761400713915212, 0.04060142980038694, 0.06267204833410906,
			0.08327674157670475, 0.1019301198172404, 0.1181945319615184,
			0.1316886384491766, 0.1420961093183821, 0.1491729864726037,
			0.1527533871307259},
	}
)

// BivariateNormalCDF returns P(X <= a, Y <= b) for standard normals with
// correlation rho, using Genz's (2004) refinement of Drezner-Wesolowsky.
func BivariateNormalCDF(a, b, rho float64) float64 {
	var ng int
	switch {
	case math.Abs(rho) < 0.3:
		ng = 0
	case math.Abs(rho) < 0.75:
		ng = 1
	default:
		ng = 2
	}
	xs, ws := glX[ng], glW[ng]

	h, k := -a, -b
	hk := h * k
	bvn := 0.0

	if math.Abs(rho) < 0.925 {
		if rho != 0 {
			hs := (h*h + k*k) / 2
			asr := math.Asin(rho)
			for i := range xs {
				for _, sign := range [2]float64{-1, 1} {
					sn := math.Sin(asr * (sign*xs[i] + 1) / 2)
					bvn += ws[i] * math.Exp((sn*hk-hs)/(1-sn*sn))
				}
			}
			bvn *= asr / (4 * math.Pi)
		}
		return bvn + normCDF(-h)*normCDF(-k)
	}

	if rho < 0 {
		k = -k
		hk = -hk
	}

	if math.Abs(rho) < 1 {
		as := (1 - rho) * (1 + rho)
		aa := math.Sqrt(as)
		bs := (h - k) * (h - k)
		c := (4 - hk) / 8
		d := (12 - hk) / 16

		asr := -(bs/as + hk) / 2
		if asr > -100 {
			bvn = aa * math.Exp(asr) * (1 - c*(bs-as)*(1-d*bs/5)/3 + c*d*as*as/5)
		}
		if -hk < 100 {
			bb := math.Sqrt(bs)
			bvn -= math.Exp(-hk/2) * math.Sqrt(2*math.Pi) * normCDF(-bb/aa) * bb * (1 - c*bs*(1-d*bs/5)/3)
		}

		aa /= 2
		for i := range xs {
			for _, sign := range [2]float64{-1, 1} {
				x2 := math.Pow(aa*(sign*xs[i]+1), 2)
				rs := math.Sqrt(1 - x2)
				asr := -(bs/x2 + hk) / 2
				if asr > -100 {
					bvn += aa * ws[i] * math.Exp(asr) *
						(math.Exp(-hk*x2/(2*(1+rs)*(1+rs)))/rs - (1 + c*x2*(1+d*x2)))
				}
			}
		}
		bvn = -bvn / (2 * math.Pi)
	}

	if rho > 0 {
		return bvn + normCDF(-math.Max(h, k))
	}

	bvn = -bvn
	if k > h {
		if h < 0 {
			bvn += normCDF(k) - normCDF(h)
		} else {
			bvn += normCDF(-h) - normCDF(-k)
		}
	}
	return bvn
}
