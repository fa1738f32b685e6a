package pricing

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// normCDF returns the cumulative distribution function of the standard normal distribution
func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// normPDF returns the probability density function of the standard normal distribution
func normPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}
